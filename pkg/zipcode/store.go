package zipcode

import "context"

// Filter specifies criteria for querying records. Zero-value fields are
// ignored.
type Filter struct {
	City     string  `json:"city,omitempty"`
	State    string  `json:"state,omitempty"`
	Prefix   string  `json:"prefix,omitempty"`
	Types    []Type  `json:"types,omitempty"`
	BBox     *Bounds `json:"bbox,omitempty"`
	Contains *Point  `json:"contains,omitempty"`
	Limit    int     `json:"limit,omitempty"`
	Offset   int     `json:"offset,omitempty"`
}

// Store defines the persistence interface for the ZIP gazetteer.
type Store interface {
	// Records
	Get(ctx context.Context, zip string) (*Record, error)
	Query(ctx context.Context, filter Filter) ([]Record, error)
	Upsert(ctx context.Context, records []Record) (int64, error)
	Stats(ctx context.Context) (*Stats, error)

	// Load audit
	RecordLoad(ctx context.Context, load Load) error
	Loads(ctx context.Context) ([]Load, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
