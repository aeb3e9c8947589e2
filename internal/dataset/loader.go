package dataset

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/VIDA-NYU/openclean-geo/internal/resilience"
	"github.com/VIDA-NYU/openclean-geo/pkg/zipcode"
)

const defaultBatchSize = 5000

// LoadOptions configures a gazetteer build. Any subset of sources may be
// given; at least one path is required.
type LoadOptions struct {
	GazetteerPath string // ZCTA Gazetteer file (tab-delimited)
	PlacesPath    string // places crosswalk (.csv or .xlsx)
	ShapefilePath string // ZCTA5 shapefile (.shp)
	Source        string // audit label (default "files")
	BatchSize     int    // records per upsert batch (default 5,000)
}

// LoadResult summarizes a completed load.
type LoadResult struct {
	Zips       int           // distinct ZIPs after merging
	Records    int64         // rows upserted
	Boundaries int           // polygons attached
	Duration   time.Duration
}

// Load parses the configured sources concurrently, merges them into one
// record per ZIP, and upserts the result in batches. A load audit row is
// recorded on the store when done.
func Load(ctx context.Context, store zipcode.Store, opts LoadOptions) (*LoadResult, error) {
	if opts.GazetteerPath == "" && opts.PlacesPath == "" && opts.ShapefilePath == "" {
		return nil, eris.New("dataset: no sources given")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Source == "" {
		opts.Source = "files"
	}

	log := zap.L().With(zap.String("component", "dataset.loader"))
	started := time.Now().UTC()

	var gaz, places []zipcode.Record
	var boundaries []Boundary

	g, gCtx := errgroup.WithContext(ctx)
	if opts.GazetteerPath != "" {
		g.Go(func() error {
			f, err := os.Open(opts.GazetteerPath)
			if err != nil {
				return eris.Wrapf(err, "dataset: open gazetteer %s", opts.GazetteerPath)
			}
			defer f.Close() //nolint:errcheck
			gaz, err = ParseGazetteer(gCtx, f)
			return err
		})
	}
	if opts.PlacesPath != "" {
		g.Go(func() error {
			if strings.EqualFold(filepath.Ext(opts.PlacesPath), ".xlsx") {
				var err error
				places, err = ParsePlacesXLSX(gCtx, opts.PlacesPath)
				return err
			}
			f, err := os.Open(opts.PlacesPath)
			if err != nil {
				return eris.Wrapf(err, "dataset: open places %s", opts.PlacesPath)
			}
			defer f.Close() //nolint:errcheck
			places, err = ParsePlaces(gCtx, f)
			return err
		})
	}
	if opts.ShapefilePath != "" {
		g.Go(func() error {
			var err error
			boundaries, err = ParseShapefile(opts.ShapefilePath)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := merge(places, gaz, boundaries)
	log.Info("sources merged",
		zap.Int("gazetteer", len(gaz)),
		zap.Int("places", len(places)),
		zap.Int("boundaries", len(boundaries)),
		zap.Int("zips", len(merged)),
	)

	// IsTransient recognizes sqlite busy/locked and Postgres serialization
	// failures, so batches survive write contention.
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = func(attempt int, err error) {
		log.Warn("upsert retry", zap.Int("attempt", attempt), zap.Error(err))
	}

	var total int64
	for start := 0; start < len(merged); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(merged))
		batch := merged[start:end]

		n, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (int64, error) {
			return store.Upsert(ctx, batch)
		})
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: upsert batch at %d", start)
		}
		total += n
	}

	finished := time.Now().UTC()
	if err := store.RecordLoad(ctx, zipcode.Load{
		Source:     opts.Source,
		Records:    total,
		StartedAt:  started,
		FinishedAt: finished,
	}); err != nil {
		log.Warn("failed to record load", zap.Error(err))
	}

	res := &LoadResult{
		Zips:       len(merged),
		Records:    total,
		Boundaries: len(boundaries),
		Duration:   finished.Sub(started),
	}
	log.Info("gazetteer load complete",
		zap.Int64("records", res.Records),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// merge folds the sources into one record per ZIP. Places rows carry naming
// and demographics, gazetteer rows override centroid and area, and shapefile
// geometry attaches bounds and boundary. The shapefile centroid fills in
// only for ZIPs the gazetteer did not cover.
func merge(places, gaz []zipcode.Record, boundaries []Boundary) []zipcode.Record {
	byZip := make(map[string]*zipcode.Record)
	get := func(zip string) *zipcode.Record {
		r, ok := byZip[zip]
		if !ok {
			r = &zipcode.Record{Zip: zip}
			byZip[zip] = r
		}
		return r
	}

	for _, p := range places {
		r := get(p.Zip)
		r.Type, r.City, r.Aliases = p.Type, p.City, p.Aliases
		r.County, r.State, r.Timezone = p.County, p.State, p.Timezone
		r.AreaCodes = p.AreaCodes
		r.Population, r.HousingUnits, r.Density = p.Population, p.HousingUnits, p.Density
	}
	for _, gz := range gaz {
		r := get(gz.Zip)
		r.Latitude, r.Longitude = gz.Latitude, gz.Longitude
		r.LandSqMi, r.WaterSqMi = gz.LandSqMi, gz.WaterSqMi
	}
	for _, b := range boundaries {
		r := get(b.Zip)
		bounds := b.Bounds
		r.Bounds = &bounds
		r.Boundary = b.EWKB
		if r.Latitude == 0 && r.Longitude == 0 {
			r.Latitude, r.Longitude = b.Centroid.Latitude, b.Centroid.Longitude
		}
	}

	zips := make([]string, 0, len(byZip))
	for z := range byZip {
		zips = append(zips, z)
	}
	sort.Strings(zips)

	out := make([]zipcode.Record, 0, len(zips))
	for _, z := range zips {
		out = append(out, *byZip[z])
	}
	return out
}

// FetchOptions configures remote source retrieval.
type FetchOptions struct {
	Year     int    // Census vintage (default 2024)
	CacheDir string // download directory (default $TMPDIR/openclean-geo)
	FTP      bool   // use the ftp2.census.gov mirror instead of HTTPS
}

// FetchSources downloads the Gazetteer file and ZCTA5 shapefile for the
// configured vintage and returns local paths suitable for LoadOptions.
func FetchSources(ctx context.Context, opts FetchOptions) (gazetteer, shapefile string, err error) {
	if opts.Year == 0 {
		opts.Year = defaultYear
	}
	if opts.CacheDir == "" {
		opts.CacheDir = filepath.Join(os.TempDir(), "openclean-geo")
	}

	gazURL := GazetteerURL(opts.Year)
	shpURL := ShapefileURL(opts.Year)
	if opts.FTP {
		if gazURL, err = MirrorURL(gazURL); err != nil {
			return "", "", err
		}
		if shpURL, err = MirrorURL(shpURL); err != nil {
			return "", "", err
		}
	}

	gazetteer, err = Fetch(ctx, gazURL, filepath.Join(opts.CacheDir, "gazetteer"), ".txt")
	if err != nil {
		return "", "", eris.Wrap(err, "dataset: fetch gazetteer")
	}
	shapefile, err = Fetch(ctx, shpURL, filepath.Join(opts.CacheDir, "zcta5"), ".shp")
	if err != nil {
		return "", "", eris.Wrap(err, "dataset: fetch shapefile")
	}
	return gazetteer, shapefile, nil
}
