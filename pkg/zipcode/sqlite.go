package zipcode

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS zipcodes (
	zip           TEXT PRIMARY KEY,
	type          TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL DEFAULT '',
	aliases       TEXT,
	county        TEXT NOT NULL DEFAULT '',
	state         TEXT NOT NULL DEFAULT '',
	latitude      REAL NOT NULL DEFAULT 0,
	longitude     REAL NOT NULL DEFAULT 0,
	timezone      TEXT NOT NULL DEFAULT '',
	area_codes    TEXT,
	population    INTEGER NOT NULL DEFAULT 0,
	housing_units INTEGER NOT NULL DEFAULT 0,
	density       REAL NOT NULL DEFAULT 0,
	land_sqmi     REAL NOT NULL DEFAULT 0,
	water_sqmi    REAL NOT NULL DEFAULT 0,
	bounds_west   REAL,
	bounds_east   REAL,
	bounds_north  REAL,
	bounds_south  REAL,
	boundary      BLOB,
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS zipcode_loads (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	records     INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_zipcodes_state ON zipcodes(state);
CREATE INDEX IF NOT EXISTS idx_zipcodes_city ON zipcodes(city COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_zipcodes_latlng ON zipcodes(latitude, longitude);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const recordColumns = `zip, type, city, aliases, county, state, latitude, longitude, timezone, area_codes,
	population, housing_units, density, land_sqmi, water_sqmi,
	bounds_west, bounds_east, bounds_north, bounds_south, boundary`

func (s *SQLiteStore) Get(ctx context.Context, zip string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM zipcodes WHERE zip = ?`,
		zip,
	)
	return scanRecord(row)
}

func (s *SQLiteStore) Query(ctx context.Context, filter Filter) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM zipcodes WHERE 1=1`
	var args []any

	if filter.City != "" {
		// Aliases are stored as a JSON array; a quoted LIKE match finds
		// whole alias entries. SQLite LIKE ignores ASCII case.
		query += ` AND (city = ? COLLATE NOCASE OR aliases LIKE ?)`
		args = append(args, filter.City, `%"`+filter.City+`"%`)
	}
	if filter.State != "" {
		query += ` AND state = ?`
		args = append(args, strings.ToUpper(filter.State))
	}
	if filter.Prefix != "" {
		query += ` AND zip LIKE ?`
		args = append(args, filter.Prefix+"%")
	}
	if len(filter.Types) > 0 {
		query += ` AND type IN (` + placeholders(len(filter.Types)) + `)`
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
	}
	if filter.BBox != nil {
		query += ` AND latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?`
		args = append(args, filter.BBox.South, filter.BBox.North, filter.BBox.West, filter.BBox.East)
	}
	if filter.Contains != nil {
		query += ` AND bounds_west <= ? AND bounds_east >= ? AND bounds_south <= ? AND bounds_north >= ?`
		args = append(args,
			filter.Contains.Longitude, filter.Contains.Longitude,
			filter.Contains.Latitude, filter.Contains.Latitude,
		)
	}
	query += ` ORDER BY zip`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query zipcodes")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: query zipcodes iterate")
}

// Bounds and boundary fall back to the stored value when the incoming row
// carries none, so attribute refreshes do not wipe loaded geometry.
const sqliteUpsert = `
INSERT INTO zipcodes (zip, type, city, aliases, county, state, latitude, longitude, timezone, area_codes,
	population, housing_units, density, land_sqmi, water_sqmi,
	bounds_west, bounds_east, bounds_north, bounds_south, boundary, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (zip) DO UPDATE SET
	type = excluded.type,
	city = excluded.city,
	aliases = excluded.aliases,
	county = excluded.county,
	state = excluded.state,
	latitude = excluded.latitude,
	longitude = excluded.longitude,
	timezone = excluded.timezone,
	area_codes = excluded.area_codes,
	population = excluded.population,
	housing_units = excluded.housing_units,
	density = excluded.density,
	land_sqmi = excluded.land_sqmi,
	water_sqmi = excluded.water_sqmi,
	bounds_west = COALESCE(excluded.bounds_west, bounds_west),
	bounds_east = COALESCE(excluded.bounds_east, bounds_east),
	bounds_north = COALESCE(excluded.bounds_north, bounds_north),
	bounds_south = COALESCE(excluded.bounds_south, bounds_south),
	boundary = COALESCE(excluded.boundary, boundary),
	updated_at = excluded.updated_at
`

func (s *SQLiteStore) Upsert(ctx context.Context, records []Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range records {
		args, err := upsertArgs(r, now)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert zipcode %s", r.Zip)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return int64(len(records)), nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(boundary), COUNT(DISTINCT state) FROM zipcodes`,
	).Scan(&st.Records, &st.WithBoundary, &st.States)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	return &st, nil
}

func (s *SQLiteStore) RecordLoad(ctx context.Context, load Load) error {
	if load.ID == "" {
		load.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO zipcode_loads (id, source, records, started_at, finished_at) VALUES (?, ?, ?, ?, ?)`,
		load.ID, load.Source, load.Records, load.StartedAt.UTC(), load.FinishedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: record load")
}

func (s *SQLiteStore) Loads(ctx context.Context) ([]Load, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, records, started_at, finished_at FROM zipcode_loads ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list loads")
	}
	defer rows.Close()

	var loads []Load
	for rows.Next() {
		var l Load
		if err := rows.Scan(&l.ID, &l.Source, &l.Records, &l.StartedAt, &l.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan load")
		}
		loads = append(loads, l)
	}
	return loads, eris.Wrap(rows.Err(), "sqlite: list loads iterate")
}

// helpers

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*Record, error) {
	var r Record
	var aliasesJSON, areaCodesJSON sql.NullString
	var west, east, north, south sql.NullFloat64
	var boundary []byte

	err := row.Scan(&r.Zip, &r.Type, &r.City, &aliasesJSON, &r.County, &r.State,
		&r.Latitude, &r.Longitude, &r.Timezone, &areaCodesJSON,
		&r.Population, &r.HousingUnits, &r.Density, &r.LandSqMi, &r.WaterSqMi,
		&west, &east, &north, &south, &boundary)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan zipcode")
	}

	if aliasesJSON.Valid && aliasesJSON.String != "" {
		if err := json.Unmarshal([]byte(aliasesJSON.String), &r.Aliases); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal aliases")
		}
	}
	if areaCodesJSON.Valid && areaCodesJSON.String != "" {
		if err := json.Unmarshal([]byte(areaCodesJSON.String), &r.AreaCodes); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal area codes")
		}
	}
	if west.Valid && east.Valid && north.Valid && south.Valid {
		r.Bounds = &Bounds{West: west.Float64, East: east.Float64, North: north.Float64, South: south.Float64}
	}
	r.Boundary = boundary
	return &r, nil
}

func upsertArgs(r Record, now time.Time) ([]any, error) {
	aliasesJSON, err := marshalStrings(r.Aliases)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: marshal aliases for %s", r.Zip)
	}
	areaCodesJSON, err := marshalStrings(r.AreaCodes)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: marshal area codes for %s", r.Zip)
	}

	var west, east, north, south any
	if r.Bounds != nil {
		west, east, north, south = r.Bounds.West, r.Bounds.East, r.Bounds.North, r.Bounds.South
	}
	var boundary any
	if len(r.Boundary) > 0 {
		boundary = r.Boundary
	}

	return []any{
		r.Zip, string(r.Type), r.City, aliasesJSON, r.County, r.State,
		r.Latitude, r.Longitude, r.Timezone, areaCodesJSON,
		r.Population, r.HousingUnits, r.Density, r.LandSqMi, r.WaterSqMi,
		west, east, north, south, boundary, now,
	}, nil
}

// marshalStrings encodes a string slice as JSON, or NULL when empty.
func marshalStrings(vals []string) (any, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(vals)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
