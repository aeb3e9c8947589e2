package zipcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/VIDA-NYU/openclean-geo/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot lookup paths.
var preparedStatements = map[string]string{
	"get_zipcode":   `SELECT ` + recordColumns + ` FROM zipcodes WHERE zip = $1`,
	"zipcode_stats": `SELECT COUNT(*), COUNT(boundary), COUNT(DISTINCT state) FROM zipcodes`,
	"insert_load":   `INSERT INTO zipcode_loads (id, source, records, started_at, finished_at) VALUES ($1, $2, $3, $4, $5)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS zipcodes (
	zip           TEXT PRIMARY KEY,
	type          TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL DEFAULT '',
	aliases       JSONB,
	county        TEXT NOT NULL DEFAULT '',
	state         TEXT NOT NULL DEFAULT '',
	latitude      DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
	timezone      TEXT NOT NULL DEFAULT '',
	area_codes    JSONB,
	population    BIGINT NOT NULL DEFAULT 0,
	housing_units BIGINT NOT NULL DEFAULT 0,
	density       DOUBLE PRECISION NOT NULL DEFAULT 0,
	land_sqmi     DOUBLE PRECISION NOT NULL DEFAULT 0,
	water_sqmi    DOUBLE PRECISION NOT NULL DEFAULT 0,
	bounds_west   DOUBLE PRECISION,
	bounds_east   DOUBLE PRECISION,
	bounds_north  DOUBLE PRECISION,
	bounds_south  DOUBLE PRECISION,
	boundary      BYTEA,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS zipcode_loads (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source      TEXT NOT NULL,
	records     BIGINT NOT NULL DEFAULT 0,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_zipcodes_state ON zipcodes(state);
CREATE INDEX IF NOT EXISTS idx_zipcodes_city ON zipcodes(lower(city));
CREATE INDEX IF NOT EXISTS idx_zipcodes_latlng ON zipcodes(latitude, longitude);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, zip string) (*Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM zipcodes WHERE zip = $1`,
		zip,
	)
	return scanPgRecord(row)
}

func (s *PostgresStore) Query(ctx context.Context, filter Filter) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM zipcodes WHERE true`
	args := []any{}
	argIdx := 1

	if filter.City != "" {
		query += fmt.Sprintf(` AND (city ILIKE $%d OR aliases::text ILIKE $%d)`, argIdx, argIdx+1)
		args = append(args, filter.City, `%"`+filter.City+`"%`)
		argIdx += 2
	}
	if filter.State != "" {
		query += fmt.Sprintf(` AND state = $%d`, argIdx)
		args = append(args, strings.ToUpper(filter.State))
		argIdx++
	}
	if filter.Prefix != "" {
		query += fmt.Sprintf(` AND zip LIKE $%d`, argIdx)
		args = append(args, filter.Prefix+"%")
		argIdx++
	}
	if len(filter.Types) > 0 {
		query += fmt.Sprintf(` AND type = ANY($%d)`, argIdx)
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		args = append(args, types)
		argIdx++
	}
	if filter.BBox != nil {
		query += fmt.Sprintf(` AND latitude BETWEEN $%d AND $%d AND longitude BETWEEN $%d AND $%d`,
			argIdx, argIdx+1, argIdx+2, argIdx+3)
		args = append(args, filter.BBox.South, filter.BBox.North, filter.BBox.West, filter.BBox.East)
		argIdx += 4
	}
	if filter.Contains != nil {
		query += fmt.Sprintf(` AND bounds_west <= $%d AND bounds_east >= $%d AND bounds_south <= $%d AND bounds_north >= $%d`,
			argIdx, argIdx+1, argIdx+2, argIdx+3)
		args = append(args,
			filter.Contains.Longitude, filter.Contains.Longitude,
			filter.Contains.Latitude, filter.Contains.Latitude,
		)
		argIdx += 4
	}
	query += ` ORDER BY zip`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query zipcodes")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanPgRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: query zipcodes iterate")
}

// zipcodeColumns matches the zipcodes table layout for bulk upserts.
var zipcodeColumns = []string{
	"zip", "type", "city", "aliases", "county", "state", "latitude", "longitude",
	"timezone", "area_codes", "population", "housing_units", "density",
	"land_sqmi", "water_sqmi", "bounds_west", "bounds_east", "bounds_north",
	"bounds_south", "boundary", "updated_at",
}

func (s *PostgresStore) Upsert(ctx context.Context, records []Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		row, err := pgUpsertRow(r, now)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}

	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "zipcodes",
		Columns:      zipcodeColumns,
		ConflictKeys: []string{"zip"},
		CoalesceCols: []string{"bounds_west", "bounds_east", "bounds_north", "bounds_south", "boundary"},
	}, rows)
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(boundary), COUNT(DISTINCT state) FROM zipcodes`,
	).Scan(&st.Records, &st.WithBoundary, &st.States)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	return &st, nil
}

func (s *PostgresStore) RecordLoad(ctx context.Context, load Load) error {
	if load.ID == "" {
		load.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO zipcode_loads (id, source, records, started_at, finished_at) VALUES ($1, $2, $3, $4, $5)`,
		load.ID, load.Source, load.Records, load.StartedAt.UTC(), load.FinishedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: record load")
}

func (s *PostgresStore) Loads(ctx context.Context) ([]Load, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, records, started_at, finished_at FROM zipcode_loads ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list loads")
	}
	defer rows.Close()

	var loads []Load
	for rows.Next() {
		var l Load
		if err := rows.Scan(&l.ID, &l.Source, &l.Records, &l.StartedAt, &l.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan load")
		}
		loads = append(loads, l)
	}
	return loads, eris.Wrap(rows.Err(), "postgres: list loads iterate")
}

// helpers

func scanPgRecord(row pgx.Row) (*Record, error) {
	var r Record
	var aliasesNull, areaCodesNull, boundaryNull *[]byte
	var west, east, north, south *float64

	err := row.Scan(&r.Zip, &r.Type, &r.City, &aliasesNull, &r.County, &r.State,
		&r.Latitude, &r.Longitude, &r.Timezone, &areaCodesNull,
		&r.Population, &r.HousingUnits, &r.Density, &r.LandSqMi, &r.WaterSqMi,
		&west, &east, &north, &south, &boundaryNull)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: scan zipcode")
	}

	if aliasesNull != nil {
		if err := json.Unmarshal(*aliasesNull, &r.Aliases); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal aliases")
		}
	}
	if areaCodesNull != nil {
		if err := json.Unmarshal(*areaCodesNull, &r.AreaCodes); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal area codes")
		}
	}
	if west != nil && east != nil && north != nil && south != nil {
		r.Bounds = &Bounds{West: *west, East: *east, North: *north, South: *south}
	}
	if boundaryNull != nil {
		r.Boundary = *boundaryNull
	}
	return &r, nil
}

func pgUpsertRow(r Record, now time.Time) ([]any, error) {
	aliasesJSON, err := marshalStrings(r.Aliases)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: marshal aliases for %s", r.Zip)
	}
	areaCodesJSON, err := marshalStrings(r.AreaCodes)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: marshal area codes for %s", r.Zip)
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
