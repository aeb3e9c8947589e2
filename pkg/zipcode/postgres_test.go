package zipcode

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

// mockRecordRows builds result rows matching the recordColumns select list.
func mockRecordRows(records ...Record) *pgxmock.Rows {
	rows := pgxmock.NewRows(zipcodeColumns[:len(zipcodeColumns)-1]) // without updated_at
	for _, r := range records {
		var aliases, areaCodes, boundary *[]byte
		if len(r.Aliases) > 0 {
			b, _ := json.Marshal(r.Aliases)
			aliases = &b
		}
		if len(r.AreaCodes) > 0 {
			b, _ := json.Marshal(r.AreaCodes)
			areaCodes = &b
		}
		if len(r.Boundary) > 0 {
			b := r.Boundary
			boundary = &b
		}
		var west, east, north, south *float64
		if r.Bounds != nil {
			west, east, north, south = &r.Bounds.West, &r.Bounds.East, &r.Bounds.North, &r.Bounds.South
		}
		rows.AddRow(r.Zip, r.Type, r.City, aliases, r.County, r.State,
			r.Latitude, r.Longitude, r.Timezone, areaCodes,
			r.Population, r.HousingUnits, r.Density, r.LandSqMi, r.WaterSqMi,
			west, east, north, south, boundary)
	}
	return rows
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rec := newYorkRecord()
	rec.Bounds = &Bounds{West: -74.008, East: -73.987, North: 40.759, South: 40.743}

	mock.ExpectQuery(`FROM zipcodes WHERE zip = \$1`).
		WithArgs("10001").
		WillReturnRows(mockRecordRows(rec))

	got, err := s.Get(context.Background(), "10001")
	require.NoError(t, err)
	assert.Equal(t, "10001", got.Zip)
	assert.Equal(t, TypeStandard, got.Type)
	assert.Equal(t, []string{"Manhattan", "NYC"}, got.Aliases)
	assert.Equal(t, []string{"212", "646"}, got.AreaCodes)
	require.NotNil(t, got.Bounds)
	assert.InDelta(t, 40.759, got.Bounds.North, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM zipcodes WHERE zip = \$1`).
		WithArgs("99999").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), "99999")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Query_StateAndPrefix(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM zipcodes WHERE true AND state = \$1 AND zip LIKE \$2 ORDER BY zip LIMIT \$3`).
		WithArgs("NY", "100%", 100).
		WillReturnRows(mockRecordRows(
			newYorkRecord(),
			Record{Zip: "10003", Type: TypeStandard, City: "New York", State: "NY"},
		))

	records, err := s.Query(context.Background(), Filter{State: "ny", Prefix: "100"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "10001", records[0].Zip)
	assert.Equal(t, "10003", records[1].Zip)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Query_CityMatchesAliases(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`AND \(city ILIKE \$1 OR aliases::text ILIKE \$2\)`).
		WithArgs("Manhattan", `%"Manhattan"%`, 100).
		WillReturnRows(mockRecordRows(newYorkRecord()))

	records, err := s.Query(context.Background(), Filter{City: "Manhattan"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Upsert_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.Upsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Upsert_BulkFlow(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_zipcodes" \(LIKE "zipcodes" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_zipcodes"}, zipcodeColumns).
		WillReturnResult(2)
	mock.ExpectExec(`ON CONFLICT \("zip"\) DO UPDATE SET .* COALESCE\(EXCLUDED\."boundary", "zipcodes"\."boundary"\)`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	records := []Record{
		newYorkRecord(),
		{Zip: "10003", Type: TypeStandard, City: "New York", State: "NY"},
	}
	n, err := s.Upsert(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(boundary\), COUNT\(DISTINCT state\) FROM zipcodes`).
		WillReturnRows(pgxmock.NewRows([]string{"records", "with_boundary", "states"}).
			AddRow(int64(33791), int64(33144), 56))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(33791), stats.Records)
	assert.Equal(t, int64(33144), stats.WithBoundary)
	assert.Equal(t, 56, stats.States)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordLoad(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO zipcode_loads`).
		WithArgs(pgxmock.AnyArg(), "gazetteer", int64(33791), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordLoad(context.Background(), Load{
		Source:     "gazetteer",
		Records:    33791,
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Loads(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, source, records, started_at, finished_at FROM zipcode_loads`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "source", "records", "started_at", "finished_at"}).
			AddRow("load-2", "zcta5", int64(33144), now.Add(-time.Minute), now).
			AddRow("load-1", "gazetteer", int64(33791), now.Add(-2*time.Minute), now.Add(-90*time.Second)))

	loads, err := s.Loads(context.Background())
	require.NoError(t, err)
	require.Len(t, loads, 2)
	assert.Equal(t, "zcta5", loads[0].Source)
	assert.Equal(t, int64(33791), loads[1].Records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS zipcodes`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	err := s.Migrate(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`SELECT 1`).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	err := s.Ping(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
