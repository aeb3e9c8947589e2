package zipcode

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// squareEWKB builds a closed rectangle polygon in EWKB for boundary fixtures.
func squareEWKB(t *testing.T, west, south, east, north float64) []byte {
	t.Helper()
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{west, south}, {east, south}, {east, north}, {west, north}, {west, south},
	}})
	poly.SetSRID(4326)
	b, err := ewkb.Marshal(poly, ewkb.NDR)
	require.NoError(t, err)
	return b
}

func newYorkRecord() Record {
	return Record{
		Zip:          "10001",
		Type:         TypeStandard,
		City:         "New York",
		Aliases:      []string{"Manhattan", "NYC"},
		County:       "New York County",
		State:        "NY",
		Latitude:     40.7506,
		Longitude:    -73.9972,
		Timezone:     "America/New_York",
		AreaCodes:    []string{"212", "646"},
		Population:   21102,
		HousingUnits: 12476,
		Density:      33959.0,
		LandSqMi:     0.62,
		WaterSqMi:    0.0,
	}
}

// --- Upsert / Get ---

func TestSQLite_UpsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := newYorkRecord()
	rec.Bounds = &Bounds{West: -74.008, East: -73.987, North: 40.759, South: 40.743}
	rec.Boundary = squareEWKB(t, -74.008, 40.743, -73.987, 40.759)

	n, err := st.Upsert(ctx, []Record{rec})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := st.Get(ctx, "10001")
	require.NoError(t, err)
	assert.Equal(t, "10001", got.Zip)
	assert.Equal(t, TypeStandard, got.Type)
	assert.Equal(t, "New York", got.City)
	assert.Equal(t, []string{"Manhattan", "NYC"}, got.Aliases)
	assert.Equal(t, "NY", got.State)
	assert.Equal(t, []string{"212", "646"}, got.AreaCodes)
	assert.Equal(t, int64(21102), got.Population)
	require.NotNil(t, got.Bounds)
	assert.InDelta(t, -74.008, got.Bounds.West, 1e-9)
	assert.Equal(t, rec.Boundary, got.Boundary)
}

func TestSQLite_Get_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.Get(context.Background(), "99999")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_Upsert_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	n, err := st.Upsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestSQLite_Upsert_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := newYorkRecord()
	_, err := st.Upsert(ctx, []Record{rec})
	require.NoError(t, err)

	rec.Population = 22000
	rec.City = "New York City"
	_, err = st.Upsert(ctx, []Record{rec})
	require.NoError(t, err)

	got, err := st.Get(ctx, "10001")
	require.NoError(t, err)
	assert.Equal(t, int64(22000), got.Population)
	assert.Equal(t, "New York City", got.City)
}

func TestSQLite_Upsert_KeepsBoundaryOnAttributeRefresh(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	withGeom := newYorkRecord()
	withGeom.Bounds = &Bounds{West: -74.008, East: -73.987, North: 40.759, South: 40.743}
	withGeom.Boundary = squareEWKB(t, -74.008, 40.743, -73.987, 40.759)
	_, err := st.Upsert(ctx, []Record{withGeom})
	require.NoError(t, err)

	// A reload without the shapefile source carries no geometry.
	refresh := newYorkRecord()
	refresh.Population = 23000
	_, err = st.Upsert(ctx, []Record{refresh})
	require.NoError(t, err)

	got, err := st.Get(ctx, "10001")
	require.NoError(t, err)
	assert.Equal(t, int64(23000), got.Population)
	require.NotNil(t, got.Bounds)
	assert.Equal(t, withGeom.Boundary, got.Boundary)
}

// --- Query ---

func seedQueryRecords(t *testing.T, st *SQLiteStore) {
	t.Helper()
	records := []Record{
		newYorkRecord(),
		{Zip: "10003", Type: TypeStandard, City: "New York", State: "NY", Latitude: 40.7313, Longitude: -73.9892},
		{Zip: "07030", Type: TypeStandard, City: "Hoboken", State: "NJ", Latitude: 40.7453, Longitude: -74.0279},
		{Zip: "08544", Type: TypeUnique, City: "Princeton", State: "NJ", Latitude: 40.3573, Longitude: -74.6672},
		{Zip: "90210", Type: TypeStandard, City: "Beverly Hills", State: "CA", Latitude: 34.0901, Longitude: -118.4065},
	}
	_, err := st.Upsert(context.Background(), records)
	require.NoError(t, err)
}

func TestSQLite_Query_ByCity(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedQueryRecords(t, st)

	records, err := st.Query(context.Background(), Filter{City: "New York"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "10001", records[0].Zip)
	assert.Equal(t, "10003", records[1].Zip)
}

func TestSQLite_Query_CityCaseInsensitive(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedQueryRecords(t, st)

	records, err := st.Query(context.Background(), Filter{City: "hoboken"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "07030", records[0].Zip)
}

func TestSQLite_Query_CityMatchesAlias(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedQueryRecords(t, st)

	records, err := st.Query(context.Background(), Filter{City: "Manhattan"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "10001", records[0].Zip)
}

func TestSQLite_Query_ByState(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedQueryRecords(t, st)

	records, err := st.Query(context.Background(), Filter{State: "nj"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "07030", records[0].Zip)
	assert.Equal(t, "08544", records[1].Zip)
}

func TestSQLite_Query_ByPrefix(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedQueryRecords(t, st)

	records, err := st.Query(context.Background(), Filter{Prefix: "100"})
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestSQLite_Query_ByTypes(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedQueryRecords(t, st)

	records, err := st.Query(context.Background(), Filter{Types: []Type{TypeUnique}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "08544", records[0].Zip)
}

func TestSQLite_Query_ByBBox(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedQueryRecords(t, st)

	// Window around lower Manhattan and Hoboken.
	records, err := st.Query(context.Background(), Filter{
		BBox: &Bounds{West: -74.1, East: -73.9, North: 40.8, South: 40.7},
	})
	require.NoError(t, err)
	require.Len(t, records, 3)
}

func TestSQLite_Query_ContainsEnvelope(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := newYorkRecord()
	rec.Bounds = &Bounds{West: -74.008, East: -73.987, North: 40.759, South: 40.743}
	_, err := st.Upsert(ctx, []Record{rec})
	require.NoError(t, err)

	// Inside the envelope.
	records, err := st.Query(ctx, Filter{Contains: &Point{Latitude: 40.75, Longitude: -74.0}})
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Outside the envelope.
	records, err = st.Query(ctx, Filter{Contains: &Point{Latitude: 41.0, Longitude: -74.0}})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLite_Query_LimitAndOffset(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedQueryRecords(t, st)

	page1, err := st.Query(context.Background(), Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "07030", page1[0].Zip)

	page2, err := st.Query(context.Background(), Filter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "10001", page2[0].Zip)
}

// --- Stats / Loads ---

func TestSQLite_Stats(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := newYorkRecord()
	rec.Boundary = squareEWKB(t, -74.008, 40.743, -73.987, 40.759)
	records := []Record{
		rec,
		{Zip: "08544", City: "Princeton", State: "NJ"},
		{Zip: "90210", City: "Beverly Hills", State: "CA"},
	}
	_, err := st.Upsert(ctx, records)
	require.NoError(t, err)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Records)
	assert.Equal(t, int64(1), stats.WithBoundary)
	assert.Equal(t, 3, stats.States)
}

func TestSQLite_RecordLoadAndLoads(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Add(-time.Minute)
	err := st.RecordLoad(ctx, Load{
		Source:     "gazetteer",
		Records:    33791,
		StartedAt:  started,
		FinishedAt: started.Add(30 * time.Second),
	})
	require.NoError(t, err)

	err = st.RecordLoad(ctx, Load{
		Source:     "zcta5",
		Records:    33144,
		StartedAt:  started.Add(40 * time.Second),
		FinishedAt: started.Add(50 * time.Second),
	})
	require.NoError(t, err)

	loads, err := st.Loads(ctx)
	require.NoError(t, err)
	require.Len(t, loads, 2)
	// Newest first.
	assert.Equal(t, "zcta5", loads[0].Source)
	assert.Equal(t, int64(33144), loads[0].Records)
	assert.NotEmpty(t, loads[0].ID)
	assert.Equal(t, "gazetteer", loads[1].Source)
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.Migrate(context.Background())
	require.NoError(t, err)
}
