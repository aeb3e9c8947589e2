package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "geo.test",
		Columns:      []string{"id", "name"},
		ConflictKeys: []string{"id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "geo.test",
		ConflictKeys: []string{"id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:   "geo.test",
		Columns: []string{"id", "name"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Flow(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"zip", "city", "boundary"}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_zipcodes" \(LIKE "zipcodes" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_zipcodes"}, cols).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "zipcodes" \("zip", "city", "boundary"\) SELECT "zip", "city", "boundary" FROM "_tmp_upsert_zipcodes" ON CONFLICT \("zip"\) DO UPDATE SET "city" = EXCLUDED\."city", "boundary" = COALESCE\(EXCLUDED\."boundary", "zipcodes"\."boundary"\)`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	rows := [][]any{
		{"10001", "New York", []byte{0x01}},
		{"10003", "New York", nil},
	}
	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "zipcodes",
		Columns:      cols,
		ConflictKeys: []string{"zip"},
		CoalesceCols: []string{"boundary"},
	}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"id", "name"}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_geo_places" \(LIKE "geo"\."places" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_geo_places"}, cols).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "geo"\."places" .* DO UPDATE SET "name" = COALESCE\(EXCLUDED\."name", "places"\."name"\)`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "geo.places",
		Columns:      cols,
		ConflictKeys: []string{"id"},
		CoalesceCols: []string{"name"},
	}, [][]any{{1, "a"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"geo.zipcodes", `"geo"."zipcodes"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBareTable(t *testing.T) {
	assert.Equal(t, `"zipcodes"`, bareTable("zipcodes"))
	assert.Equal(t, `"places"`, bareTable("geo.places"))
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"id", "name", "value"})
	assert.Equal(t, `"id", "name", "value"`, result)
}
