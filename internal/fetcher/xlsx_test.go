package fetcher

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createWorkbook(t *testing.T, sheetName string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, value := range rowData {
			row.AddCell().SetString(value)
		}
	}
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestStreamXLSX(t *testing.T) {
	path := createWorkbook(t, "zips", [][]string{
		{"zip", "city", "state"},
		{"10001", "New York", "NY"},
		{"08544", "Princeton", "NJ"},
	})
	headerCh := make(chan []string, 1)

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{
		SkipRows: 1,
		HeaderCh: headerCh,
	})

	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"10001", "New York", "NY"}, rows[0])
	assert.Equal(t, []string{"08544", "Princeton", "NJ"}, rows[1])
	assert.Equal(t, []string{"zip", "city", "state"}, <-headerCh)
}

func TestStreamXLSX_NoSkip(t *testing.T) {
	path := createWorkbook(t, "zips", [][]string{
		{"10001", "New York"},
		{"08544", "Princeton"},
	})

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{})

	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestStreamXLSX_NamedSheet(t *testing.T) {
	path := createWorkbook(t, "crosswalk", [][]string{{"10001"}})

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{Sheet: "crosswalk"})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rowCh, errCh = StreamXLSX(context.Background(), path, XLSXOptions{Sheet: "missing"})
	_, err = collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "missing" not found`)
}

func TestStreamXLSX_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.xlsx")

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{})
	_, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
}

func TestPickSheet_EmptyWorkbook(t *testing.T) {
	_, err := pickSheet(&xlsx.File{}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sheets")
}
