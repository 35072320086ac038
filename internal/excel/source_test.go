package excel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeSheet(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "analytics.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestFetchAllFromExcel(t *testing.T) {
	path := writeSheet(t, [][]interface{}{
		{"email", "Name", "Course", "Start Date", "End Date", "Progress (%)", "Expected result"},
		{"a@x.com", "Alice", "101", "2024-01-10", "", "45%", "2.5"},
		{"b@x.com", "Bob", "101", "2024-01-12", "", "10%", "-6"},
	})

	src := New(DefaultConfig(path))
	records, err := src.FetchAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a@x.com", records[0].Email)
	assert.Equal(t, "Alice", records[0].Name)
	assert.Equal(t, "2.5", records[0].ExpectedResult)
	assert.Equal(t, "45%", records[0].Progress)

	assert.Equal(t, "b@x.com", records[1].Email)
	assert.Equal(t, "-6", records[1].ExpectedResult)
}

func TestFetchAllFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.csv")
	csv := "email,name,course,start,end,progress,expected\n" +
		"a@x.com,Alice,101,2024-01-10,,45%,2.5\n" +
		"short@x.com,OnlyName\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	src := New(DefaultConfig(path))
	records, err := src.FetchAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a@x.com", records[0].Email)
	assert.Equal(t, "2.5", records[0].ExpectedResult)

	// Short rows fill missing columns with empty strings; the store
	// decides what to discard
	assert.Equal(t, "short@x.com", records[1].Email)
	assert.Equal(t, "", records[1].ExpectedResult)
}

func TestFetchAllMissingFile(t *testing.T) {
	src := New(DefaultConfig(filepath.Join(t.TempDir(), "nope.xlsx")))
	_, err := src.FetchAll()
	assert.Error(t, err)
}
