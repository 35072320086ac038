package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/edubot/internal/progress"
	"github.com/xuri/excelize/v2"
)

// Config defines where the student analytics sheet lives and which
// columns hold which fields.
type Config struct {
	FilePath             string // Path to the Excel or CSV file
	EmailColumn          string // Column with the student email
	NameColumn           string // Column with the student name
	CourseColumn         string // Column with the course id
	StartDateColumn      string // Column with the course start date
	EndDateColumn        string // Column with the course end date
	ProgressColumn       string // Column with the completion percent
	ExpectedResultColumn string // Column with the pace metric
	SheetName            string // Name of the sheet to read
	StartRow             int    // The row to start reading from (1-based index)
}

// DefaultConfig returns the default sheet layout.
func DefaultConfig(filePath string) Config {
	return Config{
		FilePath:             filePath,
		EmailColumn:          "A",
		NameColumn:           "B",
		CourseColumn:         "C",
		StartDateColumn:      "D",
		EndDateColumn:        "E",
		ProgressColumn:       "F",
		ExpectedResultColumn: "G",
		SheetName:            "Sheet1",
		StartRow:             2, // By default, start from the second row (skip header)
	}
}

// Source reads student progress rows from a local spreadsheet. The file
// is re-read on every fetch, so an externally re-downloaded sheet is
// picked up by the next refresh cycle.
type Source struct {
	config Config
}

// New creates a spreadsheet-backed progress source.
func New(config Config) *Source {
	return &Source{config: config}
}

// FetchAll implements progress.Source.
func (s *Source) FetchAll() ([]progress.RawRecord, error) {
	ext := strings.ToLower(filepath.Ext(s.config.FilePath))
	if ext == ".csv" {
		return s.fetchFromCSV()
	}
	return s.fetchFromExcel()
}

// fetchFromExcel reads rows from an Excel file
func (s *Source) fetchFromExcel() ([]progress.RawRecord, error) {
	f, err := excelize.OpenFile(s.config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(s.config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %v", err)
	}

	var records []progress.RawRecord
	for i, row := range rows {
		// Skip header rows
		if i < s.config.StartRow-1 {
			continue
		}
		records = append(records, s.rowToRecord(row))
	}
	return records, nil
}

// fetchFromCSV reads rows from a CSV export of the same sheet
func (s *Source) fetchFromCSV() ([]progress.RawRecord, error) {
	file, err := os.Open(s.config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var records []progress.RawRecord
	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %v", err)
		}

		rowNum++
		if rowNum < s.config.StartRow {
			continue
		}
		records = append(records, s.rowToRecord(row))
	}
	return records, nil
}

// rowToRecord maps configured columns onto a raw record. Validation is
// the store's job; empty cells pass through as empty strings.
func (s *Source) rowToRecord(row []string) progress.RawRecord {
	return progress.RawRecord{
		Email:          cellValue(row, s.config.EmailColumn),
		Name:           cellValue(row, s.config.NameColumn),
		CourseID:       cellValue(row, s.config.CourseColumn),
		StartDate:      cellValue(row, s.config.StartDateColumn),
		EndDate:        cellValue(row, s.config.EndDateColumn),
		Progress:       cellValue(row, s.config.ProgressColumn),
		ExpectedResult: cellValue(row, s.config.ExpectedResultColumn),
	}
}

// cellValue returns the trimmed cell under an Excel column letter, or ""
// when the row is too short or the column unconfigured.
func cellValue(row []string, column string) string {
	if column == "" {
		return ""
	}
	idx := columnToIndex(column)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// columnToIndex converts an Excel column letter to a zero-based index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
