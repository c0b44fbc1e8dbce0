package spreadsheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"codeberg.org/snonux/surveytranslate/internal"
	"codeberg.org/snonux/surveytranslate/internal/survey"
)

const (
	// SheetName is the name of the single sheet in exported workbooks
	SheetName = "Translation Results"

	// ProcessedAtLayout formats the timestamp written to F2
	ProcessedAtLayout = "2006-01-02 15:04:05"

	// ResultsFilePrefix starts every exported file name
	ResultsFilePrefix = "survey_translation_results"

	// XLSXContentType is the MIME type of exported workbooks
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// CSVContentType is the MIME type of CSV exports
	CSVContentType = "text/csv; charset=utf-8"
)

// Headers is the fixed column layout of the export, columns A to D
var Headers = []string{"Original Question", "Detected Language", "Confidence (%)", "English Translation"}

// ResultsFileName returns the download name for an export generated at t
func ResultsFileName(t time.Time, ext string) string {
	return internal.TimestampedName(ResultsFilePrefix, ext, t)
}

// WriteResults writes the records as an xlsx workbook. The header row is
// always present, so an empty slice still yields a valid workbook.
func WriteResults(w io.Writer, records []survey.Record, processedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := Headers
	if err := f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		row := []interface{}{r.OriginalQuestion, r.DetectedLanguage, r.Confidence, r.EnglishTranslation}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetCellValue(SheetName, "F1", "Processed At"); err != nil {
		return fmt.Errorf("failed to write timestamp header: %w", err)
	}
	if err := f.SetCellValue(SheetName, "F2", processedAt.Format(ProcessedAtLayout)); err != nil {
		return fmt.Errorf("failed to write timestamp: %w", err)
	}

	if err := styleSheet(f); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func styleSheet(f *excelize.File) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "F1", bold); err != nil {
		return fmt.Errorf("failed to style headers: %w", err)
	}

	widths := []struct {
		from, to string
		width    float64
	}{
		{"A", "A", 60},
		{"B", "C", 18},
		{"D", "D", 60},
		{"F", "F", 20},
	}
	for _, w := range widths {
		if err := f.SetColWidth(SheetName, w.from, w.to, w.width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}

// WriteCSV writes the same layout as WriteResults in CSV form
func WriteCSV(w io.Writer, records []survey.Record, processedAt time.Time) error {
	writer := csv.NewWriter(w)

	header := append(append([]string{}, Headers...), "", "Processed At")
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	stamp := processedAt.Format(ProcessedAtLayout)
	for i, r := range records {
		record := []string{
			r.OriginalQuestion,
			r.DetectedLanguage,
			strconv.Itoa(r.Confidence),
			r.EnglishTranslation,
			"",
			"",
		}
		if i == 0 {
			record[5] = stamp
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i+1, err)
		}
	}

	// keep F2 populated when there are no records
	if len(records) == 0 {
		if err := writer.Write([]string{"", "", "", "", "", stamp}); err != nil {
			return fmt.Errorf("failed to write timestamp: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
