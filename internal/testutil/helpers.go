package testutil

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

// CreateWorkbook builds an in-memory xlsx whose first sheet holds the
// given rows starting at A1
func CreateWorkbook(t *testing.T, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("Failed to address row %d: %v", i+1, err)
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow("Sheet1", cell, &values); err != nil {
			t.Fatalf("Failed to write row %d: %v", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Failed to serialize workbook: %v", err)
	}
	return buf.Bytes()
}

// CreateQuestionWorkbook builds a workbook with one question per row in column A
func CreateQuestionWorkbook(t *testing.T, questions ...string) []byte {
	t.Helper()

	rows := make([][]string, len(questions))
	for i, q := range questions {
		rows[i] = []string{q}
	}
	return CreateWorkbook(t, rows)
}

// OpenWorkbook parses xlsx bytes and returns all rows of the named sheet
func OpenWorkbook(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("Failed to read sheet %q: %v", sheet, err)
	}
	return rows
}

// SampleQuestions are the survey questions used across package tests
func SampleQuestions() []string {
	return []string{
		"What is your age?",
		"¿Qué tan satisfecho está con nuestro servicio?",
		"Würden Sie uns weiterempfehlen?",
	}
}
