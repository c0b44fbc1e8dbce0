package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"codeberg.org/snonux/surveytranslate/internal/survey"
)

// DefaultUnzipSizeLimit bounds the decompressed size of an uploaded workbook
const DefaultUnzipSizeLimit = 256 << 20

var (
	// ErrUnreadable is returned when the upload cannot be opened as a workbook
	ErrUnreadable = errors.New("unable to read spreadsheet")

	// ErrNoQuestions is returned when the first column holds no text
	ErrNoQuestions = errors.New("no questions found in the Excel file")

	// ErrTooManyQuestions is returned when the row limit is exceeded
	ErrTooManyQuestions = errors.New("too many questions")
)

// ReadOptions configures question extraction
type ReadOptions struct {
	MaxQuestions   int   // 0 means unlimited
	UnzipSizeLimit int64 // 0 means DefaultUnzipSizeLimit
}

// LimitError reports the configured maximum when ErrTooManyQuestions is hit
type LimitError struct {
	Max int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("Maximum %d questions allowed per file", e.Max)
}

// Unwrap lets errors.Is match ErrTooManyQuestions
func (e *LimitError) Unwrap() error {
	return ErrTooManyQuestions
}

// ReadQuestions extracts the questions from the first column of the first
// sheet. There is no header row; empty cells are skipped and each question
// keeps the row number it was found on.
func ReadQuestions(r io.Reader, opts ReadOptions) ([]survey.Question, error) {
	limit := opts.UnzipSizeLimit
	if limit <= 0 {
		limit = DefaultUnzipSizeLimit
	}

	f, err := excelize.OpenReader(r, excelize.Options{UnzipSizeLimit: limit})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnreadable)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var questions []survey.Question
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		text := strings.TrimSpace(row[0])
		if text == "" {
			continue
		}

		questions = append(questions, survey.Question{Row: i + 1, Text: text})
		if opts.MaxQuestions > 0 && len(questions) > opts.MaxQuestions {
			return nil, &LimitError{Max: opts.MaxQuestions}
		}
	}

	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	return questions, nil
}

// ReadQuestionsBytes is ReadQuestions over an in-memory upload
func ReadQuestionsBytes(data []byte, opts ReadOptions) ([]survey.Question, error) {
	return ReadQuestions(bytes.NewReader(data), opts)
}

// Preview returns at most n leading questions
func Preview(questions []survey.Question, n int) []survey.Question {
	if n < 0 || n >= len(questions) {
		return questions
	}
	return questions[:n]
}
