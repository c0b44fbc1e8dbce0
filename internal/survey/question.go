package survey

import (
	"fmt"
)

// FailedLanguage is reported as detected language for rows whose API call failed
const FailedLanguage = "Error"

// Question is a single survey question read from an uploaded spreadsheet
type Question struct {
	Row  int    `json:"row"`  // 1-based row in the source sheet
	Text string `json:"text"` // Cell text, trimmed
}

// Record is the translation result for one question
type Record struct {
	QuestionNumber     int    `json:"question_number"`
	RowNumber          int    `json:"row_number,omitempty"`
	OriginalQuestion   string `json:"original_question"`
	DetectedLanguage   string `json:"detected_language"`
	Confidence         int    `json:"confidence"`
	EnglishTranslation string `json:"english_translation"`
	Failed             bool   `json:"failed,omitempty"`
	Error              string `json:"error,omitempty"`
}

// Translation is what the external API gave back for one question
type Translation struct {
	Language   string
	Confidence int // 0-100
	English    string
}

// NewRecord builds a populated record for the question at the given
// processing position (1-based)
func NewRecord(q Question, number int, t Translation) Record {
	return Record{
		QuestionNumber:     number,
		RowNumber:          q.Row,
		OriginalQuestion:   q.Text,
		DetectedLanguage:   t.Language,
		Confidence:         t.Confidence,
		EnglishTranslation: t.English,
	}
}

// FailedRecord builds a record carrying the failure marker for a row whose
// API call did not succeed
func FailedRecord(q Question, number int, err error) Record {
	return Record{
		QuestionNumber:     number,
		RowNumber:          q.Row,
		OriginalQuestion:   q.Text,
		DetectedLanguage:   FailedLanguage,
		Confidence:         0,
		EnglishTranslation: fmt.Sprintf("Translation error: %v", err),
		Failed:             true,
		Error:              err.Error(),
	}
}

// Summary counts the outcome of a processed batch
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// Summarize counts succeeded and failed records
func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		if r.Failed {
			s.Failed++
		} else {
			s.Succeeded++
		}
	}
	return s
}
