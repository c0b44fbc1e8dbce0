package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"codeberg.org/snonux/surveytranslate/internal/progress"
	"codeberg.org/snonux/surveytranslate/internal/spreadsheet"
	"codeberg.org/snonux/surveytranslate/internal/upload"
)

// errorResponse is the body of every error reply
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// invalidTypeMessage lists the accepted extensions
func invalidTypeMessage() string {
	return "Invalid file type. Please upload an Excel file (.xlsx, .xlsm, .xltx or .xltm)"
}

// classify maps an upload or processing error to a status and the message
// shown to the user
func (s *Server) classify(err error) (int, string) {
	var limitErr *spreadsheet.LimitError

	switch {
	case errors.Is(err, upload.ErrNoFile):
		return http.StatusBadRequest, "No file uploaded"
	case errors.Is(err, upload.ErrNoFileSelected):
		return http.StatusBadRequest, "No file selected"
	case errors.Is(err, upload.ErrInvalidType):
		return http.StatusBadRequest, invalidTypeMessage()
	case errors.Is(err, upload.ErrTooLarge):
		return http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large. Maximum size is %s.", upload.HumanSize(s.config.MaxFileSize))
	case errors.As(err, &limitErr):
		return http.StatusBadRequest, limitErr.Error()
	case errors.Is(err, spreadsheet.ErrNoQuestions):
		return http.StatusBadRequest, "No questions found in the Excel file"
	case errors.Is(err, spreadsheet.ErrUnreadable):
		return http.StatusBadRequest, "File processing error: the file could not be read as an Excel workbook"
	case errors.Is(err, progress.ErrRunInProgress):
		return http.StatusConflict, "A translation with this run id is already in progress"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// isBodyTooLarge detects the error http.MaxBytesReader produces, also when
// the multipart parser wrapped it without %w
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
