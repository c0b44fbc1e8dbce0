package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/snonux/surveytranslate/internal"
	"codeberg.org/snonux/surveytranslate/internal/progress"
	"codeberg.org/snonux/surveytranslate/internal/spreadsheet"
	"codeberg.org/snonux/surveytranslate/internal/survey"
	"codeberg.org/snonux/surveytranslate/internal/upload"
)

// UploadResponse is returned by POST /upload
type UploadResponse struct {
	Success        bool            `json:"success"`
	RunID          string          `json:"run_id"`
	Results        []survey.Record `json:"results"`
	TotalQuestions int             `json:"total_questions"`
	ProcessedAt    string          `json:"processed_at"`
}

// PreviewResponse is returned by POST /preview
type PreviewResponse struct {
	Preview        []survey.Question `json:"preview"`
	TotalQuestions int               `json:"total_questions"`
}

// DownloadRequest is the body of POST /download
type DownloadRequest struct {
	Results []survey.Record `json:"results"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Provider string `json:"provider"`
	Circuit  string `json:"circuit,omitempty"`
}

type indexData struct {
	Version      string
	MaxFileSize  string
	MaxQuestions int
	Extensions   string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := s.index.Execute(&buf, indexData{
		Version:      internal.Version,
		MaxFileSize:  upload.HumanSize(s.config.MaxFileSize),
		MaxQuestions: s.config.MaxQuestions,
		Extensions:   ".xlsx,.xlsm,.xltx,.xltm",
	})
	if err != nil {
		s.logger.Error("failed to render index", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// readQuestions validates the multipart upload and extracts its questions.
// No external API is called here.
func (s *Server) readQuestions(w http.ResponseWriter, r *http.Request) ([]survey.Question, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxFileSize+multipartSlack)

	if err := r.ParseMultipartForm(s.config.MaxFileSize + multipartSlack); err != nil {
		if isBodyTooLarge(err) {
			return nil, upload.ErrTooLarge
		}
		return nil, fmt.Errorf("%w: %v", upload.ErrNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		// browsers send an empty filename when nothing was picked, which the
		// multipart parser stores as a plain value
		if _, ok := r.MultipartForm.Value["file"]; ok {
			return nil, upload.ErrNoFileSelected
		}
		return nil, fmt.Errorf("%w: %v", upload.ErrNoFile, err)
	}
	defer file.Close()

	limits := upload.Limits{MaxFileSize: s.config.MaxFileSize}
	if err := upload.Validate(header.Filename, header.Size, limits); err != nil {
		return nil, err
	}

	data, err := upload.Sniff(file, limits)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("upload received",
		"file", internal.SanitizeFilename(header.Filename), "bytes", len(data))

	return spreadsheet.ReadQuestionsBytes(data, spreadsheet.ReadOptions{
		MaxQuestions: s.config.MaxQuestions,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// a large file can take far longer than the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	reporter, err := s.hub.Begin(r.URL.Query().Get("run_id"))
	if err != nil {
		status, msg := s.classify(err)
		writeError(w, status, msg)
		return
	}
	reporter.Reading()

	questions, err := s.readQuestions(w, r)
	if err != nil {
		status, msg := s.classify(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("upload failed", "run_id", reporter.RunID(), "error", err)
		} else {
			s.logger.Info("upload rejected", "run_id", reporter.RunID(), "error", err)
		}
		reporter.Failed(msg)
		writeError(w, status, msg)
		return
	}

	records, err := s.processor.ProcessQuestions(r.Context(), questions, reporter)
	if err != nil {
		reporter.Failed("Translation cancelled")
		s.logger.Info("upload aborted", "run_id", reporter.RunID(), "processed", len(records), "error", err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success:        true,
		RunID:          reporter.RunID(),
		Results:        records,
		TotalQuestions: len(questions),
		ProcessedAt:    s.now().Format(time.RFC3339),
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	questions, err := s.readQuestions(w, r)
	if err != nil {
		status, msg := s.classify(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, PreviewResponse{
		Preview:        spreadsheet.Preview(questions, s.config.PreviewRows),
		TotalQuestions: len(questions),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDownloadBody)

	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	now := s.now()
	format := r.URL.Query().Get("format")

	var (
		buf         bytes.Buffer
		err         error
		contentType string
		ext         string
	)
	switch format {
	case "", "xlsx":
		err = spreadsheet.WriteResults(&buf, req.Results, now)
		contentType, ext = spreadsheet.XLSXContentType, "xlsx"
	case "csv":
		err = spreadsheet.WriteCSV(&buf, req.Results, now)
		contentType, ext = spreadsheet.CSVContentType, "csv"
	default:
		writeError(w, http.StatusBadRequest, "Unsupported format. Use xlsx or csv")
		return
	}
	if err != nil {
		s.logger.Error("failed to build download", "format", ext, "error", err)
		writeError(w, http.StatusInternalServerError, "Download error: "+err.Error())
		return
	}

	name := spreadsheet.ResultsFileName(now, ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "healthy",
		Version:  internal.Version,
		Provider: s.provider.Name(),
	}
	if b, ok := s.provider.(interface{ State() string }); ok {
		resp.Circuit = b.State()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProgressStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Snapshot(r.URL.Query().Get("run_id")))
}

// handleProgressStream sends the run's snapshots as server-sent events
// until the run ends or the client goes away
func (s *Server) handleProgressStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	updates, cancel := s.hub.Subscribe(r.URL.Query().Get("run_id"))
	defer cancel()

	heartbeat := time.NewTicker(s.config.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, snap); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
			if snap.Status.Terminal() {
				return
			}

		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": heartbeat\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w io.Writer, snap progress.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
