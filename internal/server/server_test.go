package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/surveytranslate/internal/progress"
	"codeberg.org/snonux/surveytranslate/internal/spreadsheet"
	"codeberg.org/snonux/surveytranslate/internal/survey"
	"codeberg.org/snonux/surveytranslate/internal/testutil"
	"codeberg.org/snonux/surveytranslate/internal/translation"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, provider translation.Provider, config Config) (*Server, *progress.Hub) {
	t.Helper()

	hub := progress.NewHub(time.Minute)
	s, err := New(config, provider, hub, quietLogger())
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC) }
	return s, hub
}

// multipartBody builds a form with a single "file" part
func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func postFile(t *testing.T, h http.Handler, url, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, url, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

func TestUpload_TranslatesInOrder(t *testing.T) {
	mock := &testutil.MockTranslator{
		Translations: map[string]survey.Translation{
			"¿Qué tan satisfecho está con nuestro servicio?": {Language: "Spanish", Confidence: 98, English: "How satisfied are you with our service?"},
		},
	}
	s, hub := newTestServer(t, mock, Config{})

	data := testutil.CreateQuestionWorkbook(t, testutil.SampleQuestions()...)
	rec := postFile(t, s.Handler(), "/upload?run_id=run-42", "survey.xlsx", data)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.True(t, resp.Success)
	assert.Equal(t, "run-42", resp.RunID)
	assert.Equal(t, 3, resp.TotalQuestions)
	assert.Equal(t, "2024-05-17T09:30:00Z", resp.ProcessedAt)
	require.Len(t, resp.Results, 3)
	for i, q := range testutil.SampleQuestions() {
		assert.Equal(t, q, resp.Results[i].OriginalQuestion)
		assert.Equal(t, i+1, resp.Results[i].QuestionNumber)
	}
	assert.Equal(t, "Spanish", resp.Results[1].DetectedLanguage)
	assert.Equal(t, 98, resp.Results[1].Confidence)

	snap := hub.Snapshot("run-42")
	assert.Equal(t, progress.StatusCompleted, snap.Status)
	assert.Equal(t, 3, snap.CurrentQuestion)
}

func TestUpload_FailedRowMarked(t *testing.T) {
	mock := &testutil.MockTranslator{
		Errors: map[string]error{"second": translation.ErrMalformedResponse},
	}
	s, _ := newTestServer(t, mock, Config{})

	data := testutil.CreateQuestionWorkbook(t, "first", "second", "third")
	rec := postFile(t, s.Handler(), "/upload", "survey.xlsx", data)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Results, 3)

	assert.True(t, resp.Results[1].Failed)
	assert.Equal(t, "Error", resp.Results[1].DetectedLanguage)
	assert.Equal(t, 0, resp.Results[1].Confidence)
	assert.True(t, strings.HasPrefix(resp.Results[1].EnglishTranslation, "Translation error: "))
	assert.False(t, resp.Results[2].Failed)
	assert.NotEmpty(t, resp.RunID)
}

func TestUpload_Rejections(t *testing.T) {
	valid := testutil.CreateQuestionWorkbook(t, "Q1")

	tests := []struct {
		name     string
		config   Config
		filename string
		content  []byte
		status   int
		message  string
	}{
		{
			name:     "wrong extension",
			filename: "survey.txt",
			content:  []byte("hello"),
			status:   http.StatusBadRequest,
			message:  invalidTypeMessage(),
		},
		{
			name:     "legacy xls",
			filename: "survey.xls",
			content:  []byte{0xD0, 0xCF, 0x11, 0xE0},
			status:   http.StatusBadRequest,
			message:  invalidTypeMessage(),
		},
		{
			name:     "not a zip despite extension",
			filename: "survey.xlsx",
			content:  []byte("plain text pretending"),
			status:   http.StatusBadRequest,
			message:  invalidTypeMessage(),
		},
		{
			name:     "oversize",
			config:   Config{MaxFileSize: 1024},
			filename: "big.xlsx",
			content:  bytes.Repeat([]byte("x"), 200*1024),
			status:   http.StatusRequestEntityTooLarge,
			message:  "File too large. Maximum size is 1KB.",
		},
		{
			name:     "part larger than limit within slack",
			config:   Config{MaxFileSize: 1024},
			filename: "big.xlsx",
			content:  append([]byte("PK\x03\x04"), bytes.Repeat([]byte("x"), 4096)...),
			status:   http.StatusRequestEntityTooLarge,
			message:  "File too large. Maximum size is 1KB.",
		},
		{
			name:     "too many questions",
			config:   Config{MaxQuestions: 2},
			filename: "survey.xlsx",
			content:  testutil.CreateQuestionWorkbook(t, "a", "b", "c"),
			status:   http.StatusBadRequest,
			message:  "Maximum 2 questions allowed per file",
		},
		{
			name:     "no questions",
			filename: "survey.xlsx",
			content:  testutil.CreateWorkbook(t, [][]string{{""}, {"", "column B only"}}),
			status:   http.StatusBadRequest,
			message:  "No questions found in the Excel file",
		},
		{
			name:     "empty filename",
			filename: "",
			content:  valid,
			status:   http.StatusBadRequest,
			message:  "No file selected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &testutil.MockTranslator{}
			s, _ := newTestServer(t, mock, tt.config)

			rec := postFile(t, s.Handler(), "/upload", tt.filename, tt.content)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeError(t, rec))
			assert.Equal(t, 0, mock.CallCount(), "no API call may happen for a rejected upload")
		})
	}
}

func TestUpload_NoFilePart(t *testing.T) {
	s, hub := newTestServer(t, &testutil.MockTranslator{}, Config{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload?run_id=r1", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decodeError(t, rec))

	snap := hub.Snapshot("r1")
	assert.Equal(t, progress.StatusError, snap.Status)
	assert.Equal(t, "No file uploaded", snap.Message)
}

func TestUpload_NotMultipart(t *testing.T) {
	s, _ := newTestServer(t, &testutil.MockTranslator{}, Config{})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decodeError(t, rec))
}

func TestUpload_RunInProgress(t *testing.T) {
	s, hub := newTestServer(t, &testutil.MockTranslator{}, Config{})

	r, err := hub.Begin("busy")
	require.NoError(t, err)
	r.Processing(10)

	data := testutil.CreateQuestionWorkbook(t, "Q1")
	rec := postFile(t, s.Handler(), "/upload?run_id=busy", "survey.xlsx", data)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPreview(t *testing.T) {
	mock := &testutil.MockTranslator{}
	s, _ := newTestServer(t, mock, Config{PreviewRows: 2})

	data := testutil.CreateWorkbook(t, [][]string{{"Q1"}, {""}, {"Q2"}, {"Q3"}})
	rec := postFile(t, s.Handler(), "/preview", "survey.xlsx", data)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PreviewResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, 3, resp.TotalQuestions)
	require.Len(t, resp.Preview, 2)
	assert.Equal(t, "Q1", resp.Preview[0].Text)
	assert.Equal(t, 3, resp.Preview[1].Row)
	assert.Equal(t, 0, mock.CallCount())
}

func TestDownload(t *testing.T) {
	s, _ := newTestServer(t, &testutil.MockTranslator{}, Config{})

	body := `{"results":[{"question_number":1,"original_question":"Hola","detected_language":"Spanish","confidence":99,"english_translation":"Hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/download", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, spreadsheet.XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="survey_translation_results_20240517_093000.xlsx"`, rec.Header().Get("Content-Disposition"))

	rows := testutil.OpenWorkbook(t, rec.Body.Bytes(), spreadsheet.SheetName)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Hola", "Spanish", "99", "Hello", "", "2024-05-17 09:30:00"}, rows[1])
}

func TestDownload_Empty(t *testing.T) {
	s, _ := newTestServer(t, &testutil.MockTranslator{}, Config{})

	for _, body := range []string{`{"results":[]}`, `{}`, ``} {
		req := httptest.NewRequest(http.MethodPost, "/download", strings.NewReader(body))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, "body %q", body)
		rows := testutil.OpenWorkbook(t, rec.Body.Bytes(), spreadsheet.SheetName)
		require.NotEmpty(t, rows)
		assert.Equal(t, spreadsheet.Headers, rows[0][:4])
		assert.Equal(t, "Processed At", rows[0][5])
	}
}

func TestDownload_CSV(t *testing.T) {
	s, _ := newTestServer(t, &testutil.MockTranslator{}, Config{})

	body := `{"results":[{"original_question":"Hola","detected_language":"Spanish","confidence":99,"english_translation":"Hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/download?format=csv", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, spreadsheet.CSVContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Original Question,Detected Language,Confidence (%),English Translation,,Processed At\n"))
}

func TestDownload_BadRequests(t *testing.T) {
	s, _ := newTestServer(t, &testutil.MockTranslator{}, Config{})

	req := httptest.NewRequest(http.MethodPost, "/download", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeError(t, rec))

	req = httptest.NewRequest(http.MethodPost, "/download?format=pdf", strings.NewReader("{}"))
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	provider := translation.NewBreaker(translation.NewTestModeProvider(), 3, time.Minute, quietLogger())
	s, _ := newTestServer(t, provider, Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Provider)
	assert.Equal(t, "closed", resp.Circuit)
	assert.NotEmpty(t, resp.Version)
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t, &testutil.MockTranslator{}, Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Survey Question Translator")
	assert.Contains(t, rec.Body.String(), "Maximum file size 2MB")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, &testutil.MockTranslator{}, Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Page not found", decodeError(t, rec))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/upload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRecoverPanics(t *testing.T) {
	s, _ := newTestServer(t, &testutil.MockTranslator{}, Config{})

	h := s.recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeError(t, rec))
}

func TestProgressStatus(t *testing.T) {
	s, hub := newTestServer(t, &testutil.MockTranslator{}, Config{})
	r, err := hub.Begin("poll")
	require.NoError(t, err)
	r.Processing(4)
	r.Question(2, 4)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress/status?run_id=poll", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap progress.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, progress.StatusProcessingQuestion, snap.Status)
	assert.Equal(t, 2, snap.CurrentQuestion)
	assert.Equal(t, 4, snap.TotalQuestions)
}

func TestProgressStream(t *testing.T) {
	mock := &testutil.MockTranslator{
		Delays: map[string]time.Duration{"Q1": 50 * time.Millisecond},
	}
	s, _ := newTestServer(t, mock, Config{Heartbeat: 10 * time.Millisecond})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/progress?run_id=stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, contentType := multipartBody(t, "survey.xlsx", testutil.CreateQuestionWorkbook(t, "Q1", "Q2"))
	done := make(chan struct{})
	go func() {
		defer close(done)
		upResp, err := http.Post(ts.URL+"/upload?run_id=stream", contentType, body)
		if err == nil {
			upResp.Body.Close()
		}
	}()

	var (
		snaps      []progress.Snapshot
		heartbeats int
	)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ": heartbeat") {
			heartbeats++
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var snap progress.Snapshot
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap))
		snaps = append(snaps, snap)
	}
	<-done

	require.NotEmpty(t, snaps)
	last := snaps[len(snaps)-1]
	assert.Equal(t, progress.StatusCompleted, last.Status)
	assert.Equal(t, 2, last.CurrentQuestion)

	prev := 0
	for _, snap := range snaps {
		assert.GreaterOrEqual(t, snap.CurrentQuestion, prev)
		prev = snap.CurrentQuestion
	}
	assert.Greater(t, heartbeats, 0)
}

func TestServe_Shutdown(t *testing.T) {
	s, _ := newTestServer(t, translation.NewTestModeProvider(), Config{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.False(t, err != nil && !errors.Is(err, http.ErrServerClosed), "unexpected error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
