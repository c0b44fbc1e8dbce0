package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"codeberg.org/snonux/surveytranslate/internal/processor"
	"codeberg.org/snonux/surveytranslate/internal/progress"
	"codeberg.org/snonux/surveytranslate/internal/translation"
)

//go:embed templates/index.html
var templateFS embed.FS

const (
	// DefaultAddr is the listen address used when none is configured
	DefaultAddr = ":8080"

	// DefaultMaxFileSize is the upload limit in bytes
	DefaultMaxFileSize = 2 * 1024 * 1024

	// DefaultMaxQuestions is the per-file question limit
	DefaultMaxQuestions = 1000

	// DefaultPreviewRows is the number of questions /preview returns
	DefaultPreviewRows = 5

	// DefaultHeartbeat is the interval of SSE keep-alive comments
	DefaultHeartbeat = 15 * time.Second

	// multipartSlack covers form boundaries and headers around the file
	multipartSlack = 64 * 1024

	// maxDownloadBody bounds the JSON posted to /download
	maxDownloadBody = 32 * 1024 * 1024

	shutdownTimeout = 10 * time.Second
)

// Config holds the HTTP server settings
type Config struct {
	Addr         string
	MaxFileSize  int64
	MaxQuestions int
	PreviewRows  int
	APITimeout   time.Duration
	Heartbeat    time.Duration
}

// DefaultConfig returns the default server settings
func DefaultConfig() Config {
	return Config{
		Addr:         DefaultAddr,
		MaxFileSize:  DefaultMaxFileSize,
		MaxQuestions: DefaultMaxQuestions,
		PreviewRows:  DefaultPreviewRows,
		APITimeout:   processor.DefaultTimeout,
		Heartbeat:    DefaultHeartbeat,
	}
}

// Server wires the HTTP handlers to the translation pipeline
type Server struct {
	config    Config
	provider  translation.Provider
	processor *processor.Processor
	hub       *progress.Hub
	logger    *slog.Logger
	index     *template.Template
	router    chi.Router
	now       func() time.Time
}

// New creates a server. Zero config values fall back to the defaults.
func New(config Config, provider translation.Provider, hub *progress.Hub, logger *slog.Logger) (*Server, error) {
	defaults := DefaultConfig()
	if config.Addr == "" {
		config.Addr = defaults.Addr
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = defaults.MaxFileSize
	}
	if config.MaxQuestions <= 0 {
		config.MaxQuestions = defaults.MaxQuestions
	}
	if config.PreviewRows <= 0 {
		config.PreviewRows = defaults.PreviewRows
	}
	if config.Heartbeat <= 0 {
		config.Heartbeat = defaults.Heartbeat
	}
	if hub == nil {
		hub = progress.NewHub(0)
	}
	if logger == nil {
		logger = slog.Default()
	}

	index, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:    config,
		provider:  provider,
		processor: processor.NewProcessor(provider, config.APITimeout, logger),
		hub:       hub,
		logger:    logger,
		index:     index,
		now:       time.Now,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Page not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/", s.handleIndex)
	r.Post("/upload", s.handleUpload)
	r.Post("/preview", s.handlePreview)
	r.Post("/download", s.handleDownload)
	r.Get("/progress", s.handleProgressStream)
	r.Get("/progress/status", s.handleProgressStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe listens on the configured address and serves until ctx is
// done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute, // lifted per request for uploads and streams
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String(), "provider", s.provider.Name())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
