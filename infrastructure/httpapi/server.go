// Package httpapi exposes the analysis service over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-panel/internal/domain"
)

// Route paths.
const (
	PathProcessFeedback   = "/feedback_processor/process_feedback"
	PathSubmitFeedback    = "/real_time_feedback/submit_feedback"
	PathGenerateSummary   = "/report/generate_summary"
	PathSummarizeFeedback = "/summarize_feedback"
	PathHealth            = "/healthz"
	PathMetrics           = "/metrics"
)

// DefaultMaxBodyBytes caps request bodies when Config leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

// Analyzer is the application surface the handlers need.
type Analyzer interface {
	Analyze(ctx context.Context, subject domain.SubjectMetadata, records []domain.JudgeRecord) (*domain.AnalysisResult, error)
	QuickAnalyze(ctx context.Context, feedback []string) (string, error)
	Summarize(ctx context.Context, feedback domain.CategoryFeedback) (string, error)
	Model() string
}

// Config holds the HTTP server configuration.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	// CORSOrigins enables CORS for the listed origins.
	CORSOrigins []string
	Logger      *slog.Logger
	// Metrics is served at /metrics when set.
	Metrics http.Handler
	// TracerProvider traces every request. The global provider is used
	// when nil.
	TracerProvider trace.TracerProvider
}

// Server wraps the HTTP server with its handlers.
type Server struct {
	analyzer        Analyzer
	logger          *slog.Logger
	maxBodyBytes    int64
	shutdownTimeout time.Duration
	srv             *http.Server
}

// New creates a server for analyzer.
func New(analyzer Analyzer, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}

	s := &Server{
		analyzer:        analyzer,
		logger:          cfg.Logger,
		maxBodyBytes:    cfg.MaxBodyBytes,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(cfg.Logger.Handler(), slog.LevelError),
	}
	return s
}

func (s *Server) routes(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, middleware.RealIP, requestLogger(s.logger), middleware.Recoverer)

	r.Post(PathProcessFeedback, s.processFeedback)
	r.Post(PathSubmitFeedback, s.submitFeedback)
	r.Post(PathGenerateSummary, s.generateSummary)
	r.Post(PathSummarizeFeedback, s.summarizeFeedback)
	r.Get(PathHealth, s.health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, PathMetrics, cfg.Metrics)
	}

	opts := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	var handler http.Handler = otelhttp.NewHandler(r, "panel", opts...)

	if len(cfg.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", RequestIDHeader},
			ExposedHeaders: []string{RequestIDHeader},
		}).Handler(handler)
	}
	return handler
}

// Handler returns the root handler, useful for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("HTTP server starting", "address", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
