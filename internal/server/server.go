// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nguyentantai21042004/carenote/internal/jobs"
	"github.com/nguyentantai21042004/carenote/internal/logger"
	"github.com/nguyentantai21042004/carenote/internal/metrics"
	"github.com/nguyentantai21042004/carenote/internal/model"
	"github.com/nguyentantai21042004/carenote/internal/objstore"
	"github.com/nguyentantai21042004/carenote/internal/poller"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RecentJobs lists the newest cached job records
type RecentJobs interface {
	Recent(ctx context.Context, limit int) ([]model.Metadata, error)
}

type Deps struct {
	Store       objstore.Store
	Coordinator jobs.Coordinator
	Poller      poller.Poller
	// Recent may be nil when no local cache is configured
	Recent   RecentJobs
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   logger.Logger
}

type Options struct {
	Addr         string
	AllowOrigin  string
	UploadURLTTL time.Duration
}

type Server struct {
	server *http.Server
	deps   Deps
	opts   Options
	logger logger.Logger
}

func New(d Deps, opts Options) *Server {
	if opts.UploadURLTTL == 0 {
		opts.UploadURLTTL = 15 * time.Minute
	}
	s := &Server{deps: d, opts: opts, logger: d.Logger}

	s.server = &http.Server{
		Addr:        opts.Addr,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// a poll that wins the delivery lock runs summarization inline
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sign-upload", s.withMetrics("/sign-upload", s.handleSignUpload))
	mux.HandleFunc("POST /finalize", s.withMetrics("/finalize", s.handleFinalize))
	mux.HandleFunc("GET /jobs/{id}", s.withMetrics("/jobs/{id}", s.handlePoll))
	mux.HandleFunc("GET /jobs", s.withMetrics("/jobs", s.handleRecent))
	mux.HandleFunc("GET /health", s.withMetrics("/health", s.handleHealth))
	mux.HandleFunc("GET /{$}", s.withMetrics("/", s.handleHealth))
	if s.deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	return s.withCORS(mux)
}

// Start serves until the listener fails or Stop is called
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info(ctx, "HTTP server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info(ctx, "Stopping HTTP server...")
	return s.server.Shutdown(ctx)
}

// withMetrics records latency and status per route and tags the request with an id
func (s *Server) withMetrics(route string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		ctx := logger.WithRequestID(r.Context(), uuid.NewString())
		handler(ww, r.WithContext(ctx))

		s.deps.Metrics.HTTPRequest(route, ww.statusCode, time.Since(start))
		s.logger.Debug(ctx, "%s %s -> %d (%s)", r.Method, r.URL.Path, ww.statusCode, time.Since(start))
	}
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.opts.AllowOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
