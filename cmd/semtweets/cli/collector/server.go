// Package collector provides the HTTP listener that appends incoming tweets
// to the store and runs the clustering pipeline on demand.
package collector

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/semtweets/cli/cmd/semtweets/cli/config"
	"github.com/semtweets/cli/cmd/semtweets/cli/db"
	"go.uber.org/zap"
)

// Source tags tweets stored by the collector.
const Source = "collector"

// Server is the HTTP collector.
type Server struct {
	db       *sql.DB
	ingester *db.Ingester
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server

	// runMu serializes pipeline runs; each one holds the whole corpus in memory.
	runMu sync.Mutex
}

// NewServer creates a server backed by the given store.
func NewServer(d *sql.DB, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		db:       d,
		ingester: db.NewIngester(d, Source),
		config:   cfg,
		logger:   logger,
	}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Post("/api/v1/tweets", s.handleIngest)
	r.Get("/api/v1/tweets/count", s.handleCount)
	r.Post("/api/v1/clusters", s.handleCluster)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Start listens on the configured address and blocks until the server stops.
// ready, when non-nil, receives the bound address once the listener is open.
func (s *Server) Start(ready chan<- string) error {
	ln, err := net.Listen("tcp", s.config.Collector.Addr)
	if err != nil {
		return err
	}
	s.server = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting collector", zap.String("addr", ln.Addr().String()))
	if ready != nil {
		ready <- ln.Addr().String()
	}
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
