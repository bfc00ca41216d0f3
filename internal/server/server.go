// Package server routes HTTP requests to the monitor operations.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hazz-dev/webcheck/internal/dashboard"
	"github.com/hazz-dev/webcheck/internal/logging"
	"github.com/hazz-dev/webcheck/internal/registry"
	"github.com/hazz-dev/webcheck/internal/telemetry"
)

// Service is the set of operations the server dispatches to.
type Service interface {
	Snapshot() registry.Snapshot
	Add(ctx context.Context, url string) error
	Remove(ctx context.Context, url string) bool
	UpdateConfig(ctx context.Context, checkInterval, refreshInterval int) registry.AppConfig
}

// PageRenderer writes the dashboard page.
type PageRenderer interface {
	Render(w io.Writer, page dashboard.Page) error
}

// MetricsSource reports collected metrics.
type MetricsSource interface {
	Summary(ctx context.Context) ([]telemetry.Point, error)
}

// Server holds the chi router and its dependencies.
type Server struct {
	svc     Service
	pages   PageRenderer
	metrics MetricsSource
	router  chi.Router
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a new Server and registers all routes. metrics may be nil,
// in which case /api/metrics answers 404.
func New(svc Service, pages PageRenderer, metrics MetricsSource, logger *zap.Logger) *Server {
	s := &Server{
		svc:     svc,
		pages:   pages,
		metrics: metrics,
		router:  chi.NewRouter(),
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Post("/add", s.handleAddForm)
	r.Post("/remove", s.handleRemoveForm)
	r.Post("/config", s.handleConfigForm)
	r.Handle("/static/*", http.StripPrefix("/static", dashboard.Static()))

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.AllowAll().Handler)

		r.Get("/health", s.handleHealth)
		r.Get("/resources", s.handleListResources)
		r.Post("/resources", s.handleAddResource)
		r.Delete("/resources", s.handleRemoveResource)
		r.Put("/config", s.handleUpdateConfig)
		r.Get("/metrics", s.handleMetrics)
	})
}

// --- Response helpers ---

type envelope struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: msg})
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
