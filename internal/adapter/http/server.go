package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/crisis-dashboard/internal/domain"
	"github.com/couchcryptid/crisis-dashboard/internal/pipeline"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Views builds dashboard views from the current record snapshot.
type Views interface {
	ReadinessChecker
	Dashboard(ctx context.Context, q domain.DashboardQuery) (domain.Dashboard, error)
	Summary(ctx context.Context, q domain.DashboardQuery, help pipeline.HelpStatsSource) (pipeline.Summary, error)
}

// HelpDesk runs the help request workflow.
type HelpDesk interface {
	Submit(ctx context.Context, sub domain.HelpSubmission) (domain.HelpRequest, error)
	List(ctx context.Context, f domain.HelpFilter) ([]domain.HelpRequest, error)
	UpdateStatus(ctx context.Context, id, status string) (domain.HelpRequest, error)
	Stats(ctx context.Context) (domain.HelpStats, error)
}

// Authenticator checks first-responder credentials.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (domain.ResponderCredential, error)
}

// Options tune the API surface.
type Options struct {
	// HelpRateLimit is the sustained help submissions per second allowed
	// from one client address. Zero disables throttling.
	HelpRateLimit float64
	HelpRateBurst int
}

// Server exposes the dashboard API alongside health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	views      Views
	help       HelpDesk
	auth       Authenticator
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api routes.
func NewServer(addr string, views Views, help HelpDesk, auth Authenticator, opts Options, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		views:  views,
		help:   help,
		auth:   auth,
		logger: logger,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(views))
	r.Handle("/metrics", promhttp.Handler())

	throttle := newClientLimiter(opts.HelpRateLimit, opts.HelpRateBurst)

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/map", s.handleMap)
		r.Get("/top", s.handleTop)
		r.Get("/trends", s.handleTrends)
		r.Get("/breakdown", s.handleBreakdown)
		r.Get("/severity", s.handleSeverity)
		r.Get("/kpis", s.handleKPIs)

		r.Route("/help-requests", func(r chi.Router) {
			r.With(throttle.middleware).Post("/", s.handleSubmitHelp)
			r.Get("/", s.handleListHelp)
			r.Get("/stats", s.handleHelpStats)
			r.Patch("/{id}", s.handleUpdateHelp)
		})

		r.Post("/responders/login", s.handleLogin)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Debug("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
