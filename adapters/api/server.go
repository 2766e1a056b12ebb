// Package api serves ensemble vectors and statistics over a JSON HTTP API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"enstats/app"
	"enstats/domain/frequency"
	"enstats/internal"
)

// Server is the HTTP front of a TimeSeriesService.
type Server struct {
	service          *app.TimeSeriesService
	defaultFrequency frequency.Frequency
	logger           *internal.Logger
	metrics          *Metrics
	router           *chi.Mux
}

// NewServer creates the server and registers its routes. Requests that do
// not name a frequency are answered at defaultFrequency.
func NewServer(service *app.TimeSeriesService, defaultFrequency frequency.Frequency, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		service:          service,
		defaultFrequency: defaultFrequency,
		logger:           logger,
		metrics:          NewMetrics(),
		router:           chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(s.metrics.Middleware)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/ensembles", s.handleEnsembles)
		r.Get("/ensembles/{name}/vectors", s.handleEnsembleVectors)
		r.Get("/ensembles/{name}/dates", s.handleEnsembleDates)
		r.Get("/expressions", s.handleExpressions)
		r.Post("/vectors", s.handleVectors)
		r.Post("/statistics", s.handleStatistics)
	})
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Metrics exposes the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Zerolog().Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
