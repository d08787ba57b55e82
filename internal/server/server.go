// Package server exposes the planner over a JSON HTTP API and runs the
// scheduled weekly rollover.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/planner"
)

const shutdownTimeout = 10 * time.Second

type Config struct {
	Planner *planner.Service
	Listen  string
	// RolloverCron is a standard five-field cron expression evaluated in the
	// planner's location. Empty disables the scheduled rollover.
	RolloverCron string
}

// Server owns the router, the rollover schedule and the lock that serializes
// access to the planner.
type Server struct {
	cfg     Config
	mu      sync.Mutex
	planner *planner.Service
	metrics *Metrics
	router  chi.Router
	cron    *cron.Cron
	log     *log.Logger
}

func New(cfg Config) (*Server, error) {
	if cfg.Planner == nil {
		return nil, errors.New("server: planner is required")
	}
	if cfg.Listen == "" {
		cfg.Listen = constants.DefaultListenAddr
	}

	s := &Server{
		cfg:     cfg,
		planner: cfg.Planner,
		metrics: NewMetrics(),
		log:     logger.Component("http"),
		cron:    cron.New(cron.WithLocation(cfg.Planner.Classifier.Location())),
	}
	if cfg.RolloverCron != "" {
		if _, err := s.cron.AddFunc(cfg.RolloverCron, s.scheduledRollover); err != nil {
			return nil, fmt.Errorf("invalid rollover schedule %q: %w", cfg.RolloverCron, err)
		}
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/week", s.handleWeek)
		r.Post("/rollover", s.handleRollover)

		r.Route("/sequences", func(r chi.Router) {
			r.Get("/", s.handleListSequences)
			r.Post("/", s.handleCreateSequence)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSequence)
				r.Patch("/", s.handleUpdateSequence)
				r.Delete("/", s.handleDeleteSequence)
				r.Post("/toggle", s.handleToggle)
				r.Post("/pause", s.sequenceAction(s.planner.Pause))
				r.Post("/resume", s.sequenceAction(s.planner.Resume))
				r.Post("/clear", s.sequenceAction(s.planner.Clear))
				r.Post("/restore", s.sequenceAction(s.planner.Restore))
			})
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handleCreateEvent)
			r.Delete("/{id}", s.handleDeleteEvent)
		})
	})
	return r
}

// observe logs each request and records its count and latency under the
// matched route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		s.metrics.HTTPRequests.WithLabelValues(r.Method, route, fmt.Sprint(status)).Inc()
		s.metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		s.log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
			"requestID", middleware.GetReqID(r.Context()),
		)
	})
}

// scheduledRollover is the cron job body.
func (s *Server) scheduledRollover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.planner.Rollover(s.planner.Today())
	s.recordRollover("schedule", len(res.Kept), len(res.Archived))
	s.log.Info("Scheduled rollover", "kept", len(res.Kept), "archived", len(res.Archived))
}

func (s *Server) recordRollover(trigger string, kept, archived int) {
	s.metrics.Rollovers.WithLabelValues(trigger).Inc()
	s.metrics.RolloverResult.WithLabelValues("kept").Set(float64(kept))
	s.metrics.RolloverResult.WithLabelValues("archived").Set(float64(archived))
}

// Run serves until ctx is canceled, then drains in-flight requests and
// waits for a running rollover to finish.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.cron.Start()
	defer func() {
		<-s.cron.Stop().Done()
	}()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}
