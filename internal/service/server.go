package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/piwi3910/cutoptimizer/internal/cutlog"
)

// Server exposes a Service's health and stats and the process's Prometheus
// metrics over HTTP, and wraps http.Server with the
// same graceful-shutdown shape used elsewhere in the stack.
type Server struct {
	svc             *Service
	httpServer      *http.Server
	shutdownTimeout time.Duration
	log             zerolog.Logger
}

// NewServer builds a Server bound to addr. Routes are registered against
// a plain http.ServeMux: the calculation API's own transport is out of
// scope, so this only needs to carry health, stats and metrics.
func NewServer(svc *Service, addr string) *Server {
	mux := http.NewServeMux()
	s := &Server{
		svc:             svc,
		shutdownTimeout: 10 * time.Second,
		log:             cutlog.ForComponent("server"),
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:           addr,
		Handler:        mux,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats, reports := s.svc.GetStats()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Stats   interface{} `json:"stats"`
		Reports interface{} `json:"watchdogReports"`
	}{stats, reports})
}

// Run starts the HTTP listener and blocks until ctx is cancelled, then
// shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		s.log.Info().Msg("shutdown signal received")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error().Err(err).Msg("server forced to shutdown")
		return err
	}
	s.log.Info().Msg("server stopped gracefully")
	return nil
}
