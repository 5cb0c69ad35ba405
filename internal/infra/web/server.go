package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-storefront-bot/internal/usecase"
)

// Server exposes operational endpoints: liveness, readiness, Prometheus
// metrics and a small read-only stats view.
type Server struct {
	statsUC usecase.StatsUseCase
	ready   func(ctx context.Context) error
	log     *zerolog.Logger

	httpSrv *http.Server
}

func NewServer(port int, statsUC usecase.StatsUseCase, ready func(ctx context.Context) error, logger *zerolog.Logger) *Server {
	s := &Server{statsUC: statsUC, ready: ready, log: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/stats", s.handleStats)
	r.Handle("/metrics", promhttp.Handler())

	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpSrv.Addr).Msg("ops server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	totals, err := s.statsUC.Totals(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("stats endpoint failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"users":             totals.Users,
		"pending_payments":  totals.PendingPayments,
		"confirmed_count":   totals.ConfirmedCount,
		"confirmed_revenue": totals.ConfirmedRevenue,
		"uptime_seconds":    int64(totals.Uptime.Seconds()),
	})
}
