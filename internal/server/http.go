package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"notifyadapter/internal/history"
	"notifyadapter/internal/state"
)

// HTTP serves the health-probe endpoints from the latest published
// snapshot. Every endpoint returns the full snapshot body; only the
// status code differs by which dimension is probed.
type HTTP struct {
	port     int
	pub      *state.Publisher
	registry *prometheus.Registry // nil disables /metrics
	store    *history.Store       // nil disables /events
	log      zerolog.Logger
}

func NewHTTP(port int, pub *state.Publisher, registry *prometheus.Registry, store *history.Store, log zerolog.Logger) *HTTP {
	return &HTTP{
		port:     port,
		pub:      pub,
		registry: registry,
		store:    store,
		log:      log.With().Str("component", "http").Logger(),
	}
}

func (s *HTTP) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.probe(func(snap state.Snapshot) bool { return snap.Healthz }))
	mux.HandleFunc("GET /livez", s.probe(func(snap state.Snapshot) bool { return snap.Livez }))
	mux.HandleFunc("GET /readyz", s.probe(func(snap state.Snapshot) bool { return snap.Readyz }))
	if s.registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	if s.store != nil {
		mux.HandleFunc("GET /events", s.events)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("binding http listener on port %d: %w", s.port, err)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
		s.log.Info().Msg("shutting down http server")
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("http server ready")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

type statusBody struct {
	Timestamp string `json:"timestamp"`
	Healthz   bool   `json:"healthz"`
	Livez     bool   `json:"livez"`
	Readyz    bool   `json:"readyz"`
}

func (s *HTTP) probe(ok func(state.Snapshot) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.pub.Load()
		code := http.StatusOK
		if !ok(snap) {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, statusBody{
			Timestamp: snap.Timestamp.Format(time.RFC3339),
			Healthz:   snap.Healthz,
			Livez:     snap.Livez,
			Readyz:    snap.Readyz,
		})
	}
}

func (s *HTTP) events(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.Recent(r.Context(), 100)
	if err != nil {
		s.log.Warn().Err(err).Msg("event history query failed")
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
