// Package server provides the operator HTTP server with lifecycle management.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/elmariachi111/llm-tg-bot/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// Stats is the body of GET /stats.
type Stats struct {
	Version       string           `json:"version"`
	Conversations int              `json:"conversations"`
	ActiveChats   int              `json:"active_chats"`
	Metrics       metrics.Snapshot `json:"metrics"`
}

// StatsFunc reports live counters that are not part of the metrics snapshot.
type StatsFunc func() (conversations, activeChats int)

// Server serves /health and /stats.
type Server struct {
	http      *http.Server
	version   string
	collector *metrics.Collector
	stats     StatsFunc
	logger    *slog.Logger
}

// New creates a server listening on addr. stats may be nil.
func New(addr, version string, collector *metrics.Collector, stats StatsFunc, logger *slog.Logger) *Server {
	s := &Server{
		version:   version,
		collector: collector,
		stats:     stats,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           LoggingMiddleware(logger)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run listens and serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting HTTP server", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	out := Stats{
		Version: s.version,
		Metrics: s.collector.Snapshot(),
	}
	if s.stats != nil {
		out.Conversations, out.ActiveChats = s.stats()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Error("failed to encode stats", "error", err)
	}
}
