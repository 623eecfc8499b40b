package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/blackmichael/swapbot/internal/domain"
)

// Server is the HTTP server for the read-only dashboard API.
type Server struct {
	history    *domain.HistoryService
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a new HTTP server. stream serves the live vouch
// websocket; it may be nil to disable the endpoint.
func NewServer(port int, history *domain.HistoryService, stream http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		history: history,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user/{name}", s.handleUser)
	mux.HandleFunc("GET /api/vouches", s.handleVouches)
	if stream != nil {
		mux.Handle("GET /api/vouches/stream", stream)
	}
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     withLogging(logger, mux),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "user name is required")
		return
	}

	history, err := s.history.UserHistory(r.Context(), name)
	if err != nil {
		s.logger.Error("failed to get user history", "user", name, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to get user history")
		return
	}

	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleVouches(w http.ResponseWriter, r *http.Request) {
	vouches, err := s.history.AllVouches(r.Context())
	if err != nil {
		s.logger.Error("failed to list vouches", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to list vouches")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"vouches": vouches,
		"count":   len(vouches),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket stream take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
