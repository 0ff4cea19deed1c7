// Package server exposes the engine over a small local HTTP API.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"autologin/internal/apperr"
	"autologin/internal/events"
	"autologin/internal/metrics"
	"autologin/internal/models"
	"autologin/internal/service"
)

// Engine is the part of the service the API drives.
type Engine interface {
	CheckStatus(ctx context.Context, showNotification bool) (service.Status, error)
	SilentLogin(ctx context.Context) service.Report
	Subscribe(h events.Handler) (unsubscribe func())
}

// HistoryReader reads stored results.
type HistoryReader interface {
	Latest() (models.HistoryEntry, bool)
	HistoryN(n int) []models.HistoryEntry
}

// LogReader returns the activity log text.
type LogReader interface {
	Read() (string, error)
}

// Server wraps HTTP serving of the API.
type Server struct {
	httpServer   *http.Server
	engine       Engine
	history      HistoryReader
	activity     LogReader
	logger       *zap.Logger
	historyLimit int
}

// New creates a configured HTTP server. history and activity may be nil.
func New(addr string, engine Engine, history HistoryReader, activity LogReader, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	s := &Server{
		httpServer:   &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second},
		engine:       engine,
		history:      history,
		activity:     activity,
		logger:       logger,
		historyLimit: 200,
	}
	s.registerRoutes(mux)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/latest", s.handleLatest)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/overview", s.handleOverview)
	mux.HandleFunc("/api/logs", s.handleLogs)
	mux.HandleFunc("/ws/events", s.handleEventsWS)
}

type statusResponse struct {
	service.Status
	Error string `json:"error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	status, err := s.engine.CheckStatus(r.Context(), false)
	resp := statusResponse{Status: status}
	if err != nil {
		resp.Error = apperr.UserMessage(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.SilentLogin(r.Context()))
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"timestamp": nil})
		return
	}
	entry, ok := s.history.Latest()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"timestamp": nil})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.recentHistory(parseLimit(r, s.historyLimit)))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary := metrics.ComputeSummary(s.recentHistory(parseLimit(r, s.historyLimit)))
	if summary == nil {
		summary = []metrics.OperationSummary{}
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	if s.activity == nil {
		writeJSON(w, http.StatusOK, map[string]string{"log": ""})
		return
	}
	text, err := s.activity.Read()
	if err != nil {
		s.logger.Warn("read activity log", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "无法读取日志"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"log": text})
}

func (s *Server) recentHistory(limit int) []models.HistoryEntry {
	if s.history == nil {
		return []models.HistoryEntry{}
	}
	return s.history.HistoryN(limit)
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

func parseLimit(r *http.Request, fallback int) int {
	if fallback <= 0 {
		return fallback
	}
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > fallback {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
