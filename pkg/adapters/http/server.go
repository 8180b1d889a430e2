// Package http serves the assistant as a JSON API with a small chat page.
package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/eora"
	"github.com/aretw0/eora/internal/logging"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/ports"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

//go:embed openapi.yaml
var rawSpec []byte

//go:embed static/index.html
var indexHTML []byte

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}
	return doc, nil
}

// Server holds the handlers of the API.
type Server struct {
	Assistant ports.Assistant
	Streams   *StreamManager
	Watcher   ports.Watchable // Optional source of knowledge base change events.
	Metrics   http.Handler    // Optional /metrics handler.
	Logger    *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithWatcher streams knowledge base changes on /events without a session.
func WithWatcher(w ports.Watchable) Option {
	return func(s *Server) {
		s.Watcher = w
	}
}

// WithMetrics mounts a Prometheus handler on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithStreams shares a StreamManager with other producers of session events.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = l
	}
}

// NewHandler creates the HTTP handler for the assistant.
func NewHandler(assistant ports.Assistant, opts ...Option) http.Handler {
	s := &Server{
		Assistant: assistant,
		Streams:   NewStreamManager(),
		Logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.Logger

	r := chi.NewRouter()
	r.Get("/", s.Index)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeEvents)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/ask", s.Ask)
		r.Get("/sessions", s.ListSessions)
		r.Get("/sessions/{id}", s.GetSession)
		r.Delete("/sessions/{id}", s.ClearSession)
		r.Get("/examples", s.Examples)
		r.Get("/levels", s.Levels)
		r.Get("/stats", s.Stats)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Index serves the chat page.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Level     string `json:"level"`
}

// Ask handles POST /api/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var body AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		s.writeError(w, &domain.Error{Kind: domain.ErrInvalidInput, Op: "decode", Err: err})
		return
	}
	level, err := domain.ParseComplexity(body.Level)
	if err != nil {
		s.writeError(w, err)
		return
	}

	reply, err := s.Assistant.Ask(r.Context(), body.SessionID, body.Question, level)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if payload, err := json.Marshal(reply.Message); err == nil {
		s.Streams.Broadcast(reply.SessionID, string(payload))
	}
	s.writeJSON(w, http.StatusOK, reply)
}

// ListSessions handles GET /api/sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Assistant.Sessions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetSession handles GET /api/sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	conv, err := s.Assistant.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, conv)
}

// ClearSession handles DELETE /api/sessions/{id}.
func (s *Server) ClearSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Assistant.Clear(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Examples handles GET /api/examples.
func (s *Server) Examples(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"questions": s.Assistant.Examples()})
}

type levelInfo struct {
	ID    domain.ComplexityLevel `json:"id"`
	Label string                 `json:"label"`
}

// Levels handles GET /api/levels.
func (s *Server) Levels(w http.ResponseWriter, r *http.Request) {
	levels := domain.Levels()
	out := make([]levelInfo, len(levels))
	for i, l := range levels {
		out[i] = levelInfo{ID: l, Label: l.Label()}
	}
	s.writeJSON(w, http.StatusOK, out)
}

// Stats handles GET /api/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Assistant.Stats(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := LoadSpec(r.Context()); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	} else if err != nil {
		s.Logger.Error("Failed to load OpenAPI spec", "err", err)
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "eora-http",
		"version":     strings.TrimSpace(eora.Version),
		"api_version": apiVersion,
	})
}

// SubscribeEvents handles GET /events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	sessionID := r.URL.Query().Get("session_id")

	var events <-chan string
	if sessionID == "" {
		if s.Watcher == nil {
			s.writeError(w, &domain.Error{Kind: domain.ErrNotImplemented, Op: "events", Err: errors.New("no knowledge base to watch")})
			return
		}
		ch, err := s.Watcher.Watch(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.Logger.Info("SSE: Subscribing to knowledge base changes")
		events = ch
	} else {
		ch, cancel := s.Streams.Subscribe(sessionID)
		defer cancel()
		s.Logger.Info("SSE: Subscribing to session messages", "session_id", sessionID)
		events = ch
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE Client Disconnected")
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "err", err)
	} else {
		s.Logger.Warn("request rejected", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// StatusFor maps an error category to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// StreamManager fans session messages out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // SessionID -> set of channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a buffered channel for the session. The returned
// function unregisters and closes it.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
		})
	}
}

// Broadcast delivers msg to every subscriber of the session, dropping it for
// subscribers whose buffer is full.
func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// Subscribers returns the number of active subscribers of a session.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// ListenAndServe runs the server on addr until ctx is done, then shuts it down
// gracefully within the timeout.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, timeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", timeout, err)
		}
		return nil
	}
}
