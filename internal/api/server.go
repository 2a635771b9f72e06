// Package api exposes the conversation and table over HTTP.
//
// POST /api/chat streams the assistant's reply to the client as SSE:
// text/thinking deltas and tool results as they happen, then a final
// state event. GET /api/table returns the current visible rows.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ademiltonnunes/quill-project/internal/config"
	"github.com/ademiltonnunes/quill-project/internal/monitoring"
	"github.com/ademiltonnunes/quill-project/internal/session"
	"github.com/ademiltonnunes/quill-project/internal/table"
	"github.com/ademiltonnunes/quill-project/internal/tools"
)

// Server is the HTTP API server for one hosted session.
type Server struct {
	cfg     config.Config
	session *session.Session
	server  *http.Server
}

// New creates a Server around an existing session.
func New(cfg config.Config, sess *session.Session) *Server {
	return &Server{cfg: cfg, session: sess}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:     s.routes(),
		ReadTimeout: s.cfg.Server.ReadTimeout,
		// No write timeout: /api/chat is a long-lived SSE stream.
		IdleTimeout: s.cfg.Server.IdleTimeout,
	}

	log.Info().Int("port", s.cfg.Server.Port).Msg("api server starting")

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(panicRecovery)
	r.Use(requestLogging)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/table", s.handleTable)
		r.Post("/reset", s.handleReset)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, monitoring.Metrics.Stats())
}

type chatRequest struct {
	Message string `json:"message"`
}

// sseSink forwards session output to the client as SSE events.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Text(delta string) {
	s.send(map[string]any{"type": "text", "text": delta})
}

func (s *sseSink) Thinking(delta string) {
	s.send(map[string]any{"type": "thinking", "thinking": delta})
}

func (s *sseSink) ToolResult(call tools.Call, result tools.Result) {
	s.send(map[string]any{
		"type":    "tool_result",
		"tool":    call.Name,
		"toolId":  call.ID,
		"ok":      result.OK,
		"message": result.Message,
	})
}

func (s *sseSink) send(event map[string]any) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(s.w, "data: %s\n\n", payload)
	s.flusher.Flush()
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := &sseSink{w: w, flusher: flusher}
	turn, err := s.session.Send(r.Context(), req.Message, sink)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Superseded or client gone; nothing to report.
			return
		}
		// Transport-level failure: the one error class the user sees.
		sink.send(map[string]any{"type": "error", "message": "connection to the model failed"})
		log.Error().Err(err).Msg("chat turn failed")
		return
	}

	sink.send(map[string]any{
		"type":  "done",
		"reply": turn.Reply,
		"table": tableView(turn.State),
	})
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (s *Server) handleTable(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, tableView(s.session.State()))
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	rows := table.SampleRows(s.cfg.Table.SampleRows, s.cfg.Table.SampleSeed)
	s.session.Reset(table.NewState(rows, s.cfg.Table.PageSize))
	writeJSON(w, http.StatusOK, tableView(s.session.State()))
}

// tableView is the JSON shape served to clients: visible rows plus the
// active filter and sort specs.
func tableView(st table.State) map[string]any {
	return map[string]any{
		"rows":     st.VisibleRows(),
		"page":     st.PageRows(),
		"filters":  st.Filters,
		"sort":     st.Sort,
		"total":    len(st.Rows),
		"pageSpec": st.Page,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write response failed")
	}
}
