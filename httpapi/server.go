package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/agstream/internal/logx"
	"pkt.systems/agstream/schema"
	"pkt.systems/pslog"
)

const defaultUserID schema.UserID = "local"

const maxRequestBytes = 1 << 20

// Server is a reference chat server speaking the event stream protocol.
type Server struct {
	cfg       Config
	responder Responder
	store     *historyStore
	basePath  string
}

// Option configures a Server.
type Option func(*Server)

// WithResponder sets the reply generator.
func WithResponder(responder Responder) Option {
	return func(s *Server) {
		if responder != nil {
			s.responder = responder
		}
	}
}

// NewServer constructs a reference chat server.
func NewServer(cfg Config, opts ...Option) *Server {
	if cfg.UserID == "" {
		cfg.UserID = defaultUserID
	}
	s := &Server{
		cfg:       cfg,
		responder: EchoResponder{},
		store:     newHistoryStore(cfg.UserID, cfg.StorePath),
		basePath:  normalizeBasePath(cfg.BasePath),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /chat/histories", s.handleHistories)
	mux.HandleFunc("GET /chat/history/{thread_id}", s.handleHistory)

	handler := withRequestLogging(mux)
	if s.basePath == "" {
		return handler
	}
	prefix := s.basePath
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	return root
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req schema.ChatRequest
	if err := decodeJSON(http.MaxBytesReader(w, r.Body, maxRequestBytes), &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(string(req.ThreadID)) == "" {
		writeError(w, http.StatusBadRequest, errors.New("thread_id is required"))
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("messages must not be empty"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	if req.RunID == "" {
		req.RunID = schema.NewRunID()
	}
	ctx := r.Context()
	log := logx.WithRun(logx.CtxThread(ctx, req.ThreadID), req.RunID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := &eventWriter{w: w, flusher: flusher, ctx: ctx, delay: s.cfg.Delay, log: log}
	log.Info("mock run started", "messages", len(req.Messages))
	if !stream.emit(schema.RunStarted{ThreadID: req.ThreadID, RunID: req.RunID}) {
		return
	}
	reply, err := s.responder.Respond(ctx, req)
	if err != nil {
		log.Warn("mock responder failed", "err", err)
		stream.emit(schema.RunError{Message: err.Error(), Code: "responder_failed"})
		return
	}

	messageID := schema.NewMessageID()
	events := []schema.Event{
		schema.StepStarted{StepName: "respond"},
		schema.TextMessageStart{MessageID: messageID, Role: schema.RoleAssistant},
	}
	for _, word := range splitWords(reply) {
		events = append(events, schema.TextMessageContent{MessageID: messageID, Delta: word})
	}
	events = append(events, schema.TextMessageEnd{MessageID: messageID})
	for _, event := range events {
		if !stream.emit(event) {
			return
		}
	}

	stamp := time.Now().UTC().Format(time.RFC3339)
	user := lastUserMessage(req.Messages)
	if user.CreatedAt == "" {
		user.CreatedAt = stamp
	}
	turns := s.store.appendTurn(req.ThreadID, user, schema.Message{
		ID:        messageID,
		Role:      schema.RoleAssistant,
		Content:   reply,
		CreatedAt: stamp,
	})
	for _, event := range []schema.Event{
		schema.StateSnapshot{Snapshot: turnsSnapshot(turns)},
		schema.StepFinished{StepName: "respond"},
		schema.RunFinished{ThreadID: req.ThreadID, RunID: req.RunID},
	} {
		if !stream.emit(event) {
			return
		}
	}
	log.Info("mock run finished", "turns", turns, "chars", len(reply))
}

// turnsSnapshot is the mock agent state: the number of completed turns.
func turnsSnapshot(turns int) json.RawMessage {
	return json.RawMessage(`{"turns":` + strconv.Itoa(turns) + `}`)
}

func (s *Server) handleHistories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.list())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	threadID := schema.ThreadID(strings.TrimSpace(r.PathValue("thread_id")))
	messages, ok := s.store.get(threadID)
	if !ok {
		logx.CtxThread(r.Context(), threadID).Debug("mock history not found")
		writeError(w, http.StatusNotFound, schema.ErrThreadNotFound)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// eventWriter writes frames to one streaming response until the client leaves.
type eventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
	delay   time.Duration
	log     pslog.Logger
}

func (e *eventWriter) emit(event schema.Event) bool {
	if e.ctx.Err() != nil {
		e.log.Info("mock stream client gone", "at", event.EventType())
		return false
	}
	if err := writeSSEvent(e.w, event); err != nil {
		e.log.Warn("mock stream write failed", "err", err)
		return false
	}
	e.flusher.Flush()
	if e.delay <= 0 {
		return true
	}
	timer := time.NewTimer(e.delay)
	defer timer.Stop()
	select {
	case <-e.ctx.Done():
		e.log.Info("mock stream client gone", "at", event.EventType())
		return false
	case <-timer.C:
		return true
	}
}

func decodeJSON(body io.Reader, target any) error {
	return json.NewDecoder(body).Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "encode response: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event schema.Event) error {
	data, err := schema.EncodeEvent(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return err
}
