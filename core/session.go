package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"pkt.systems/agstream/client"
	"pkt.systems/agstream/internal/logx"
	"pkt.systems/agstream/schema"
	"pkt.systems/pslog"
)

// Session is the client-side state of one conversation: the finalized
// transcript, the assistant message currently streaming, and the
// send-in-progress flag. All methods are safe for concurrent use.
type Session struct {
	backend ChatBackend
	sink    EventSink
	logger  pslog.Logger

	mu        sync.Mutex
	emitMu    sync.Mutex
	threadID  schema.ThreadID
	messages  []schema.Message
	streaming *schema.Message
	chunked   bool
	sending   bool
	current   *turn
	histories []schema.HistoryItem
	runID     schema.RunID
	runError  string
	state     json.RawMessage
	loadSeq   uint64
}

var now = time.Now

// NewSession returns a session on a fresh thread.
func NewSession(deps SessionDeps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Session{
		backend:  deps.Backend,
		sink:     deps.EventSink,
		logger:   logger,
		threadID: schema.NewThreadID(),
		messages: []schema.Message{},
	}
}

// Send appends the user message, opens an assistant placeholder and starts
// streaming the reply. ctx bounds the lifetime of the stream. Blank content
// and sends while another is in progress are rejected without changing state.
func (s *Session) Send(ctx context.Context, content string) error {
	text := strings.TrimSpace(content)
	if text == "" {
		return schema.ErrEmptyPrompt
	}
	if s.backend == nil {
		return schema.ErrBackendUnavailable
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return schema.ErrSendInProgress
	}
	log := logx.WithThread(s.logger, s.threadID)
	var updates []schema.SessionUpdate
	s.abortCurrentLocked(&updates)

	stamp := timestamp()
	user := schema.Message{ID: schema.NewUserMessageID(), Role: schema.RoleUser, Content: text, CreatedAt: stamp}
	s.messages = append(s.messages, user)
	updates = append(updates, s.messageUpdate(user))

	s.streaming = &schema.Message{ID: schema.NewPlaceholderID(), Role: schema.RoleAssistant, CreatedAt: stamp}
	s.chunked = false
	s.sending = true
	s.runError = ""
	t := newTurn(s, log)
	s.current = t

	ctx = logx.ContextWithThreadLogger(ctx, log, s.threadID)
	conn, err := s.backend.SendMessage(ctx, s.threadID, client.SendPayload{Content: text}, t)
	if err != nil {
		s.streaming = nil
		s.sending = false
		s.current = nil
		s.runError = err.Error()
		updates = append(updates,
			schema.SessionUpdate{Type: schema.UpdateRunError, ThreadID: s.threadID, Error: s.runError},
			schema.SessionUpdate{Type: schema.UpdateSending, ThreadID: s.threadID, Sending: false},
		)
		s.unlockAndEmit(updates)
		log.Warn("session send failed", "err", err)
		return fmt.Errorf("send message: %w", err)
	}
	if conn != nil {
		t.conn = conn
	}
	updates = append(updates,
		s.streamingUpdate(""),
		schema.SessionUpdate{Type: schema.UpdateSending, ThreadID: s.threadID, Sending: true},
	)
	s.unlockAndEmit(updates)
	log.Info("session send start", "chars", len(text))
	return nil
}

// AbortSending stops the current stream and drops the partial reply.
func (s *Session) AbortSending() {
	s.mu.Lock()
	had := s.current != nil || s.sending
	var updates []schema.SessionUpdate
	s.abortCurrentLocked(&updates)
	log := logx.WithThread(s.logger, s.threadID)
	s.unlockAndEmit(updates)
	if had {
		log.Info("session send aborted")
	}
}

// CreateNewChat aborts any stream and starts an empty thread.
func (s *Session) CreateNewChat() schema.ThreadID {
	s.mu.Lock()
	var updates []schema.SessionUpdate
	s.abortCurrentLocked(&updates)
	s.loadSeq++
	s.resetThreadLocked(schema.NewThreadID(), nil)
	threadID := s.threadID
	updates = append(updates, schema.SessionUpdate{Type: schema.UpdateThread, ThreadID: threadID})
	s.unlockAndEmit(updates)
	logx.WithThread(s.logger, threadID).Info("session new chat")
	return threadID
}

// LoadHistories fetches and stores the list of stored conversations.
func (s *Session) LoadHistories(ctx context.Context) ([]schema.HistoryItem, error) {
	if s.backend == nil {
		return nil, schema.ErrBackendUnavailable
	}
	items, err := s.backend.ListHistories(ctx)
	if err != nil {
		s.logger.Warn("session histories load failed", "err", err)
		return nil, fmt.Errorf("load histories: %w", err)
	}
	s.mu.Lock()
	s.histories = append([]schema.HistoryItem(nil), items...)
	s.mu.Unlock()
	s.logger.Debug("session histories loaded", "count", len(items))
	return append([]schema.HistoryItem(nil), items...), nil
}

// LoadHistoryChat aborts any stream, fetches the stored transcript of
// threadID and then replaces the thread and transcript in one step. On
// failure the current thread and transcript are kept.
func (s *Session) LoadHistoryChat(ctx context.Context, threadID schema.ThreadID) error {
	if strings.TrimSpace(string(threadID)) == "" {
		return schema.ErrInvalidThread
	}
	if s.backend == nil {
		return schema.ErrBackendUnavailable
	}
	log := logx.WithThread(s.logger, threadID)

	s.mu.Lock()
	var updates []schema.SessionUpdate
	s.abortCurrentLocked(&updates)
	s.loadSeq++
	seq := s.loadSeq
	s.unlockAndEmit(updates)

	messages, err := s.backend.GetHistory(ctx, threadID)
	if err != nil {
		log.Warn("session history load failed", "err", err)
		return fmt.Errorf("load history %s: %w", threadID, err)
	}

	s.mu.Lock()
	if s.loadSeq != seq {
		s.mu.Unlock()
		log.Debug("session history load superseded")
		return schema.ErrHistorySuperseded
	}
	updates = nil
	s.abortCurrentLocked(&updates)
	s.resetThreadLocked(threadID, messages)
	updates = append(updates, schema.SessionUpdate{Type: schema.UpdateThread, ThreadID: threadID})
	s.unlockAndEmit(updates)
	log.Info("session history loaded", "messages", len(messages))
	return nil
}

// ThreadID returns the active thread id.
func (s *Session) ThreadID() schema.ThreadID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// Sending reports whether a send is in progress.
func (s *Session) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Messages returns a copy of the finalized transcript.
func (s *Session) Messages() []schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.Message(nil), s.messages...)
}

// Streaming returns a copy of the in-progress assistant message, if any.
func (s *Session) Streaming() (schema.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streaming == nil {
		return schema.Message{}, false
	}
	return *s.streaming, true
}

// Transcript returns the finalized messages followed by the in-progress
// assistant message when one exists.
func (s *Session) Transcript() []schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.Message, 0, len(s.messages)+1)
	out = append(out, s.messages...)
	if s.streaming != nil {
		out = append(out, *s.streaming)
	}
	return out
}

// Histories returns the list stored by the last LoadHistories.
func (s *Session) Histories() []schema.HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.HistoryItem(nil), s.histories...)
}

// RunID returns the id of the latest run reported by the server.
func (s *Session) RunID() schema.RunID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// LastRunError returns the error of the latest failed run, if any.
func (s *Session) LastRunError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runError
}

// State returns a copy of the agent state document, or nil.
func (s *Session) State() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	return append(json.RawMessage(nil), s.state...)
}

// abortCurrentLocked releases the current connection and drops any partial reply.
func (s *Session) abortCurrentLocked(updates *[]schema.SessionUpdate) {
	if s.current != nil {
		if s.current.conn != nil {
			s.current.conn.Abort()
		}
		s.current = nil
	}
	s.discardStreamingLocked(updates)
	if s.sending {
		s.sending = false
		*updates = append(*updates, schema.SessionUpdate{Type: schema.UpdateSending, ThreadID: s.threadID, Sending: false})
	}
}

func (s *Session) discardStreamingLocked(updates *[]schema.SessionUpdate) {
	if s.streaming == nil {
		return
	}
	dropped := *s.streaming
	s.streaming = nil
	s.chunked = false
	*updates = append(*updates, schema.SessionUpdate{Type: schema.UpdateDiscarded, ThreadID: s.threadID, Message: &dropped})
}

func (s *Session) commitStreamingLocked(updates *[]schema.SessionUpdate) {
	if s.streaming == nil {
		return
	}
	msg := *s.streaming
	s.streaming = nil
	s.chunked = false
	s.messages = append(s.messages, msg)
	*updates = append(*updates, s.messageUpdate(msg))
}

func (s *Session) resetThreadLocked(threadID schema.ThreadID, messages []schema.Message) {
	s.threadID = threadID
	s.messages = append(make([]schema.Message, 0, len(messages)), messages...)
	s.streaming = nil
	s.chunked = false
	s.sending = false
	s.runID = ""
	s.runError = ""
	s.state = nil
}

func (s *Session) messageUpdate(msg schema.Message) schema.SessionUpdate {
	return schema.SessionUpdate{Type: schema.UpdateMessage, ThreadID: s.threadID, RunID: s.runID, Message: &msg}
}

func (s *Session) streamingUpdate(delta string) schema.SessionUpdate {
	msg := *s.streaming
	return schema.SessionUpdate{Type: schema.UpdateStreaming, ThreadID: s.threadID, RunID: s.runID, Message: &msg, Delta: delta}
}

// unlockAndEmit releases s.mu and delivers updates. emitMu is taken before
// s.mu is released so sinks observe updates in mutation order.
func (s *Session) unlockAndEmit(updates []schema.SessionUpdate) {
	if s.sink == nil || len(updates) == 0 {
		s.mu.Unlock()
		return
	}
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()
	for _, update := range updates {
		s.sink.OnSessionUpdate(update)
	}
}

func timestamp() string {
	return now().UTC().Format(time.RFC3339)
}
