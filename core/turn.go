package core

import (
	"pkt.systems/agstream/internal/stream"
	"pkt.systems/agstream/schema"
	"pkt.systems/pslog"
)

// turn receives the events of one send. Events of a turn that is no longer
// the session's current one are ignored.
type turn struct {
	stream.NopHandler

	s     *Session
	conn  interface{ Abort() }
	log   pslog.Logger
	tools map[schema.ToolCallID]string
}

func newTurn(s *Session, log pslog.Logger) *turn {
	return &turn{s: s, log: log, tools: make(map[schema.ToolCallID]string)}
}

// apply runs fn under the session lock when t is still current and emits
// the updates it returns.
func (t *turn) apply(event string, fn func(s *Session) []schema.SessionUpdate) {
	s := t.s
	s.mu.Lock()
	if s.current != t {
		s.mu.Unlock()
		t.log.Trace("session stale event ignored", "event", event)
		return
	}
	updates := fn(s)
	s.unlockAndEmit(updates)
}

func (t *turn) OnRunStarted(e schema.RunStarted) {
	t.apply("run_started", func(s *Session) []schema.SessionUpdate {
		s.runID = e.RunID
		if e.RunID != "" {
			t.log = t.log.With("run", e.RunID)
		}
		t.log.Debug("session run started")
		return nil
	})
}

func (t *turn) OnRunFinished(e schema.RunFinished) {
	t.apply("run_finished", func(s *Session) []schema.SessionUpdate {
		var updates []schema.SessionUpdate
		if s.chunked {
			s.commitStreamingLocked(&updates)
		}
		if s.sending {
			s.sending = false
			updates = append(updates, schema.SessionUpdate{Type: schema.UpdateSending, ThreadID: s.threadID, RunID: s.runID, Sending: false})
		}
		t.log.Info("session run finished")
		return updates
	})
}

func (t *turn) OnRunError(e schema.RunError) {
	t.apply("run_error", func(s *Session) []schema.SessionUpdate {
		s.runError = e.Message
		updates := []schema.SessionUpdate{{Type: schema.UpdateRunError, ThreadID: s.threadID, RunID: s.runID, Error: e.Message}}
		s.discardStreamingLocked(&updates)
		if s.sending {
			s.sending = false
			updates = append(updates, schema.SessionUpdate{Type: schema.UpdateSending, ThreadID: s.threadID, RunID: s.runID, Sending: false})
		}
		t.log.Warn("session run error", "message", e.Message, "code", e.Code)
		return updates
	})
}

func (t *turn) OnStepStarted(e schema.StepStarted) {
	t.log.Debug("session step started", "step", e.StepName)
}

func (t *turn) OnStepFinished(e schema.StepFinished) {
	t.log.Debug("session step finished", "step", e.StepName)
}

func (t *turn) OnTextMessageStart(e schema.TextMessageStart) {
	t.apply("text_message_start", func(s *Session) []schema.SessionUpdate {
		var updates []schema.SessionUpdate
		if s.streaming == nil {
			s.streaming = &schema.Message{ID: e.MessageID, Role: schema.RoleAssistant, CreatedAt: timestamp()}
		} else {
			if s.chunked {
				s.commitStreamingLocked(&updates)
				s.streaming = &schema.Message{Role: schema.RoleAssistant, CreatedAt: timestamp()}
			}
			s.streaming.ID = e.MessageID
		}
		return append(updates, s.streamingUpdate(""))
	})
}

func (t *turn) OnTextMessageContent(e schema.TextMessageContent) {
	t.apply("text_message_content", func(s *Session) []schema.SessionUpdate {
		if s.streaming == nil {
			return nil
		}
		s.streaming.Content += e.Delta
		return []schema.SessionUpdate{s.streamingUpdate(e.Delta)}
	})
}

func (t *turn) OnTextMessageEnd(e schema.TextMessageEnd) {
	t.apply("text_message_end", func(s *Session) []schema.SessionUpdate {
		var updates []schema.SessionUpdate
		s.commitStreamingLocked(&updates)
		return updates
	})
}

// OnTextMessageChunk handles self-delimiting fragments: a chunk naming a
// different message closes the previous one, and RUN_FINISHED or stream
// completion closes the last.
func (t *turn) OnTextMessageChunk(e schema.TextMessageChunk) {
	t.apply("text_message_chunk", func(s *Session) []schema.SessionUpdate {
		var updates []schema.SessionUpdate
		if s.streaming != nil && s.chunked && e.MessageID != "" && e.MessageID != s.streaming.ID {
			s.commitStreamingLocked(&updates)
		}
		if s.streaming == nil {
			id := e.MessageID
			if id == "" {
				id = schema.NewMessageID()
			}
			s.streaming = &schema.Message{ID: id, Role: schema.RoleAssistant, CreatedAt: timestamp()}
		} else if e.MessageID != "" && schema.IsPlaceholder(s.streaming.ID) {
			s.streaming.ID = e.MessageID
		}
		s.chunked = true
		s.streaming.Content += e.Delta
		return append(updates, s.streamingUpdate(e.Delta))
	})
}

func (t *turn) OnThinkingTextMessageContent(e schema.ThinkingTextMessageContent) {
	t.apply("thinking_content", func(s *Session) []schema.SessionUpdate {
		return []schema.SessionUpdate{{Type: schema.UpdateThinking, ThreadID: s.threadID, RunID: s.runID, Delta: e.Delta}}
	})
}

func (t *turn) OnThinkingTextMessageEnd(schema.ThinkingTextMessageEnd) {
	t.apply("thinking_end", func(s *Session) []schema.SessionUpdate {
		return []schema.SessionUpdate{{Type: schema.UpdateThinking, ThreadID: s.threadID, RunID: s.runID, Delta: "\n"}}
	})
}

func (t *turn) OnToolCallStart(e schema.ToolCallStart) {
	t.apply("tool_call_start", func(s *Session) []schema.SessionUpdate {
		t.tools[e.ToolCallID] = e.ToolCallName
		return []schema.SessionUpdate{t.toolUpdate(s, schema.ToolCallUpdate{ID: e.ToolCallID, Name: e.ToolCallName})}
	})
}

func (t *turn) OnToolCallArgs(e schema.ToolCallArgs) {
	t.apply("tool_call_args", func(s *Session) []schema.SessionUpdate {
		return []schema.SessionUpdate{t.toolUpdate(s, schema.ToolCallUpdate{ID: e.ToolCallID, Name: t.tools[e.ToolCallID], Delta: e.Delta})}
	})
}

func (t *turn) OnToolCallEnd(e schema.ToolCallEnd) {
	t.apply("tool_call_end", func(s *Session) []schema.SessionUpdate {
		return []schema.SessionUpdate{t.toolUpdate(s, schema.ToolCallUpdate{ID: e.ToolCallID, Name: t.tools[e.ToolCallID], Done: true})}
	})
}

func (t *turn) OnToolCallChunk(e schema.ToolCallChunk) {
	t.apply("tool_call_chunk", func(s *Session) []schema.SessionUpdate {
		if e.ToolCallName != "" {
			t.tools[e.ToolCallID] = e.ToolCallName
		}
		return []schema.SessionUpdate{t.toolUpdate(s, schema.ToolCallUpdate{ID: e.ToolCallID, Name: t.tools[e.ToolCallID], Delta: e.Delta})}
	})
}

func (t *turn) OnToolCallResult(e schema.ToolCallResult) {
	t.apply("tool_call_result", func(s *Session) []schema.SessionUpdate {
		return []schema.SessionUpdate{t.toolUpdate(s, schema.ToolCallUpdate{ID: e.ToolCallID, Name: t.tools[e.ToolCallID], Result: e.Content, Done: true})}
	})
}

func (t *turn) toolUpdate(s *Session, call schema.ToolCallUpdate) schema.SessionUpdate {
	return schema.SessionUpdate{Type: schema.UpdateToolCall, ThreadID: s.threadID, RunID: s.runID, ToolCall: &call}
}

func (t *turn) OnStateSnapshot(e schema.StateSnapshot) {
	t.apply("state_snapshot", func(s *Session) []schema.SessionUpdate {
		s.state = normalizeState(e.Snapshot)
		return []schema.SessionUpdate{s.stateUpdate()}
	})
}

func (t *turn) OnStateDelta(e schema.StateDelta) {
	t.apply("state_delta", func(s *Session) []schema.SessionUpdate {
		next, err := applyStatePatch(s.state, e.Delta)
		if err != nil {
			t.log.Warn("session state delta rejected", "err", err)
			return nil
		}
		s.state = next
		return []schema.SessionUpdate{s.stateUpdate()}
	})
}

func (t *turn) OnMessagesSnapshot(e schema.MessagesSnapshot) {
	t.log.Debug("session messages snapshot ignored", "messages", len(e.Messages))
}

func (t *turn) OnCustom(e schema.Custom) {
	t.log.Debug("session custom event", "name", e.Name)
}

// OnError ends the turn after a transport failure.
func (t *turn) OnError(err error) {
	t.apply("error", func(s *Session) []schema.SessionUpdate {
		s.current = nil
		msg := "stream failed"
		if err != nil {
			msg = err.Error()
		}
		s.runError = msg
		updates := []schema.SessionUpdate{{Type: schema.UpdateRunError, ThreadID: s.threadID, RunID: s.runID, Error: msg}}
		s.discardStreamingLocked(&updates)
		if s.sending {
			s.sending = false
			updates = append(updates, schema.SessionUpdate{Type: schema.UpdateSending, ThreadID: s.threadID, RunID: s.runID, Sending: false})
		}
		t.log.Warn("session stream error", "err", err)
		return updates
	})
}

// OnComplete ends the turn when the server closes the stream. A message
// that never received its end event is dropped, except a chunked one.
func (t *turn) OnComplete() {
	t.apply("complete", func(s *Session) []schema.SessionUpdate {
		s.current = nil
		var updates []schema.SessionUpdate
		if s.streaming != nil {
			if s.chunked {
				s.commitStreamingLocked(&updates)
			} else {
				t.log.Warn("session stream ended mid-message", "message", s.streaming.ID, "chars", len(s.streaming.Content))
				s.discardStreamingLocked(&updates)
			}
		}
		if s.sending {
			s.sending = false
			updates = append(updates, schema.SessionUpdate{Type: schema.UpdateSending, ThreadID: s.threadID, RunID: s.runID, Sending: false})
		}
		t.log.Debug("session stream complete")
		return updates
	})
}

// OnAbort ends the turn when the context given to Send is cancelled. The
// partial reply is dropped the same way AbortSending drops it.
func (t *turn) OnAbort() {
	t.apply("abort", func(s *Session) []schema.SessionUpdate {
		s.current = nil
		var updates []schema.SessionUpdate
		s.discardStreamingLocked(&updates)
		if s.sending {
			s.sending = false
			updates = append(updates, schema.SessionUpdate{Type: schema.UpdateSending, ThreadID: s.threadID, RunID: s.runID, Sending: false})
		}
		t.log.Info("session stream cancelled")
		return updates
	})
}
