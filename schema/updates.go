package schema

import "encoding/json"

// UpdateType identifies a session update payload.
type UpdateType string

const (
	// UpdateMessage carries a message committed to the transcript.
	UpdateMessage UpdateType = "message"
	// UpdateStreaming carries a change to the in-progress assistant message.
	UpdateStreaming UpdateType = "streaming"
	// UpdateDiscarded reports that the in-progress message was dropped.
	UpdateDiscarded UpdateType = "discarded"
	// UpdateSending reports a change of the send-in-progress flag.
	UpdateSending UpdateType = "sending"
	// UpdateThread reports that the thread and transcript were replaced.
	UpdateThread UpdateType = "thread"
	// UpdateState carries the agent state document after a change.
	UpdateState UpdateType = "state"
	// UpdateThinking carries reasoning text.
	UpdateThinking UpdateType = "thinking"
	// UpdateToolCall carries tool call progress.
	UpdateToolCall UpdateType = "tool_call"
	// UpdateRunError carries an error reported by the agent or transport.
	UpdateRunError UpdateType = "run_error"
)

// SessionUpdate is emitted by the session after each observable state change.
type SessionUpdate struct {
	Type     UpdateType
	ThreadID ThreadID
	RunID    RunID
	Message  *Message
	Delta    string
	Sending  bool
	State    json.RawMessage
	Error    string
	ToolCall *ToolCallUpdate
}

// ToolCallUpdate describes one step of a tool call.
type ToolCallUpdate struct {
	ID     ToolCallID
	Name   string
	Delta  string
	Result string
	Done   bool
}
