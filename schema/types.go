package schema

import "encoding/json"

// ThreadID identifies a conversation thread.
type ThreadID string

// RunID identifies one agent run within a thread.
type RunID string

// MessageID identifies a transcript message.
type MessageID string

// ToolCallID identifies a tool invocation.
type ToolCallID string

// UserID identifies the owner of a stored history entry.
type UserID string

// Role is the author role of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleTool      Role = "tool"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleDeveloper, RoleTool:
		return true
	default:
		return false
	}
}

// Message is one finalized or in-progress transcript entry.
type Message struct {
	ID        MessageID `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt string    `json:"createdAt,omitempty"`
}

// HistoryItem is one row returned by the history listing endpoint.
type HistoryItem struct {
	UserID    UserID   `json:"user_id"`
	ThreadID  ThreadID `json:"thread_id"`
	Name      string   `json:"name"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// Tool describes a client-side tool offered to the agent.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ContextItem is a piece of context forwarded with a chat request.
type ContextItem struct {
	Description string `json:"description"`
	Value       string `json:"value"`
}

// ChatRequest is the body of a streaming chat request.
type ChatRequest struct {
	ThreadID       ThreadID        `json:"thread_id"`
	RunID          RunID           `json:"run_id"`
	State          json.RawMessage `json:"state"`
	Messages       []Message       `json:"messages"`
	Tools          []Tool          `json:"tools"`
	Context        []ContextItem   `json:"context"`
	ForwardedProps json.RawMessage `json:"forwarded_props"`
}
