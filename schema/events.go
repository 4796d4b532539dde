package schema

import "encoding/json"

// EventType is the wire discriminant of a stream event.
type EventType string

const (
	EventRunStarted                 EventType = "RUN_STARTED"
	EventRunFinished                EventType = "RUN_FINISHED"
	EventRunError                   EventType = "RUN_ERROR"
	EventStepStarted                EventType = "STEP_STARTED"
	EventStepFinished               EventType = "STEP_FINISHED"
	EventTextMessageStart           EventType = "TEXT_MESSAGE_START"
	EventTextMessageContent         EventType = "TEXT_MESSAGE_CONTENT"
	EventTextMessageEnd             EventType = "TEXT_MESSAGE_END"
	EventTextMessageChunk           EventType = "TEXT_MESSAGE_CHUNK"
	EventThinkingTextMessageStart   EventType = "THINKING_TEXT_MESSAGE_START"
	EventThinkingTextMessageContent EventType = "THINKING_TEXT_MESSAGE_CONTENT"
	EventThinkingTextMessageEnd     EventType = "THINKING_TEXT_MESSAGE_END"
	EventToolCallStart              EventType = "TOOL_CALL_START"
	EventToolCallArgs               EventType = "TOOL_CALL_ARGS"
	EventToolCallEnd                EventType = "TOOL_CALL_END"
	EventToolCallChunk              EventType = "TOOL_CALL_CHUNK"
	EventToolCallResult             EventType = "TOOL_CALL_RESULT"
	EventThinkingStart              EventType = "THINKING_START"
	EventThinkingEnd                EventType = "THINKING_END"
	EventStateSnapshot              EventType = "STATE_SNAPSHOT"
	EventStateDelta                 EventType = "STATE_DELTA"
	EventMessagesSnapshot           EventType = "MESSAGES_SNAPSHOT"
	EventActivitySnapshot           EventType = "ACTIVITY_SNAPSHOT"
	EventActivityDelta              EventType = "ACTIVITY_DELTA"
	EventRaw                        EventType = "RAW"
	EventCustom                     EventType = "CUSTOM"
)

// Event is one decoded stream event. The concrete type identifies the variant.
type Event interface {
	EventType() EventType
}

// BaseEvent carries the fields shared by every event variant.
type BaseEvent struct {
	Timestamp *float64        `json:"timestamp,omitempty"`
	RawEvent  json.RawMessage `json:"raw_event,omitempty"`
}

type RunStarted struct {
	BaseEvent
	ThreadID    ThreadID        `json:"thread_id"`
	RunID       RunID           `json:"run_id"`
	ParentRunID RunID           `json:"parent_run_id,omitempty"`
	Input       json.RawMessage `json:"input,omitempty"`
}

type RunFinished struct {
	BaseEvent
	ThreadID ThreadID        `json:"thread_id"`
	RunID    RunID           `json:"run_id"`
	Result   json.RawMessage `json:"result,omitempty"`
}

type RunError struct {
	BaseEvent
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type StepStarted struct {
	BaseEvent
	StepName string `json:"step_name"`
}

type StepFinished struct {
	BaseEvent
	StepName string `json:"step_name"`
}

type TextMessageStart struct {
	BaseEvent
	MessageID MessageID `json:"message_id"`
	Role      Role      `json:"role,omitempty"`
}

type TextMessageContent struct {
	BaseEvent
	MessageID MessageID `json:"message_id"`
	Delta     string    `json:"delta"`
}

type TextMessageEnd struct {
	BaseEvent
	MessageID MessageID `json:"message_id"`
}

// TextMessageChunk is a self-contained message fragment; every field is optional.
type TextMessageChunk struct {
	BaseEvent
	MessageID MessageID `json:"message_id,omitempty"`
	Role      Role      `json:"role,omitempty"`
	Delta     string    `json:"delta,omitempty"`
}

type ThinkingTextMessageStart struct {
	BaseEvent
}

type ThinkingTextMessageContent struct {
	BaseEvent
	Delta string `json:"delta"`
}

type ThinkingTextMessageEnd struct {
	BaseEvent
}

type ToolCallStart struct {
	BaseEvent
	ToolCallID      ToolCallID `json:"tool_call_id"`
	ToolCallName    string     `json:"tool_call_name"`
	ParentMessageID MessageID  `json:"parent_message_id,omitempty"`
}

type ToolCallArgs struct {
	BaseEvent
	ToolCallID ToolCallID `json:"tool_call_id"`
	Delta      string     `json:"delta"`
}

type ToolCallEnd struct {
	BaseEvent
	ToolCallID ToolCallID `json:"tool_call_id"`
}

type ToolCallChunk struct {
	BaseEvent
	ToolCallID      ToolCallID `json:"tool_call_id,omitempty"`
	ToolCallName    string     `json:"tool_call_name,omitempty"`
	ParentMessageID MessageID  `json:"parent_message_id,omitempty"`
	Delta           string     `json:"delta,omitempty"`
}

type ToolCallResult struct {
	BaseEvent
	MessageID  MessageID  `json:"message_id"`
	ToolCallID ToolCallID `json:"tool_call_id"`
	Content    string     `json:"content"`
	Role       Role       `json:"role,omitempty"`
}

type ThinkingStart struct {
	BaseEvent
	Title string `json:"title,omitempty"`
}

type ThinkingEnd struct {
	BaseEvent
}

// StateSnapshot replaces the agent state document.
type StateSnapshot struct {
	BaseEvent
	Snapshot json.RawMessage `json:"snapshot"`
}

// StateDelta carries an RFC 6902 patch against the agent state document.
type StateDelta struct {
	BaseEvent
	Delta json.RawMessage `json:"delta"`
}

type MessagesSnapshot struct {
	BaseEvent
	Messages []Message `json:"messages"`
}

type ActivitySnapshot struct {
	BaseEvent
	MessageID    MessageID       `json:"message_id"`
	ActivityType string          `json:"activity_type"`
	Content      json.RawMessage `json:"content"`
	Replace      *bool           `json:"replace,omitempty"`
}

type ActivityDelta struct {
	BaseEvent
	MessageID    MessageID       `json:"message_id"`
	ActivityType string          `json:"activity_type"`
	Delta        json.RawMessage `json:"delta"`
}

type Raw struct {
	BaseEvent
	Event  json.RawMessage `json:"event"`
	Source string          `json:"source,omitempty"`
}

type Custom struct {
	BaseEvent
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value,omitempty"`
}

// UnknownEvent holds a well-formed payload whose discriminant is not recognized.
type UnknownEvent struct {
	Type    EventType
	Payload json.RawMessage
}

func (RunStarted) EventType() EventType                 { return EventRunStarted }
func (RunFinished) EventType() EventType                { return EventRunFinished }
func (RunError) EventType() EventType                   { return EventRunError }
func (StepStarted) EventType() EventType                { return EventStepStarted }
func (StepFinished) EventType() EventType               { return EventStepFinished }
func (TextMessageStart) EventType() EventType           { return EventTextMessageStart }
func (TextMessageContent) EventType() EventType         { return EventTextMessageContent }
func (TextMessageEnd) EventType() EventType             { return EventTextMessageEnd }
func (TextMessageChunk) EventType() EventType           { return EventTextMessageChunk }
func (ThinkingTextMessageStart) EventType() EventType   { return EventThinkingTextMessageStart }
func (ThinkingTextMessageContent) EventType() EventType { return EventThinkingTextMessageContent }
func (ThinkingTextMessageEnd) EventType() EventType     { return EventThinkingTextMessageEnd }
func (ToolCallStart) EventType() EventType              { return EventToolCallStart }
func (ToolCallArgs) EventType() EventType               { return EventToolCallArgs }
func (ToolCallEnd) EventType() EventType                { return EventToolCallEnd }
func (ToolCallChunk) EventType() EventType              { return EventToolCallChunk }
func (ToolCallResult) EventType() EventType             { return EventToolCallResult }
func (ThinkingStart) EventType() EventType              { return EventThinkingStart }
func (ThinkingEnd) EventType() EventType                { return EventThinkingEnd }
func (StateSnapshot) EventType() EventType              { return EventStateSnapshot }
func (StateDelta) EventType() EventType                 { return EventStateDelta }
func (MessagesSnapshot) EventType() EventType           { return EventMessagesSnapshot }
func (ActivitySnapshot) EventType() EventType           { return EventActivitySnapshot }
func (ActivityDelta) EventType() EventType              { return EventActivityDelta }
func (Raw) EventType() EventType                        { return EventRaw }
func (Custom) EventType() EventType                     { return EventCustom }
func (e UnknownEvent) EventType() EventType             { return e.Type }
