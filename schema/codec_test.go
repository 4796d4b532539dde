package schema

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeEventVariants(t *testing.T) {
	cases := []struct {
		payload string
		want    EventType
	}{
		{`{"type":"RUN_STARTED","thread_id":"t1","run_id":"r1"}`, EventRunStarted},
		{`{"type":"RUN_FINISHED","thread_id":"t1","run_id":"r1"}`, EventRunFinished},
		{`{"type":"RUN_ERROR","message":"boom"}`, EventRunError},
		{`{"type":"STEP_STARTED","step_name":"plan"}`, EventStepStarted},
		{`{"type":"TEXT_MESSAGE_START","message_id":"m1","role":"assistant"}`, EventTextMessageStart},
		{`{"type":"TEXT_MESSAGE_CONTENT","message_id":"m1","delta":"hi"}`, EventTextMessageContent},
		{`{"type":"TEXT_MESSAGE_END","message_id":"m1"}`, EventTextMessageEnd},
		{`{"type":"TOOL_CALL_START","tool_call_id":"c1","tool_call_name":"search"}`, EventToolCallStart},
		{`{"type":"STATE_DELTA","delta":[{"op":"add","path":"/a","value":1}]}`, EventStateDelta},
		{`{"type":"MESSAGES_SNAPSHOT","messages":[{"id":"m1","role":"user","content":"x"}]}`, EventMessagesSnapshot},
		{`{"type":"CUSTOM","name":"ping","value":{"n":1}}`, EventCustom},
	}
	for _, tc := range cases {
		event, err := DecodeEvent([]byte(tc.payload))
		if err != nil {
			t.Fatalf("decode %s: %v", tc.payload, err)
		}
		if event.EventType() != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, event.EventType())
		}
	}
}

func TestDecodeEventFields(t *testing.T) {
	event, err := DecodeEvent([]byte(`{"type":"TEXT_MESSAGE_CONTENT","message_id":"m1","delta":"héllo","timestamp":42}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	content, ok := event.(TextMessageContent)
	if !ok {
		t.Fatalf("expected TextMessageContent, got %T", event)
	}
	if content.MessageID != "m1" || content.Delta != "héllo" {
		t.Fatalf("unexpected payload: %+v", content)
	}
	if content.Timestamp == nil || *content.Timestamp != 42 {
		t.Fatalf("expected timestamp 42, got %v", content.Timestamp)
	}
}

func TestDecodeEventUnknownType(t *testing.T) {
	event, err := DecodeEvent([]byte(`{"type":"MEANING_OF_LIFE","value":42}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	unknown, ok := event.(UnknownEvent)
	if !ok {
		t.Fatalf("expected UnknownEvent, got %T", event)
	}
	if unknown.Type != "MEANING_OF_LIFE" {
		t.Fatalf("unexpected type %q", unknown.Type)
	}
}

func TestDecodeEventFractionalTimestamp(t *testing.T) {
	event, err := DecodeEvent([]byte(`{"type":"TEXT_MESSAGE_CONTENT","message_id":"m1","delta":"x","timestamp":1700000000.5}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	content, ok := event.(TextMessageContent)
	if !ok {
		t.Fatalf("expected TextMessageContent, got %T", event)
	}
	if content.Timestamp == nil || *content.Timestamp != 1700000000.5 {
		t.Fatalf("expected fractional timestamp, got %v", content.Timestamp)
	}
	if content.Delta != "x" {
		t.Fatalf("unexpected delta %q", content.Delta)
	}
}

func TestDecodeEventCoercesScalarFields(t *testing.T) {
	event, err := DecodeEvent([]byte(`{"type":"RUN_FINISHED","thread_id":"t1","run_id":7}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	finished, ok := event.(RunFinished)
	if !ok {
		t.Fatalf("expected RunFinished, got %T", event)
	}
	if finished.RunID != "7" || finished.ThreadID != "t1" {
		t.Fatalf("unexpected ids: %+v", finished)
	}

	event, err = DecodeEvent([]byte(`{"type":"TEXT_MESSAGE_CONTENT","message_id":12,"delta":5,"timestamp":"soon"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	content := event.(TextMessageContent)
	if content.MessageID != "12" || content.Delta != "5" {
		t.Fatalf("unexpected payload: %+v", content)
	}
	if content.Timestamp != nil {
		t.Fatalf("expected mismatched timestamp to be dropped, got %v", *content.Timestamp)
	}

	event, err = DecodeEvent([]byte(`{"type":"TOOL_CALL_START","tool_call_id":{"id":"c1"},"tool_call_name":"search"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	start := event.(ToolCallStart)
	if start.ToolCallID != "" || start.ToolCallName != "search" {
		t.Fatalf("unexpected payload: %+v", start)
	}
}

func TestDecodeEventRejectsMalformed(t *testing.T) {
	cases := []string{
		`{"type":"TEXT_MESSAGE_CONTENT","delta":`,
		`[1,2,3]`,
		`{"delta":"x"}`,
		`{"type":7}`,
		`{"type":"MESSAGES_SNAPSHOT","messages":[{"id":"m1","role":"user","content":{"x":1}}]}`,
	}
	for _, payload := range cases {
		if _, err := DecodeEvent([]byte(payload)); err == nil {
			t.Fatalf("expected error for %s", payload)
		}
	}
	if _, err := DecodeEvent([]byte(`{"delta":"x"}`)); !errors.Is(err, ErrMissingEventType) {
		t.Fatalf("expected ErrMissingEventType, got %v", err)
	}
}

func TestEncodeEventPutsTypeFirst(t *testing.T) {
	data, err := EncodeEvent(TextMessageContent{MessageID: "m1", Delta: "hi"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"type":"TEXT_MESSAGE_CONTENT","message_id":"m1","delta":"hi"}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}
	data, err = EncodeEvent(ThinkingEnd{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(data) != `{"type":"THINKING_END"}` {
		t.Fatalf("unexpected empty event encoding %s", data)
	}
	decoded, err := DecodeEvent(data)
	if err != nil || decoded.EventType() != EventThinkingEnd {
		t.Fatalf("expected encoded event to decode, got %v %v", decoded, err)
	}
}

func TestChatRequestFieldNames(t *testing.T) {
	data, err := json.Marshal(ChatRequest{ThreadID: "t1", RunID: "r1", Messages: []Message{{ID: "u1", Role: RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"thread_id", "run_id", "state", "messages", "tools", "context", "forwarded_props"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("expected key %q in %s", key, data)
		}
	}
}
