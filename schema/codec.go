package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/tidwall/gjson"
)

// DecodeEvent decodes one JSON event payload. Payloads with an unrecognized
// discriminant decode to UnknownEvent rather than failing.
func DecodeEvent(payload []byte) (Event, error) {
	if !gjson.ValidBytes(payload) {
		return nil, errors.New("invalid event json")
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return nil, errors.New("event payload must be an object")
	}
	typ := root.Get("type")
	if !typ.Exists() || typ.Type != gjson.String || typ.Str == "" {
		return nil, ErrMissingEventType
	}
	eventType := EventType(typ.Str)
	var (
		event Event
		err   error
	)
	switch eventType {
	case EventRunStarted:
		event, err = decodeAs[RunStarted](payload)
	case EventRunFinished:
		event, err = decodeAs[RunFinished](payload)
	case EventRunError:
		event, err = decodeAs[RunError](payload)
	case EventStepStarted:
		event, err = decodeAs[StepStarted](payload)
	case EventStepFinished:
		event, err = decodeAs[StepFinished](payload)
	case EventTextMessageStart:
		event, err = decodeAs[TextMessageStart](payload)
	case EventTextMessageContent:
		event, err = decodeAs[TextMessageContent](payload)
	case EventTextMessageEnd:
		event, err = decodeAs[TextMessageEnd](payload)
	case EventTextMessageChunk:
		event, err = decodeAs[TextMessageChunk](payload)
	case EventThinkingTextMessageStart:
		event, err = decodeAs[ThinkingTextMessageStart](payload)
	case EventThinkingTextMessageContent:
		event, err = decodeAs[ThinkingTextMessageContent](payload)
	case EventThinkingTextMessageEnd:
		event, err = decodeAs[ThinkingTextMessageEnd](payload)
	case EventToolCallStart:
		event, err = decodeAs[ToolCallStart](payload)
	case EventToolCallArgs:
		event, err = decodeAs[ToolCallArgs](payload)
	case EventToolCallEnd:
		event, err = decodeAs[ToolCallEnd](payload)
	case EventToolCallChunk:
		event, err = decodeAs[ToolCallChunk](payload)
	case EventToolCallResult:
		event, err = decodeAs[ToolCallResult](payload)
	case EventThinkingStart:
		event, err = decodeAs[ThinkingStart](payload)
	case EventThinkingEnd:
		event, err = decodeAs[ThinkingEnd](payload)
	case EventStateSnapshot:
		event, err = decodeAs[StateSnapshot](payload)
	case EventStateDelta:
		event, err = decodeAs[StateDelta](payload)
	case EventMessagesSnapshot:
		event, err = decodeAs[MessagesSnapshot](payload)
	case EventActivitySnapshot:
		event, err = decodeAs[ActivitySnapshot](payload)
	case EventActivityDelta:
		event, err = decodeAs[ActivityDelta](payload)
	case EventRaw:
		event, err = decodeAs[Raw](payload)
	case EventCustom:
		event, err = decodeAs[Custom](payload)
	default:
		return UnknownEvent{Type: eventType, Payload: append(json.RawMessage(nil), payload...)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return event, nil
}

// decodeAs decodes payload into T. A top-level field whose JSON type does not
// match is coerced when it is a scalar bound for a string field and dropped
// otherwise, so producers that send numeric ids or fractional timestamps
// still yield an event.
func decodeAs[T Event](payload []byte) (Event, error) {
	for attempts := 0; ; attempts++ {
		var event T
		err := json.Unmarshal(payload, &event)
		if err == nil {
			return event, nil
		}
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) || attempts > maxFieldRepairs {
			return nil, err
		}
		repaired, ok := repairField(payload, typeErr)
		if !ok {
			return nil, err
		}
		payload = repaired
	}
}

const maxFieldRepairs = 32

func repairField(payload []byte, typeErr *json.UnmarshalTypeError) ([]byte, bool) {
	name := typeErr.Field
	if name == "" || strings.Contains(name, ".") || name == "type" {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, false
	}
	if _, ok := fields[name]; !ok {
		return nil, false
	}
	value := gjson.GetBytes(payload, gjson.Escape(name))
	switch {
	case typeErr.Type != nil && typeErr.Type.Kind() == reflect.String &&
		(value.Type == gjson.Number || value.Type == gjson.True || value.Type == gjson.False):
		quoted, err := json.Marshal(value.Raw)
		if err != nil {
			return nil, false
		}
		fields[name] = quoted
	default:
		delete(fields, name)
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, false
	}
	return out, true
}

// EncodeEvent marshals an event with its type discriminant as the first field.
func EncodeEvent(event Event) ([]byte, error) {
	if event == nil {
		return nil, errors.New("nil event")
	}
	if unknown, ok := event.(UnknownEvent); ok {
		return append([]byte(nil), unknown.Payload...), nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	typ, err := json.Marshal(event.EventType())
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+len(typ)+8)
	out = append(out, `{"type":`...)
	out = append(out, typ...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}
