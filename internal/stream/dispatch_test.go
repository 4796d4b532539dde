package stream

import (
	"testing"

	"pkt.systems/agstream/schema"
)

type recorder struct {
	got []schema.EventType
}

func (r *recorder) add(e schema.Event) { r.got = append(r.got, e.EventType()) }

func (r *recorder) OnRunStarted(e schema.RunStarted)                 { r.add(e) }
func (r *recorder) OnRunFinished(e schema.RunFinished)               { r.add(e) }
func (r *recorder) OnRunError(e schema.RunError)                     { r.add(e) }
func (r *recorder) OnStepStarted(e schema.StepStarted)               { r.add(e) }
func (r *recorder) OnStepFinished(e schema.StepFinished)             { r.add(e) }
func (r *recorder) OnTextMessageStart(e schema.TextMessageStart)     { r.add(e) }
func (r *recorder) OnTextMessageContent(e schema.TextMessageContent) { r.add(e) }
func (r *recorder) OnTextMessageEnd(e schema.TextMessageEnd)         { r.add(e) }
func (r *recorder) OnTextMessageChunk(e schema.TextMessageChunk)     { r.add(e) }
func (r *recorder) OnThinkingStart(e schema.ThinkingStart)           { r.add(e) }
func (r *recorder) OnThinkingEnd(e schema.ThinkingEnd)               { r.add(e) }
func (r *recorder) OnThinkingTextMessageStart(e schema.ThinkingTextMessageStart) {
	r.add(e)
}
func (r *recorder) OnThinkingTextMessageContent(e schema.ThinkingTextMessageContent) {
	r.add(e)
}
func (r *recorder) OnThinkingTextMessageEnd(e schema.ThinkingTextMessageEnd) { r.add(e) }
func (r *recorder) OnToolCallStart(e schema.ToolCallStart)                   { r.add(e) }
func (r *recorder) OnToolCallArgs(e schema.ToolCallArgs)                     { r.add(e) }
func (r *recorder) OnToolCallEnd(e schema.ToolCallEnd)                       { r.add(e) }
func (r *recorder) OnToolCallChunk(e schema.ToolCallChunk)                   { r.add(e) }
func (r *recorder) OnToolCallResult(e schema.ToolCallResult)                 { r.add(e) }
func (r *recorder) OnStateSnapshot(e schema.StateSnapshot)                   { r.add(e) }
func (r *recorder) OnStateDelta(e schema.StateDelta)                         { r.add(e) }
func (r *recorder) OnMessagesSnapshot(e schema.MessagesSnapshot)             { r.add(e) }
func (r *recorder) OnActivitySnapshot(e schema.ActivitySnapshot)             { r.add(e) }
func (r *recorder) OnActivityDelta(e schema.ActivityDelta)                   { r.add(e) }
func (r *recorder) OnRaw(e schema.Raw)                                       { r.add(e) }
func (r *recorder) OnCustom(e schema.Custom)                                 { r.add(e) }

func allEvents() []schema.Event {
	return []schema.Event{
		schema.RunStarted{}, schema.RunFinished{}, schema.RunError{},
		schema.StepStarted{}, schema.StepFinished{},
		schema.TextMessageStart{}, schema.TextMessageContent{}, schema.TextMessageEnd{}, schema.TextMessageChunk{},
		schema.ThinkingStart{}, schema.ThinkingEnd{},
		schema.ThinkingTextMessageStart{}, schema.ThinkingTextMessageContent{}, schema.ThinkingTextMessageEnd{},
		schema.ToolCallStart{}, schema.ToolCallArgs{}, schema.ToolCallEnd{}, schema.ToolCallChunk{}, schema.ToolCallResult{},
		schema.StateSnapshot{}, schema.StateDelta{}, schema.MessagesSnapshot{},
		schema.ActivitySnapshot{}, schema.ActivityDelta{},
		schema.Raw{}, schema.Custom{},
	}
}

func TestDispatchRoutesEachVariantOnce(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, nil)
	events := allEvents()
	for _, event := range events {
		d.Dispatch(event)
	}
	if len(rec.got) != len(events) {
		t.Fatalf("expected %d callbacks, got %d (%v)", len(events), len(rec.got), rec.got)
	}
	for i, event := range events {
		if rec.got[i] != event.EventType() {
			t.Fatalf("event %d: expected %s, got %s", i, event.EventType(), rec.got[i])
		}
	}
}

type textOnly struct {
	deltas []string
}

func (h *textOnly) OnTextMessageStart(schema.TextMessageStart) {}
func (h *textOnly) OnTextMessageContent(e schema.TextMessageContent) {
	h.deltas = append(h.deltas, e.Delta)
}
func (h *textOnly) OnTextMessageEnd(schema.TextMessageEnd)     {}
func (h *textOnly) OnTextMessageChunk(schema.TextMessageChunk) {}

func TestDispatchMissingCapabilityIsNoop(t *testing.T) {
	h := &textOnly{}
	d := NewDispatcher(h, nil)
	for _, event := range allEvents() {
		d.Dispatch(event)
	}
	d.Dispatch(schema.TextMessageContent{Delta: "A"})
	if len(h.deltas) != 2 || h.deltas[1] != "A" {
		t.Fatalf("expected content callbacks only, got %v", h.deltas)
	}

	NewDispatcher(nil, nil).Dispatch(schema.RunStarted{})
}

func TestDispatchUnknownTypeLogsOnce(t *testing.T) {
	capture := &logCapture{}
	rec := &recorder{}
	d := NewDispatcher(rec, capture.logger())
	d.HandleLine(`data: {"type":"NOT_A_REAL_EVENT","x":1}`)
	d.HandleLine(`data: {"type":"RUN_FINISHED","thread_id":"t","run_id":"r"}`)
	if got := capture.count(t, "stream unknown event type"); got != 1 {
		t.Fatalf("expected 1 unknown type warning, got %d", got)
	}
	if len(rec.got) != 1 || rec.got[0] != schema.EventRunFinished {
		t.Fatalf("expected stream to continue after unknown type, got %v", rec.got)
	}
}

func TestHandleLineLogsMalformedFrameOnce(t *testing.T) {
	capture := &logCapture{}
	rec := &recorder{}
	d := NewDispatcher(rec, capture.logger())
	d.HandleLine(`data: {"type":"TEXT_MESSAGE_CONTENT","delta":`)
	d.HandleLine(`: comment`)
	d.HandleLine(`data: {"type":"TEXT_MESSAGE_END","message_id":"m"}`)
	if got := capture.count(t, "stream frame decode failed"); got != 1 {
		t.Fatalf("expected exactly one decode failure log, got %d", got)
	}
	if len(rec.got) != 1 || rec.got[0] != schema.EventTextMessageEnd {
		t.Fatalf("expected later frames to dispatch, got %v", rec.got)
	}
}

func TestNopHandlerCoversEveryCapability(t *testing.T) {
	var h any = NopHandler{}
	if _, ok := h.(RunHandler); !ok {
		t.Fatalf("NopHandler missing RunHandler")
	}
	if _, ok := h.(ThinkingHandler); !ok {
		t.Fatalf("NopHandler missing ThinkingHandler")
	}
	if _, ok := h.(ExtensionHandler); !ok {
		t.Fatalf("NopHandler missing ExtensionHandler")
	}
	d := NewDispatcher(NopHandler{}, nil)
	for _, event := range allEvents() {
		d.Dispatch(event)
	}
}
