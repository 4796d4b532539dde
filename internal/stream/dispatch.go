package stream

import (
	"context"
	"errors"

	"pkt.systems/agstream/schema"
	"pkt.systems/pslog"
)

// RunHandler receives run lifecycle events.
type RunHandler interface {
	OnRunStarted(schema.RunStarted)
	OnRunFinished(schema.RunFinished)
	OnRunError(schema.RunError)
}

// StepHandler receives step lifecycle events.
type StepHandler interface {
	OnStepStarted(schema.StepStarted)
	OnStepFinished(schema.StepFinished)
}

// TextMessageHandler receives assistant text message events.
type TextMessageHandler interface {
	OnTextMessageStart(schema.TextMessageStart)
	OnTextMessageContent(schema.TextMessageContent)
	OnTextMessageEnd(schema.TextMessageEnd)
	OnTextMessageChunk(schema.TextMessageChunk)
}

// ThinkingHandler receives reasoning events.
type ThinkingHandler interface {
	OnThinkingStart(schema.ThinkingStart)
	OnThinkingEnd(schema.ThinkingEnd)
	OnThinkingTextMessageStart(schema.ThinkingTextMessageStart)
	OnThinkingTextMessageContent(schema.ThinkingTextMessageContent)
	OnThinkingTextMessageEnd(schema.ThinkingTextMessageEnd)
}

// ToolCallHandler receives tool call events.
type ToolCallHandler interface {
	OnToolCallStart(schema.ToolCallStart)
	OnToolCallArgs(schema.ToolCallArgs)
	OnToolCallEnd(schema.ToolCallEnd)
	OnToolCallChunk(schema.ToolCallChunk)
	OnToolCallResult(schema.ToolCallResult)
}

// StateHandler receives agent state and message snapshot events.
type StateHandler interface {
	OnStateSnapshot(schema.StateSnapshot)
	OnStateDelta(schema.StateDelta)
	OnMessagesSnapshot(schema.MessagesSnapshot)
}

// ActivityHandler receives activity events.
type ActivityHandler interface {
	OnActivitySnapshot(schema.ActivitySnapshot)
	OnActivityDelta(schema.ActivityDelta)
}

// ExtensionHandler receives raw passthrough and custom events.
type ExtensionHandler interface {
	OnRaw(schema.Raw)
	OnCustom(schema.Custom)
}

// Dispatcher routes decoded events to the capabilities a handler implements.
// It keeps no state of its own between events.
type Dispatcher struct {
	run      RunHandler
	step     StepHandler
	text     TextMessageHandler
	thinking ThinkingHandler
	tool     ToolCallHandler
	state    StateHandler
	activity ActivityHandler
	ext      ExtensionHandler
	log      pslog.Logger
}

// NewDispatcher inspects handler once for the capability interfaces above.
// A nil or capability-less handler is valid; its events are dropped.
func NewDispatcher(handler any, logger pslog.Logger) *Dispatcher {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	d := &Dispatcher{log: logger}
	if handler == nil {
		return d
	}
	d.run, _ = handler.(RunHandler)
	d.step, _ = handler.(StepHandler)
	d.text, _ = handler.(TextMessageHandler)
	d.thinking, _ = handler.(ThinkingHandler)
	d.tool, _ = handler.(ToolCallHandler)
	d.state, _ = handler.(StateHandler)
	d.activity, _ = handler.(ActivityHandler)
	d.ext, _ = handler.(ExtensionHandler)
	return d
}

// HandleLine parses one framed line and dispatches the resulting event.
// Malformed frames are logged once and dropped.
func (d *Dispatcher) HandleLine(line string) {
	event, err := ParseLine(line)
	if err != nil {
		var frameErr *FrameError
		if errors.As(err, &frameErr) {
			d.log.Warn("stream frame decode failed", "err", frameErr.Err, "payload", frameErr.Payload)
		} else {
			d.log.Warn("stream frame decode failed", "err", err)
		}
		return
	}
	if event == nil {
		return
	}
	d.Dispatch(event)
}

// Dispatch invokes the single callback matching the event's variant.
func (d *Dispatcher) Dispatch(event schema.Event) {
	handled := true
	switch ev := event.(type) {
	case schema.RunStarted:
		handled = d.run != nil
		if handled {
			d.run.OnRunStarted(ev)
		}
	case schema.RunFinished:
		handled = d.run != nil
		if handled {
			d.run.OnRunFinished(ev)
		}
	case schema.RunError:
		handled = d.run != nil
		if handled {
			d.run.OnRunError(ev)
		}
	case schema.StepStarted:
		handled = d.step != nil
		if handled {
			d.step.OnStepStarted(ev)
		}
	case schema.StepFinished:
		handled = d.step != nil
		if handled {
			d.step.OnStepFinished(ev)
		}
	case schema.TextMessageStart:
		handled = d.text != nil
		if handled {
			d.text.OnTextMessageStart(ev)
		}
	case schema.TextMessageContent:
		handled = d.text != nil
		if handled {
			d.text.OnTextMessageContent(ev)
		}
	case schema.TextMessageEnd:
		handled = d.text != nil
		if handled {
			d.text.OnTextMessageEnd(ev)
		}
	case schema.TextMessageChunk:
		handled = d.text != nil
		if handled {
			d.text.OnTextMessageChunk(ev)
		}
	case schema.ThinkingStart:
		handled = d.thinking != nil
		if handled {
			d.thinking.OnThinkingStart(ev)
		}
	case schema.ThinkingEnd:
		handled = d.thinking != nil
		if handled {
			d.thinking.OnThinkingEnd(ev)
		}
	case schema.ThinkingTextMessageStart:
		handled = d.thinking != nil
		if handled {
			d.thinking.OnThinkingTextMessageStart(ev)
		}
	case schema.ThinkingTextMessageContent:
		handled = d.thinking != nil
		if handled {
			d.thinking.OnThinkingTextMessageContent(ev)
		}
	case schema.ThinkingTextMessageEnd:
		handled = d.thinking != nil
		if handled {
			d.thinking.OnThinkingTextMessageEnd(ev)
		}
	case schema.ToolCallStart:
		handled = d.tool != nil
		if handled {
			d.tool.OnToolCallStart(ev)
		}
	case schema.ToolCallArgs:
		handled = d.tool != nil
		if handled {
			d.tool.OnToolCallArgs(ev)
		}
	case schema.ToolCallEnd:
		handled = d.tool != nil
		if handled {
			d.tool.OnToolCallEnd(ev)
		}
	case schema.ToolCallChunk:
		handled = d.tool != nil
		if handled {
			d.tool.OnToolCallChunk(ev)
		}
	case schema.ToolCallResult:
		handled = d.tool != nil
		if handled {
			d.tool.OnToolCallResult(ev)
		}
	case schema.StateSnapshot:
		handled = d.state != nil
		if handled {
			d.state.OnStateSnapshot(ev)
		}
	case schema.StateDelta:
		handled = d.state != nil
		if handled {
			d.state.OnStateDelta(ev)
		}
	case schema.MessagesSnapshot:
		handled = d.state != nil
		if handled {
			d.state.OnMessagesSnapshot(ev)
		}
	case schema.ActivitySnapshot:
		handled = d.activity != nil
		if handled {
			d.activity.OnActivitySnapshot(ev)
		}
	case schema.ActivityDelta:
		handled = d.activity != nil
		if handled {
			d.activity.OnActivityDelta(ev)
		}
	case schema.Raw:
		handled = d.ext != nil
		if handled {
			d.ext.OnRaw(ev)
		}
	case schema.Custom:
		handled = d.ext != nil
		if handled {
			d.ext.OnCustom(ev)
		}
	default:
		var eventType schema.EventType
		if event != nil {
			eventType = event.EventType()
		}
		d.log.Warn("stream unknown event type", "type", eventType)
		return
	}
	if !handled {
		d.log.Trace("stream event unhandled", "type", event.EventType())
	}
}
