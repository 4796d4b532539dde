package stream

import "pkt.systems/agstream/schema"

// NopHandler implements every capability with no-ops. Embed it to handle a
// subset of events.
type NopHandler struct{}

func (NopHandler) OnRunStarted(schema.RunStarted)                                 {}
func (NopHandler) OnRunFinished(schema.RunFinished)                               {}
func (NopHandler) OnRunError(schema.RunError)                                     {}
func (NopHandler) OnStepStarted(schema.StepStarted)                               {}
func (NopHandler) OnStepFinished(schema.StepFinished)                             {}
func (NopHandler) OnTextMessageStart(schema.TextMessageStart)                     {}
func (NopHandler) OnTextMessageContent(schema.TextMessageContent)                 {}
func (NopHandler) OnTextMessageEnd(schema.TextMessageEnd)                         {}
func (NopHandler) OnTextMessageChunk(schema.TextMessageChunk)                     {}
func (NopHandler) OnThinkingStart(schema.ThinkingStart)                           {}
func (NopHandler) OnThinkingEnd(schema.ThinkingEnd)                               {}
func (NopHandler) OnThinkingTextMessageStart(schema.ThinkingTextMessageStart)     {}
func (NopHandler) OnThinkingTextMessageContent(schema.ThinkingTextMessageContent) {}
func (NopHandler) OnThinkingTextMessageEnd(schema.ThinkingTextMessageEnd)         {}
func (NopHandler) OnToolCallStart(schema.ToolCallStart)                           {}
func (NopHandler) OnToolCallArgs(schema.ToolCallArgs)                             {}
func (NopHandler) OnToolCallEnd(schema.ToolCallEnd)                               {}
func (NopHandler) OnToolCallChunk(schema.ToolCallChunk)                           {}
func (NopHandler) OnToolCallResult(schema.ToolCallResult)                         {}
func (NopHandler) OnStateSnapshot(schema.StateSnapshot)                           {}
func (NopHandler) OnStateDelta(schema.StateDelta)                                 {}
func (NopHandler) OnMessagesSnapshot(schema.MessagesSnapshot)                     {}
func (NopHandler) OnActivitySnapshot(schema.ActivitySnapshot)                     {}
func (NopHandler) OnActivityDelta(schema.ActivityDelta)                           {}
func (NopHandler) OnRaw(schema.Raw)                                               {}
func (NopHandler) OnCustom(schema.Custom)                                         {}
