package core

import "pkt.systems/agstream/schema"

// EventSink receives session updates in the order the changes happened.
// Implementations must not call mutating Session methods.
type EventSink interface {
	OnSessionUpdate(update schema.SessionUpdate)
}

// Fanout forwards updates to every non-nil sink.
type Fanout []EventSink

// OnSessionUpdate implements EventSink.
func (f Fanout) OnSessionUpdate(update schema.SessionUpdate) {
	for _, sink := range f {
		if sink == nil {
			continue
		}
		sink.OnSessionUpdate(update)
	}
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(schema.SessionUpdate)

// OnSessionUpdate implements EventSink.
func (f SinkFunc) OnSessionUpdate(update schema.SessionUpdate) {
	f(update)
}
