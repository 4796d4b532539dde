package eventbus

import (
	"context"
	"sync"

	"pkt.systems/agstream/schema"
	"pkt.systems/pslog"
)

// AllThreads subscribes to updates of every thread.
const AllThreads schema.ThreadID = ""

// Bus fans session updates out to per-thread subscribers. It implements the
// session event sink; publishing never blocks.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.ThreadID]map[chan schema.SessionUpdate]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.ThreadID]map[chan schema.SessionUpdate]struct{}),
		log:   logger,
		depth: 1024,
	}
}

// Subscribe registers a subscriber for the thread and returns a channel + cancel.
// AllThreads receives every update.
func (b *Bus) Subscribe(threadID schema.ThreadID) (<-chan schema.SessionUpdate, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan schema.SessionUpdate, b.depth)
	b.mu.Lock()
	threadSubs := b.subs[threadID]
	if threadSubs == nil {
		threadSubs = make(map[chan schema.SessionUpdate]struct{})
		b.subs[threadID] = threadSubs
	}
	threadSubs[ch] = struct{}{}
	count := len(threadSubs)
	b.mu.Unlock()
	b.log.Debug("eventbus subscribe", "thread", threadID, "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[threadID]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, threadID)
				}
			}
			close(ch)
			b.mu.Unlock()
			b.log.Debug("eventbus unsubscribe", "thread", threadID)
		})
	}
}

// OnSessionUpdate publishes an update to the thread's subscribers and to
// AllThreads subscribers.
func (b *Bus) OnSessionUpdate(update schema.SessionUpdate) {
	if b == nil {
		return
	}
	dropped := 0
	b.mu.Lock()
	dropped += deliver(b.subs[AllThreads], update)
	if update.ThreadID != AllThreads {
		dropped += deliver(b.subs[update.ThreadID], update)
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.Trace("eventbus dropped", "thread", update.ThreadID, "type", update.Type, "count", dropped)
	}
}

func deliver(subs map[chan schema.SessionUpdate]struct{}, update schema.SessionUpdate) int {
	dropped := 0
	for sub := range subs {
		select {
		case sub <- update:
		default:
			dropped++
		}
	}
	return dropped
}
