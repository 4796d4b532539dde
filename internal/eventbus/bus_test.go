package eventbus

import (
	"testing"
	"time"

	"pkt.systems/agstream/schema"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe("thread-a")
	defer cancel()

	bus.OnSessionUpdate(schema.SessionUpdate{Type: schema.UpdateStreaming, ThreadID: "thread-a", Delta: "hi"})

	select {
	case got := <-ch:
		if got.Type != schema.UpdateStreaming || got.Delta != "hi" {
			t.Fatalf("unexpected update: %+v", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for update")
	}
}

func TestSubscribersOnlySeeTheirThread(t *testing.T) {
	bus := New(nil)
	a, cancelA := bus.Subscribe("thread-a")
	defer cancelA()
	all, cancelAll := bus.Subscribe(AllThreads)
	defer cancelAll()

	bus.OnSessionUpdate(schema.SessionUpdate{Type: schema.UpdateThread, ThreadID: "thread-b"})

	select {
	case got := <-all:
		if got.ThreadID != "thread-b" {
			t.Fatalf("unexpected update: %+v", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for update")
	}
	select {
	case got := <-a:
		t.Fatalf("unexpected update for other thread: %+v", got)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe("thread-a")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	bus.OnSessionUpdate(schema.SessionUpdate{ThreadID: "thread-a"})
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	_, cancel := bus.Subscribe("thread-a")
	defer cancel()

	bus.OnSessionUpdate(schema.SessionUpdate{ThreadID: "thread-a"})
	done := make(chan struct{})
	go func() {
		bus.OnSessionUpdate(schema.SessionUpdate{ThreadID: "thread-a"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full channel")
	}
}
