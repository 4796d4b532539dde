package schema

import (
	"regexp"
	"testing"
	"time"
)

func TestGeneratedIDFormats(t *testing.T) {
	old := now
	now = func() time.Time { return time.UnixMilli(1700000000123) }
	t.Cleanup(func() { now = old })

	if got := NewThreadID(); !regexp.MustCompile(`^thread-1700000000123-[0-9a-z]{7}$`).MatchString(string(got)) {
		t.Fatalf("unexpected thread id %q", got)
	}
	if got := NewRunID(); !regexp.MustCompile(`^1700000000123-[0-9a-z]{7}$`).MatchString(string(got)) {
		t.Fatalf("unexpected run id %q", got)
	}
	if got := NewUserMessageID(); got != "user-1700000000123" {
		t.Fatalf("unexpected user message id %q", got)
	}
	placeholder := NewPlaceholderID()
	if !IsPlaceholder(placeholder) {
		t.Fatalf("expected placeholder id, got %q", placeholder)
	}
	if IsPlaceholder("msg-1") {
		t.Fatalf("server id must not look like a placeholder")
	}
}

func TestThreadIDsDiffer(t *testing.T) {
	seen := map[ThreadID]bool{}
	for i := 0; i < 50; i++ {
		id := NewThreadID()
		if seen[id] {
			t.Fatalf("duplicate thread id %q", id)
		}
		seen[id] = true
	}
}
