package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/pslog"
)

func newCaptureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

func TestWithThreadAndRunAddFields(t *testing.T) {
	capture := &logCapture{}
	log := WithRun(WithThread(newCaptureLogger(capture), "thread-1"), "run-1")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["thread"] != "thread-1" {
		t.Fatalf("expected thread field, got %+v", entry)
	}
	if entry["run"] != "run-1" {
		t.Fatalf("expected run field, got %+v", entry)
	}
}

func TestWithThreadSkipsEmpty(t *testing.T) {
	capture := &logCapture{}
	WithRun(WithThread(newCaptureLogger(capture), ""), "").Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry["thread"]; ok {
		t.Fatalf("did not expect thread field, got %+v", entry)
	}
	if _, ok := entry["run"]; ok {
		t.Fatalf("did not expect run field, got %+v", entry)
	}
}

func TestCtxThreadDeduplicates(t *testing.T) {
	capture := &logCapture{}
	base := WithThread(newCaptureLogger(capture), "thread-1")
	ctx := ContextWithThreadLogger(context.Background(), base, "thread-1")
	CtxThread(ctx, "thread-1").Info("hello")

	line := capture.buf.String()
	if n := bytes.Count([]byte(line), []byte(`"thread"`)); n != 1 {
		t.Fatalf("expected one thread field, got %d in %s", n, line)
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
