package client

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"pkt.systems/pslog"
)

type logCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *logCapture) logger() pslog.Logger {
	return pslog.NewWithOptions(c, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.DebugLevel,
		VerboseFields: true,
	})
}

func (c *logCapture) entries(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	data := append([]byte(nil), c.buf.Bytes()...)
	c.mu.Unlock()
	var out []map[string]any
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		entry := map[string]any{}
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("parse log entry: %v", err)
		}
		out = append(out, entry)
	}
	return out
}

func (c *logCapture) count(t *testing.T, msg string) int {
	t.Helper()
	n := 0
	for _, entry := range c.entries(t) {
		if entryMessage(entry) == msg {
			n++
		}
	}
	return n
}

func entryMessage(entry map[string]any) string {
	if msg, ok := entry["message"].(string); ok {
		return msg
	}
	if msg, ok := entry["msg"].(string); ok {
		return msg
	}
	return ""
}
