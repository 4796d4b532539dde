package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"pkt.systems/agstream/internal/format"
	"pkt.systems/agstream/schema"
	"pkt.systems/pslog"
)

type fakeSession struct {
	thread     schema.ThreadID
	sending    bool
	aborted    int
	newChats   int
	histories  []schema.HistoryItem
	historyErr error
	loaded     []schema.ThreadID
	loadErr    error
	transcript []schema.Message
	state      json.RawMessage
}

func (f *fakeSession) ThreadID() schema.ThreadID { return f.thread }
func (f *fakeSession) Sending() bool             { return f.sending }

func (f *fakeSession) CreateNewChat() schema.ThreadID {
	f.newChats++
	f.thread = "thread-new"
	return f.thread
}

func (f *fakeSession) LoadHistories(context.Context) ([]schema.HistoryItem, error) {
	return f.histories, f.historyErr
}

func (f *fakeSession) LoadHistoryChat(_ context.Context, id schema.ThreadID) error {
	f.loaded = append(f.loaded, id)
	if f.loadErr != nil {
		return f.loadErr
	}
	f.thread = id
	return nil
}

func (f *fakeSession) AbortSending() {
	f.aborted++
	f.sending = false
}

func (f *fakeSession) Transcript() []schema.Message { return f.transcript }
func (f *fakeSession) State() json.RawMessage       { return f.state }

func TestHandleIgnoresPlainInput(t *testing.T) {
	var out bytes.Buffer
	handled, err := NewHandler(&fakeSession{}, &out).Handle(context.Background(), "hello there")
	if err != nil || handled {
		t.Fatalf("expected plain input unhandled, got %v %v", handled, err)
	}
	handled, _ = NewHandler(&fakeSession{}, &out).Handle(context.Background(), "//etc/hosts")
	if handled {
		t.Fatalf("expected escaped slash unhandled")
	}
}

func TestHandleNewStartsThread(t *testing.T) {
	var out bytes.Buffer
	session := &fakeSession{thread: "thread-old"}
	handled, err := NewHandler(session, &out).Handle(context.Background(), "/NEW")
	if err != nil || !handled {
		t.Fatalf("Handle: %v %v", handled, err)
	}
	if session.newChats != 1 || session.thread != "thread-new" {
		t.Fatalf("expected new chat, got %+v", session)
	}
}

func TestHandleHistoriesPrintsRows(t *testing.T) {
	var out bytes.Buffer
	session := &fakeSession{histories: []schema.HistoryItem{{ThreadID: "t1", Name: "greeting"}}}
	if _, err := NewHandler(session, &out).Handle(context.Background(), "/histories"); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(out.String(), "t1  greeting") {
		t.Fatalf("expected history row, got %q", out.String())
	}
}

func TestHandleLoadUsageAndSuccess(t *testing.T) {
	var out bytes.Buffer
	session := &fakeSession{transcript: []schema.Message{{Role: schema.RoleUser, Content: "q"}, {Role: schema.RoleAssistant, Content: "a"}}}
	handler := NewHandler(session, &out)
	if _, err := handler.Handle(context.Background(), "/load"); err == nil || !strings.Contains(err.Error(), "usage: /load") {
		t.Fatalf("expected usage error, got %v", err)
	}
	if _, err := handler.Handle(context.Background(), "/load t1"); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(session.loaded) != 1 || session.loaded[0] != "t1" {
		t.Fatalf("expected load of t1, got %v", session.loaded)
	}
	want := format.UserMarker + "q\n" + format.AssistantMarker + "a\n"
	if out.String() != want {
		t.Fatalf("expected %q, got %q", want, out.String())
	}
}

func TestHandleLoadFailureLogs(t *testing.T) {
	capture := newLogCapture(t)
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		VerboseFields: true,
		MinLevel:      pslog.DebugLevel,
	})
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	session := &fakeSession{thread: "thread-1", loadErr: schema.ErrThreadNotFound}
	var out bytes.Buffer
	_, err := NewHandler(session, &out).Handle(ctx, "/load missing")
	if !errors.Is(err, schema.ErrThreadNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	found := false
	for _, entry := range capture.Entries() {
		if entry.Message == "command load failed" && entry.Fields["thread"] == "thread-1" && fmt.Sprint(entry.Fields["target"]) == "missing" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected load failure log, got %v", capture.Lines())
	}
}

func TestHandleAbort(t *testing.T) {
	var out bytes.Buffer
	session := &fakeSession{}
	handler := NewHandler(session, &out)
	if _, err := handler.Handle(context.Background(), "/abort"); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if session.aborted != 0 || !strings.Contains(out.String(), "nothing to abort") {
		t.Fatalf("expected no abort, got %d %q", session.aborted, out.String())
	}
	session.sending = true
	if _, err := handler.Handle(context.Background(), "/abort"); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if session.aborted != 1 {
		t.Fatalf("expected abort, got %d", session.aborted)
	}
}

func TestHandleStatePrettyPrints(t *testing.T) {
	var out bytes.Buffer
	session := &fakeSession{}
	handler := NewHandler(session, &out)
	if _, err := handler.Handle(context.Background(), "/state"); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if strings.TrimSpace(out.String()) != "(no state)" {
		t.Fatalf("unexpected output %q", out.String())
	}
	out.Reset()
	session.state = json.RawMessage(`{"turns":2}`)
	if _, err := handler.Handle(context.Background(), "/state"); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(out.String(), `"turns": 2`) {
		t.Fatalf("expected pretty state, got %q", out.String())
	}
}

func TestHandleQuitAndUnknown(t *testing.T) {
	var out bytes.Buffer
	handler := NewHandler(&fakeSession{}, &out)
	if _, err := handler.Handle(context.Background(), "/quit"); !errors.Is(err, ErrQuit) {
		t.Fatalf("expected quit, got %v", err)
	}
	if _, err := handler.Handle(context.Background(), "/bogus"); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if _, err := handler.Handle(context.Background(), "/"); err == nil {
		t.Fatalf("expected invalid command error")
	}
}

func TestHandleHelpListsCommands(t *testing.T) {
	var out bytes.Buffer
	if _, err := NewHandler(&fakeSession{}, &out).Handle(context.Background(), "/help"); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	for _, name := range []string{"/new", "/histories", "/load", "/abort", "/transcript", "/state", "/quit"} {
		if !strings.Contains(out.String(), name) {
			t.Fatalf("expected %s in help, got %q", name, out.String())
		}
	}
}

type logEntry struct {
	Level   string
	Message string
	Fields  map[string]any
	Raw     string
}

type logCapture struct {
	t     *testing.T
	mu    sync.Mutex
	buf   bytes.Buffer
	lines []string
}

func newLogCapture(t *testing.T) *logCapture {
	t.Helper()
	return &logCapture{t: t}
}

func (c *logCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.buf.Write(p)
	for {
		data := c.buf.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx == -1 {
			break
		}
		c.lines = append(c.lines, string(data[:idx]))
		c.buf.Next(idx + 1)
	}
	return len(p), nil
}

func (c *logCapture) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *logCapture) Entries() []logEntry {
	lines := c.Lines()
	entries := make([]logEntry, 0, len(lines))
	for _, line := range lines {
		payload := map[string]any{}
		if err := json.Unmarshal([]byte(line), &payload); err != nil {
			entries = append(entries, logEntry{Raw: line})
			continue
		}
		level, _ := payload["level"].(string)
		message, _ := payload["message"].(string)
		if message == "" {
			message, _ = payload["msg"].(string)
		}
		entries = append(entries, logEntry{Level: level, Message: message, Fields: payload, Raw: line})
	}
	return entries
}

func TestParse(t *testing.T) {
	cases := []struct {
		input     string
		ok        bool
		name      string
		remainder string
	}{
		{"hello", false, "", ""},
		{"  /Load  t1  extra", true, "load", "t1  extra"},
		{"/", true, "", ""},
		{"//not a command", false, "", ""},
	}
	for _, tc := range cases {
		cmd, ok := Parse(tc.input)
		if ok != tc.ok || cmd.Name != tc.name || cmd.Remainder != tc.remainder {
			t.Fatalf("Parse(%q) = %+v, %v", tc.input, cmd, ok)
		}
	}
	if got := Unescape("//etc"); got != "/etc" {
		t.Fatalf("unexpected unescape %q", got)
	}
	if got := Unescape("plain"); got != "plain" {
		t.Fatalf("unexpected unescape %q", got)
	}
}
