package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"pkt.systems/agstream/internal/format"
	"pkt.systems/agstream/internal/logx"
	"pkt.systems/agstream/schema"
	"pkt.systems/pslog"
)

// ErrQuit is returned by Handle for /quit.
var ErrQuit = errors.New("quit")

// Session is the part of a chat session the commands drive.
type Session interface {
	ThreadID() schema.ThreadID
	Sending() bool
	CreateNewChat() schema.ThreadID
	LoadHistories(ctx context.Context) ([]schema.HistoryItem, error)
	LoadHistoryChat(ctx context.Context, threadID schema.ThreadID) error
	AbortSending()
	Transcript() []schema.Message
	State() json.RawMessage
}

// Handler routes slash commands to session operations and writes their
// output lines.
type Handler struct {
	session  Session
	out      io.Writer
	renderer *format.PlainRenderer
}

// NewHandler constructs a command handler.
func NewHandler(session Session, out io.Writer) *Handler {
	return &Handler{session: session, out: out, renderer: format.NewPlainRenderer()}
}

// Handle inspects input and executes slash commands. It reports false for
// input that should be sent as a prompt.
func (h *Handler) Handle(ctx context.Context, input string) (bool, error) {
	if ctx == nil {
		return false, errors.New("missing context")
	}
	cmd, ok := Parse(input)
	if !ok {
		return false, nil
	}
	log := logx.CtxThread(ctx, h.session.ThreadID()).With("command", cmd.Name, "args", len(cmd.Args))
	log.Debug("command slash request")
	switch cmd.Name {
	case "":
		log.Warn("command slash rejected", "reason", "empty")
		return true, fmt.Errorf("invalid command")
	case "new":
		return true, h.handleNew(log)
	case "histories", "ls":
		return true, h.handleHistories(ctx, log)
	case "load":
		return true, h.handleLoad(ctx, log, cmd)
	case "abort", "stop":
		return true, h.handleAbort(log)
	case "transcript":
		return true, h.handleTranscript()
	case "state":
		return true, h.handleState()
	case "thread":
		h.lines(fmt.Sprintf("thread: %s", h.session.ThreadID()))
		return true, nil
	case "help":
		h.lines(helpLines()...)
		return true, nil
	case "quit", "exit", "q":
		return true, ErrQuit
	default:
		log.Warn("command slash rejected", "reason", "unknown")
		return true, fmt.Errorf("unknown command: /%s", cmd.Name)
	}
}

func (h *Handler) handleNew(log pslog.Logger) error {
	threadID := h.session.CreateNewChat()
	log.Info("command new completed", "new_thread", threadID)
	return nil
}

func (h *Handler) handleHistories(ctx context.Context, log pslog.Logger) error {
	items, err := h.session.LoadHistories(ctx)
	if err != nil {
		log.Warn("command histories failed", "err", err)
		return err
	}
	h.lines(h.renderer.FormatHistories(items)...)
	return nil
}

func (h *Handler) handleLoad(ctx context.Context, log pslog.Logger, cmd Command) error {
	threadID := schema.ThreadID(cmd.Arg(0))
	if threadID == "" {
		return fmt.Errorf("usage: /load <thread_id>")
	}
	if err := h.session.LoadHistoryChat(ctx, threadID); err != nil {
		log.Warn("command load failed", "target", string(threadID), "err", err)
		return err
	}
	h.lines(h.renderer.FormatTranscript(h.session.Transcript())...)
	return nil
}

func (h *Handler) handleAbort(log pslog.Logger) error {
	if !h.session.Sending() {
		h.lines("nothing to abort")
		return nil
	}
	h.session.AbortSending()
	log.Info("command abort completed")
	return nil
}

func (h *Handler) handleTranscript() error {
	h.lines(h.renderer.FormatTranscript(h.session.Transcript())...)
	return nil
}

func (h *Handler) handleState() error {
	state := h.session.State()
	if len(state) == 0 {
		h.lines("(no state)")
		return nil
	}
	pretty := gjson.GetBytes(state, "@pretty").String()
	h.lines(strings.Split(strings.TrimRight(pretty, "\n"), "\n")...)
	return nil
}

func (h *Handler) lines(lines ...string) {
	for _, line := range lines {
		_, _ = fmt.Fprintln(h.out, line)
	}
}

func helpLines() []string {
	return []string{
		"commands:",
		"  /new                start a new conversation",
		"  /histories          list stored conversations",
		"  /load <thread_id>   open a stored conversation",
		"  /abort              stop the reply in progress",
		"  /transcript         print the conversation",
		"  /state              print the agent state",
		"  /thread             print the current thread id",
		"  /help               show this help",
		"  /quit               leave",
		"any other line is sent as a message; start it with // to send a leading /",
	}
}
