package format

import (
	"fmt"
	"io"
	"strings"

	"pkt.systems/agstream/schema"
)

type liveMode int

const (
	modeIdle liveMode = iota
	modeAgent
	modeThinking
)

// LiveOptions selects the optional parts of a live rendering.
type LiveOptions struct {
	ShowThinking bool
	ShowTools    bool
	EchoUser     bool
}

// LivePrinter writes session updates to a terminal as they arrive.
// Assistant deltas are printed inline; other updates as whole lines.
// It is not safe for concurrent use.
type LivePrinter struct {
	out      io.Writer
	renderer *PlainRenderer
	opts     LiveOptions
	mode     liveMode
	streamed schema.MessageID
}

// NewLivePrinter returns a printer writing to out.
func NewLivePrinter(out io.Writer, opts LiveOptions) *LivePrinter {
	return &LivePrinter{out: out, renderer: NewPlainRenderer(), opts: opts}
}

// Print renders one update.
func (p *LivePrinter) Print(update schema.SessionUpdate) {
	switch update.Type {
	case schema.UpdateStreaming:
		if update.Delta == "" || update.Message == nil {
			return
		}
		p.enter(modeAgent, AssistantMarker)
		p.streamed = update.Message.ID
		p.write(strings.ReplaceAll(update.Delta, "\n", "\n"+AssistantMarker))
	case schema.UpdateMessage:
		if update.Message == nil {
			return
		}
		msg := *update.Message
		if msg.Role == schema.RoleAssistant && p.mode == modeAgent && p.streamed == msg.ID {
			p.endLine()
			return
		}
		if msg.Role == schema.RoleUser && !p.opts.EchoUser {
			return
		}
		p.lines(p.renderer.FormatMessage(msg))
	case schema.UpdateDiscarded:
		if p.mode == modeAgent {
			p.write(" [discarded]")
			p.endLine()
		}
	case schema.UpdateThinking:
		if !p.opts.ShowThinking || update.Delta == "" {
			return
		}
		if update.Delta == "\n" {
			if p.mode == modeThinking {
				p.endLine()
			}
			return
		}
		p.enter(modeThinking, ThinkingMarker)
		p.write(strings.ReplaceAll(update.Delta, "\n", "\n"+ThinkingMarker))
	case schema.UpdateToolCall:
		if !p.opts.ShowTools || update.ToolCall == nil {
			return
		}
		p.lines(p.renderer.FormatToolCall(*update.ToolCall))
	case schema.UpdateRunError:
		p.lines([]string{"error: " + update.Error})
	case schema.UpdateThread:
		p.lines([]string{fmt.Sprintf("thread: %s", update.ThreadID)})
	}
}

// Flush terminates a partially written line.
func (p *LivePrinter) Flush() {
	p.endLine()
}

func (p *LivePrinter) enter(mode liveMode, marker string) {
	if p.mode == mode {
		return
	}
	p.endLine()
	p.mode = mode
	p.write(marker)
}

func (p *LivePrinter) endLine() {
	if p.mode == modeIdle {
		return
	}
	p.mode = modeIdle
	p.write("\n")
}

func (p *LivePrinter) lines(lines []string) {
	p.endLine()
	for _, line := range lines {
		p.write(line + "\n")
	}
}

func (p *LivePrinter) write(text string) {
	_, _ = io.WriteString(p.out, text)
}
