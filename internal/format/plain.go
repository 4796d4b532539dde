package format

import (
	"fmt"
	"strings"

	"pkt.systems/agstream/schema"
)

// Role markers prefix rendered message lines.
const (
	UserMarker      = "you> "
	AssistantMarker = "agent> "
	SystemMarker    = "system> "
	ToolMarker      = "tool> "
	ThinkingMarker  = "thinking> "
)

// PlainRenderer formats transcript data as plain text lines.
type PlainRenderer struct{}

// NewPlainRenderer returns a default plain-text renderer.
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

// FormatMessage converts one message into marked lines.
func (p *PlainRenderer) FormatMessage(msg schema.Message) []string {
	lines := splitLines(msg.Content)
	if len(lines) == 0 {
		lines = []string{""}
	}
	return markLines(RoleMarker(msg.Role), lines)
}

// FormatTranscript renders messages in order.
func (p *PlainRenderer) FormatTranscript(messages []schema.Message) []string {
	if len(messages) == 0 {
		return []string{"(empty transcript)"}
	}
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, p.FormatMessage(msg)...)
	}
	return lines
}

// FormatHistories renders one line per stored conversation.
func (p *PlainRenderer) FormatHistories(items []schema.HistoryItem) []string {
	if len(items) == 0 {
		return []string{"no histories found"}
	}
	width := 0
	for _, item := range items {
		if n := len(item.ThreadID); n > width {
			width = n
		}
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			name = "(untitled)"
		}
		line := fmt.Sprintf("%-*s  %s", width, item.ThreadID, name)
		if stamp := firstNonEmpty(item.UpdatedAt, item.CreatedAt); stamp != "" {
			line += "  " + stamp
		}
		lines = append(lines, line)
	}
	return lines
}

// FormatToolCall renders a tool call step, or nothing for argument deltas.
func (p *PlainRenderer) FormatToolCall(call schema.ToolCallUpdate) []string {
	name := call.Name
	if name == "" {
		name = string(call.ID)
	}
	switch {
	case call.Result != "":
		return markLines(ToolMarker+name+": ", splitLines(call.Result))
	case call.Done:
		return []string{ToolMarker + name + " done"}
	case call.Delta == "":
		return []string{ToolMarker + name + " started"}
	default:
		return nil
	}
}

// RoleMarker returns the line prefix for a role.
func RoleMarker(role schema.Role) string {
	switch role {
	case schema.RoleUser:
		return UserMarker
	case schema.RoleAssistant:
		return AssistantMarker
	case schema.RoleTool:
		return ToolMarker
	case schema.RoleSystem, schema.RoleDeveloper:
		return SystemMarker
	default:
		return ""
	}
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func markLines(marker string, lines []string) []string {
	if marker == "" || len(lines) == 0 {
		return lines
	}
	marked := make([]string, 0, len(lines))
	for _, line := range lines {
		marked = append(marked, marker+line)
	}
	return marked
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
