package command

import (
	"strings"
)

// Command represents a parsed slash command.
type Command struct {
	Name      string
	Args      []string
	Raw       string
	Remainder string
}

// Arg returns the i-th argument or an empty string.
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Parse parses a line and returns a Command if it starts with "/".
// Names are lower-cased; "//text" is not a command so a prompt may start with a slash.
func Parse(input string) (Command, bool) {
	trimmed := strings.TrimLeft(input, " \t")
	if !strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, "//") {
		return Command{}, false
	}
	raw := strings.TrimSpace(trimmed[1:])
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Command{Raw: raw}, true
	}
	return Command{
		Name:      strings.ToLower(fields[0]),
		Args:      fields[1:],
		Raw:       raw,
		Remainder: remainderAfterTokens(raw, 1),
	}, true
}

// Unescape strips the leading slash of a "//text" prompt.
func Unescape(input string) string {
	trimmed := strings.TrimLeft(input, " \t")
	if strings.HasPrefix(trimmed, "//") {
		return trimmed[1:]
	}
	return input
}

func remainderAfterTokens(raw string, count int) string {
	i := 0
	for remaining := count; remaining > 0 && i < len(raw); remaining-- {
		for i < len(raw) && isSpace(raw[i]) {
			i++
		}
		for i < len(raw) && !isSpace(raw[i]) {
			i++
		}
	}
	if i >= len(raw) {
		return ""
	}
	return strings.TrimSpace(raw[i:])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
