package httpapi

import (
	"context"
	"strings"

	"pkt.systems/agstream/schema"
)

// Responder produces the assistant reply for a chat request.
type Responder interface {
	Respond(ctx context.Context, req schema.ChatRequest) (string, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, req schema.ChatRequest) (string, error)

// Respond implements Responder.
func (f ResponderFunc) Respond(ctx context.Context, req schema.ChatRequest) (string, error) {
	return f(ctx, req)
}

// EchoResponder repeats the latest user message.
type EchoResponder struct{}

// Respond implements Responder.
func (EchoResponder) Respond(_ context.Context, req schema.ChatRequest) (string, error) {
	content := strings.TrimSpace(lastUserMessage(req.Messages).Content)
	if content == "" {
		return "I did not receive a message.", nil
	}
	return "You said: " + content, nil
}

func lastUserMessage(messages []schema.Message) schema.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == schema.RoleUser {
			return messages[i]
		}
	}
	return schema.Message{}
}

// splitWords splits text into word-sized deltas that concatenate back to text.
func splitWords(text string) []string {
	if text == "" {
		return nil
	}
	parts := strings.SplitAfter(text, " ")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
