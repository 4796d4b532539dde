package stream

import (
	"strings"

	"pkt.systems/agstream/schema"
)

const dataPrefix = "data:"

// FrameError reports a data frame whose payload could not be decoded.
type FrameError struct {
	Payload string
	Err     error
}

func (e *FrameError) Error() string {
	if e == nil || e.Err == nil {
		return "frame decode error"
	}
	return "frame decode error: " + e.Err.Error()
}

func (e *FrameError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ParseLine turns one framed line into an event. Lines that are not data
// frames, and data frames with an empty payload, yield (nil, nil).
func ParseLine(line string) (schema.Event, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, dataPrefix) {
		return nil, nil
	}
	payload := strings.TrimSpace(trimmed[len(dataPrefix):])
	if payload == "" {
		return nil, nil
	}
	event, err := schema.DecodeEvent([]byte(payload))
	if err != nil {
		return nil, &FrameError{Payload: payload, Err: err}
	}
	return event, nil
}
