package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"pkt.systems/agstream/schema"
)

var emptyState = json.RawMessage(`{}`)

func normalizeState(doc json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return append(json.RawMessage(nil), trimmed...)
}

// applyStatePatch applies an RFC 6902 patch to doc. A nil doc is treated as
// an empty object.
func applyStatePatch(doc json.RawMessage, delta json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(delta)) == 0 {
		return doc, nil
	}
	patch, err := jsonpatch.DecodePatch(delta)
	if err != nil {
		return nil, fmt.Errorf("decode state patch: %w", err)
	}
	base := doc
	if base == nil {
		base = emptyState
	}
	out, err := patch.Apply(base)
	if err != nil {
		return nil, fmt.Errorf("apply state patch: %w", err)
	}
	return json.RawMessage(out), nil
}

func (s *Session) stateUpdate() schema.SessionUpdate {
	var state json.RawMessage
	if s.state != nil {
		state = append(json.RawMessage(nil), s.state...)
	}
	return schema.SessionUpdate{Type: schema.UpdateState, ThreadID: s.threadID, RunID: s.runID, State: state}
}
