package main

import (
	"context"
	"errors"

	"pkt.systems/agstream/core"
	"pkt.systems/agstream/internal/appconfig"
	"pkt.systems/agstream/internal/persist"
	"pkt.systems/agstream/schema"
	"pkt.systems/pslog"
)

// chatState remembers the last thread and recent prompts per server. A
// state directory that cannot be opened disables it without failing the
// command.
type chatState struct {
	store    *persist.Store
	snapshot persist.ClientSnapshot
	log      pslog.Logger
}

func openState(ctx context.Context, cfg appconfig.Config) *chatState {
	log := pslog.Ctx(ctx)
	state := &chatState{snapshot: persist.ClientSnapshot{BaseURL: cfg.API.BaseURL}, log: log}
	if cfg.Chat.StateDir == "" {
		return state
	}
	store, err := persist.NewStoreWithLogger(cfg.Chat.StateDir, log)
	if err != nil {
		log.Warn("chat state disabled", "err", err)
		return state
	}
	snapshot, _, err := store.Load(cfg.API.BaseURL)
	if err != nil {
		log.Warn("chat state reset", "err", err)
	}
	state.store = store
	state.snapshot = snapshot
	return state
}

// lastThread returns the thread to resume.
func (s *chatState) lastThread() (schema.ThreadID, error) {
	if s.snapshot.LastThread == "" {
		return "", errors.New("no previous thread to resume")
	}
	return s.snapshot.LastThread, nil
}

// remember records prompt and the session's current thread.
func (s *chatState) remember(threadID schema.ThreadID, prompt string) {
	s.snapshot.LastThread = threadID
	s.snapshot.RecordPrompt(prompt)
	s.save()
}

func (s *chatState) save() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(s.snapshot); err != nil {
		s.log.Warn("chat state save failed", "err", err)
	}
}

// selectThread resolves --thread and --resume into the thread to load, if any.
func selectThread(threadID string, resume bool, state *chatState) (schema.ThreadID, error) {
	if threadID != "" && resume {
		return "", errors.New("--thread and --resume are mutually exclusive")
	}
	if resume {
		return state.lastThread()
	}
	return schema.ThreadID(threadID), nil
}

func loadThread(ctx context.Context, session *core.Session, threadID schema.ThreadID) error {
	if threadID == "" {
		return nil
	}
	return session.LoadHistoryChat(ctx, threadID)
}
