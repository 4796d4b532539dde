package httpapi

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"pkt.systems/agstream/internal/logx"
	"pkt.systems/agstream/schema"
)

const historyNameLimit = 40

type threadRecord struct {
	Item     schema.HistoryItem `json:"item"`
	Messages []schema.Message   `json:"messages"`
	Turns    int                `json:"turns"`
}

// historyStore keeps completed turns per thread, optionally persisted to a JSON file.
type historyStore struct {
	mu     sync.Mutex
	saveMu sync.Mutex
	userID schema.UserID
	items  map[schema.ThreadID]*threadRecord
	path   string
	now    func() time.Time
}

func newHistoryStore(userID schema.UserID, path string) *historyStore {
	store := &historyStore{
		userID: userID,
		items:  make(map[schema.ThreadID]*threadRecord),
		path:   strings.TrimSpace(path),
		now:    time.Now,
	}
	if store.path != "" {
		if err := store.load(); err != nil {
			logx.Ctx(context.Background()).Warn("history store load failed", "err", err)
		}
	}
	return store
}

// appendTurn records one completed exchange and returns the thread's turn count.
func (s *historyStore) appendTurn(threadID schema.ThreadID, messages ...schema.Message) int {
	stamp := s.now().UTC().Format(time.RFC3339)
	s.mu.Lock()
	record := s.items[threadID]
	if record == nil {
		record = &threadRecord{Item: schema.HistoryItem{
			UserID:    s.userID,
			ThreadID:  threadID,
			Name:      historyName(messages),
			CreatedAt: stamp,
		}}
		s.items[threadID] = record
	}
	record.Messages = append(record.Messages, messages...)
	record.Turns++
	record.Item.UpdatedAt = stamp
	turns := record.Turns
	s.mu.Unlock()
	s.persist()
	return turns
}

func (s *historyStore) list() []schema.HistoryItem {
	s.mu.Lock()
	items := make([]schema.HistoryItem, 0, len(s.items))
	for _, record := range s.items {
		items = append(items, record.Item)
	}
	s.mu.Unlock()
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].UpdatedAt != items[j].UpdatedAt {
			return items[i].UpdatedAt > items[j].UpdatedAt
		}
		return items[i].ThreadID < items[j].ThreadID
	})
	return items
}

func (s *historyStore) get(threadID schema.ThreadID) ([]schema.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.items[threadID]
	if !ok {
		return nil, false
	}
	return append([]schema.Message(nil), record.Messages...), true
}

func (s *historyStore) turns(threadID schema.ThreadID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.items[threadID]; ok {
		return record.Turns
	}
	return 0
}

func historyName(messages []schema.Message) string {
	for _, msg := range messages {
		if msg.Role != schema.RoleUser {
			continue
		}
		name := strings.Join(strings.Fields(msg.Content), " ")
		if utf8.RuneCountInString(name) > historyNameLimit {
			runes := []rune(name)
			name = string(runes[:historyNameLimit]) + "..."
		}
		return name
	}
	return ""
}

type historyFile struct {
	Version int             `json:"version"`
	Threads []*threadRecord `json:"threads"`
}

func (s *historyStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var file historyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	entries := make(map[schema.ThreadID]*threadRecord, len(file.Threads))
	for _, record := range file.Threads {
		if record == nil || strings.TrimSpace(string(record.Item.ThreadID)) == "" {
			continue
		}
		entries[record.Item.ThreadID] = record
	}
	s.mu.Lock()
	s.items = entries
	s.mu.Unlock()
	logx.Ctx(context.Background()).Info("history store loaded", "threads", len(entries))
	return nil
}

func (s *historyStore) persist() {
	if s.path == "" {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := writeHistoryFile(s.path, s.snapshot()); err != nil {
		logx.Ctx(context.Background()).Warn("history store save failed", "err", err)
	}
}

func (s *historyStore) snapshot() []*threadRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]*threadRecord, 0, len(s.items))
	for _, record := range s.items {
		copied := *record
		copied.Messages = append([]schema.Message(nil), record.Messages...)
		records = append(records, &copied)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Item.ThreadID < records[j].Item.ThreadID
	})
	return records
}

func writeHistoryFile(path string, records []*threadRecord) error {
	data, err := json.MarshalIndent(historyFile{Version: 1, Threads: records}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "history-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
