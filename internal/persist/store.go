package persist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"pkt.systems/agstream/schema"
	"pkt.systems/pslog"
)

// MaxPrompts bounds the prompt history kept per server.
const MaxPrompts = 100

// ClientSnapshot is the local state remembered for one chat server.
type ClientSnapshot struct {
	BaseURL    string          `json:"base_url"`
	LastThread schema.ThreadID `json:"last_thread,omitempty"`
	Prompts    []string        `json:"prompts,omitempty"`
}

// RecordPrompt appends prompt to the history, dropping the oldest entries
// past MaxPrompts and skipping immediate repeats.
func (c *ClientSnapshot) RecordPrompt(prompt string) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return
	}
	if n := len(c.Prompts); n > 0 && c.Prompts[n-1] == prompt {
		return
	}
	c.Prompts = append(c.Prompts, prompt)
	if over := len(c.Prompts) - MaxPrompts; over > 0 {
		c.Prompts = append([]string(nil), c.Prompts[over:]...)
	}
}

// Store keeps one snapshot file per server under a state directory.
type Store struct {
	dir string
	log pslog.Logger
}

// NewStore constructs a store at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &Store{dir: dir, log: logger}, nil
}

// Load reads the snapshot for baseURL. A missing file is reported with ok=false.
func (s *Store) Load(baseURL string) (ClientSnapshot, bool, error) {
	data, err := os.ReadFile(s.pathFor(baseURL))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.debug("state load miss", "base_url", baseURL)
			return ClientSnapshot{BaseURL: baseURL}, false, nil
		}
		s.warn("state load failed", baseURL, err)
		return ClientSnapshot{BaseURL: baseURL}, false, err
	}
	var snapshot ClientSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.warn("state load failed", baseURL, err)
		return ClientSnapshot{BaseURL: baseURL}, false, err
	}
	snapshot.BaseURL = baseURL
	s.debug("state load ok", "base_url", baseURL, "thread", string(snapshot.LastThread), "prompts", len(snapshot.Prompts))
	return snapshot, true, nil
}

// Save atomically replaces the snapshot file for snapshot.BaseURL.
func (s *Store) Save(snapshot ClientSnapshot) error {
	path := s.pathFor(snapshot.BaseURL)
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		s.warn("state save failed", snapshot.BaseURL, err)
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		s.warn("state save failed", snapshot.BaseURL, err)
		return err
	}
	if s.log != nil {
		s.log.Trace("state save ok", "base_url", snapshot.BaseURL, "thread", string(snapshot.LastThread))
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "state-*.json")
	if err != nil {
		return err
	}
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
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

func (s *Store) debug(msg string, keyvals ...any) {
	if s.log != nil {
		s.log.Debug(msg, keyvals...)
	}
}

func (s *Store) warn(msg string, baseURL string, err error) {
	if s.log != nil {
		s.log.Warn(msg, "base_url", baseURL, "err", err)
	}
}

func (s *Store) pathFor(baseURL string) string {
	name := sanitize(strings.TrimSpace(baseURL))
	if name == "" {
		name = "default"
	}
	return filepath.Join(s.dir, name+".json")
}

func sanitize(value string) string {
	value = strings.TrimPrefix(strings.TrimPrefix(value, "https://"), "http://")
	value = strings.TrimRight(value, "/")
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}
