package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/v-kyrychenko/ka4-today-bot/apperr"
)

const (
	usersFile    = "users.json"
	scheduleFile = "schedule.json"
	auditFile    = "sent-messages.jsonl"
	promptsDir   = "prompts"

	dirPerm  = os.FileMode(0o755)
	filePerm = os.FileMode(0o644)
)

// FileStore keeps users, schedules and the audit log as JSON files and
// prompt definitions as one YAML document per prompt id under a single
// root directory. Writes are atomic (temp file + rename) and serialized
// with a process-wide mutex; cross-process coordination is out of scope.
type FileStore struct {
	root string
	mu   sync.Mutex
	now  func() time.Time
}

func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("store root dir is required")
	}
	for _, dir := range []string{root, filepath.Join(root, promptsDir)} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("store ensure dir %s: %w", dir, err)
		}
	}
	return &FileStore{root: root, now: time.Now}, nil
}

func (s *FileStore) Get(_ context.Context, chatID int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return nil, err
	}
	u, ok := users[chatID]
	if !ok {
		return nil, apperr.ClientInput("user for chat id %d not found", chatID)
	}
	return &u, nil
}

func (s *FileStore) GetOrCreate(_ context.Context, u User) (*User, error) {
	if u.ChatID == 0 {
		return nil, apperr.ClientInput("chat id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return nil, err
	}
	if existing, ok := users[u.ChatID]; ok {
		return &existing, nil
	}

	u.Active = true
	u.CreatedAt = s.now().UTC()
	users[u.ChatID] = u
	if err := s.saveUsers(users); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *FileStore) MarkInactive(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return err
	}
	u, ok := users[chatID]
	if !ok {
		return apperr.ClientInput("user for chat id %d not found", chatID)
	}
	u.Active = false
	users[chatID] = u
	return s.saveUsers(users)
}

func (s *FileStore) GetPrompt(_ context.Context, lang, promptID string) (*PromptDefinition, error) {
	if promptID == "" {
		return nil, apperr.ClientInput("prompt id is not provided")
	}

	raw, err := os.ReadFile(filepath.Join(s.root, promptsDir, promptID+".yaml"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.ClientInput("prompt %q not found", promptID)
		}
		return nil, fmt.Errorf("read prompt %q: %w", promptID, err)
	}

	var def PromptDefinition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decode prompt %q: %w", promptID, err)
	}
	if def.ID == "" {
		def.ID = promptID
	}
	if _, ok := def.Prompts[lang]; !ok {
		return nil, apperr.ClientInput("prompt %q has no translation for language %q", promptID, lang)
	}
	return &def, nil
}

func (s *FileStore) ScheduledForDay(_ context.Context, day string) ([]ScheduleEntry, error) {
	entries, err := s.loadSchedule()
	if err != nil {
		return nil, err
	}
	var out []ScheduleEntry
	for _, e := range entries {
		if e.DayOfWeek == day {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *FileStore) UserScheduledForDay(_ context.Context, day string, chatID int64) (*ScheduleEntry, error) {
	entries, err := s.loadSchedule()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.DayOfWeek == day && e.ChatID == chatID {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *FileStore) LogSentMessage(_ context.Context, chatID int64, text, promptRef string) error {
	if promptRef == "" {
		promptRef = "unknown"
	}
	record := struct {
		ChatID    int64  `json:"chat_id"`
		Timestamp string `json:"timestamp"`
		Text      string `json:"text"`
		PromptRef string `json:"prompt_ref"`
	}{chatID, s.now().UTC().Format(time.RFC3339), text, promptRef}

	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.root, auditFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

func (s *FileStore) loadUsers() (map[int64]User, error) {
	users := make(map[int64]User)
	raw, err := os.ReadFile(filepath.Join(s.root, usersFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return users, nil
		}
		return nil, fmt.Errorf("read users: %w", err)
	}
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *FileStore) saveUsers(users map[int64]User) error {
	b, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	return writeAtomic(filepath.Join(s.root, usersFile), b)
}

func (s *FileStore) loadSchedule() ([]ScheduleEntry, error) {
	raw, err := os.ReadFile(filepath.Join(s.root, scheduleFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	var entries []ScheduleEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	return entries, nil
}

func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp for %s: %w", path, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("chmod temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp for %s: %w", path, err)
	}
	return nil
}
