package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/v-kyrychenko/ka4-today-bot/apperr"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return s
}

func writePrompt(t *testing.T, s *FileStore, id, doc string) {
	t.Helper()
	path := filepath.Join(s.root, promptsDir, id+".yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write prompt fixture: %v", err)
	}
}

func TestGetOrCreateIsFirstTimeOnly(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.GetOrCreate(ctx, User{ChatID: 42, Username: "olena", LanguageCode: "ua"})
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if !created.Active {
		t.Error("new user must be active")
	}
	if created.CreatedAt.IsZero() {
		t.Error("new user must carry a creation timestamp")
	}

	// A second call with different fields must return the stored record.
	again, err := s.GetOrCreate(ctx, User{ChatID: 42, Username: "someone-else"})
	if err != nil {
		t.Fatalf("GetOrCreate() second call error = %v", err)
	}
	if again.Username != "olena" {
		t.Errorf("existing record must win, got username %q", again.Username)
	}
}

func TestGetMissingUserIsClientInput(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.Get(context.Background(), 999)
	if !apperr.IsKind(err, apperr.KindClientInput) {
		t.Fatalf("expected client-input error, got %v", err)
	}
}

func TestMarkInactive(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.GetOrCreate(ctx, User{ChatID: 7}); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if err := s.MarkInactive(ctx, 7); err != nil {
		t.Fatalf("MarkInactive() error = %v", err)
	}
	u, err := s.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if u.Active {
		t.Error("user must be inactive after MarkInactive")
	}
}

func TestGetPrompt(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	writePrompt(t, s, "daily_workout", `
version: "1"
system_prompt_ref: trainer_system
vector_store_ids: ["vs_1"]
prompts:
  ua: "Тренування: ${plan}"
  en: "Workout: ${plan}"
`)

	def, err := s.GetPrompt(context.Background(), "en", "daily_workout")
	if err != nil {
		t.Fatalf("GetPrompt() error = %v", err)
	}
	if def.SystemPromptRef != "trainer_system" {
		t.Errorf("system prompt ref = %q", def.SystemPromptRef)
	}
	if len(def.VectorStoreIDs) != 1 || def.VectorStoreIDs[0] != "vs_1" {
		t.Errorf("vector store ids = %v", def.VectorStoreIDs)
	}
	if def.Prompts["en"] != "Workout: ${plan}" {
		t.Errorf("template = %q", def.Prompts["en"])
	}
}

func TestGetPromptMissingTranslation(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	writePrompt(t, s, "welcome_greeting", `
version: "1"
prompts:
  ua: "Привіт"
`)

	_, err := s.GetPrompt(context.Background(), "de", "welcome_greeting")
	if !apperr.IsKind(err, apperr.KindClientInput) {
		t.Fatalf("expected client-input error, got %v", err)
	}
}

func TestGetPromptUnknownID(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.GetPrompt(context.Background(), "ua", "nope")
	if !apperr.IsKind(err, apperr.KindClientInput) {
		t.Fatalf("expected client-input error, got %v", err)
	}
}

func TestSchedule(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	entries := `[
		{"chat_id": 1, "day_of_week": "MON", "prompt_ref": "chest_default", "plan": {"chest": 3}},
		{"chat_id": 2, "day_of_week": "MON", "prompt_ref": "legs_default"},
		{"chat_id": 1, "day_of_week": "WED", "prompt_ref": "back_default"}
	]`
	if err := os.WriteFile(filepath.Join(s.root, scheduleFile), []byte(entries), 0o644); err != nil {
		t.Fatalf("write schedule fixture: %v", err)
	}
	ctx := context.Background()

	monday, err := s.ScheduledForDay(ctx, "MON")
	if err != nil {
		t.Fatalf("ScheduledForDay() error = %v", err)
	}
	if len(monday) != 2 {
		t.Fatalf("ScheduledForDay(MON) = %d entries, want 2", len(monday))
	}

	entry, err := s.UserScheduledForDay(ctx, "MON", 1)
	if err != nil {
		t.Fatalf("UserScheduledForDay() error = %v", err)
	}
	if entry == nil || entry.PromptRef != "chest_default" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Plan["chest"] != 3 {
		t.Errorf("plan = %v", entry.Plan)
	}

	none, err := s.UserScheduledForDay(ctx, "FRI", 1)
	if err != nil {
		t.Fatalf("UserScheduledForDay() error = %v", err)
	}
	if none != nil {
		t.Errorf("expected nil entry for unscheduled day, got %+v", none)
	}
}

func TestDayCode(t *testing.T) {
	t.Parallel()

	// 2026-08-24 is a Monday.
	d := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	if got := DayCode(d); got != "MON" {
		t.Errorf("DayCode() = %q, want MON", got)
	}
	if got := DayCode(d.AddDate(0, 0, 6)); got != "SUN" {
		t.Errorf("DayCode(+6d) = %q, want SUN", got)
	}
}
