// Package store defines the external persistence collaborators of the bot:
// user records, localized prompt definitions, training schedules and the
// sent-message audit log. The core never caches these across calls;
// consistency is the store's concern.
package store

import (
	"context"
	"time"
)

type User struct {
	ChatID       int64     `json:"chat_id"`
	Username     string    `json:"username,omitempty"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	LanguageCode string    `json:"language_code,omitempty"`
	ChatType     string    `json:"chat_type,omitempty"`
	IsBot        bool      `json:"is_bot"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// PromptDefinition is a localized prompt plus its assistant configuration.
// Loaded read-only per request, never mutated.
type PromptDefinition struct {
	ID              string            `yaml:"id" json:"id"`
	Version         string            `yaml:"version" json:"version"`
	Prompts         map[string]string `yaml:"prompts" json:"prompts"`
	SystemPromptRef string            `yaml:"system_prompt_ref,omitempty" json:"systemPromptRef,omitempty"`
	VectorStoreIDs  []string          `yaml:"vector_store_ids,omitempty" json:"vectorStoreIds,omitempty"`
}

type ScheduleEntry struct {
	ChatID    int64          `json:"chat_id"`
	DayOfWeek string         `json:"day_of_week"`
	PromptRef string         `json:"prompt_ref,omitempty"`
	Plan      map[string]int `json:"plan,omitempty"`
}

type UserStore interface {
	// Get returns the user or an apperr client-input error when absent.
	Get(ctx context.Context, chatID int64) (*User, error)
	// GetOrCreate returns the existing record or creates it first-time.
	// Creation is conditional on absence, safe under concurrent calls.
	GetOrCreate(ctx context.Context, u User) (*User, error)
	MarkInactive(ctx context.Context, chatID int64) error
}

type PromptStore interface {
	// GetPrompt fails with a client-input error when the prompt is unknown
	// or lacks a translation for lang.
	GetPrompt(ctx context.Context, lang, promptID string) (*PromptDefinition, error)
}

type ScheduleStore interface {
	ScheduledForDay(ctx context.Context, day string) ([]ScheduleEntry, error)
	// UserScheduledForDay returns nil without error when the user has no
	// entry for the day.
	UserScheduledForDay(ctx context.Context, day string, chatID int64) (*ScheduleEntry, error)
}

// MessageLog records delivered replies for traceability. Best-effort:
// callers log failures and move on.
type MessageLog interface {
	LogSentMessage(ctx context.Context, chatID int64, text, promptRef string) error
}

var dayCodes = [...]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

// DayCode returns the 3-letter uppercase weekday code used as the schedule
// partition key, e.g. "MON".
func DayCode(t time.Time) string {
	return dayCodes[int(t.Weekday())]
}
