// Package bot routes inbound chat events to command handlers and shields
// the transport from handler failures. One dispatch call owns one event;
// nothing here is shared across events.
package bot

import (
	"github.com/v-kyrychenko/ka4-today-bot/store"
)

// InboundEvent is the transport-neutral shape of one incoming update,
// whether it arrived over a webhook, long polling or the cron fan-out.
type InboundEvent struct {
	Message *InboundMessage `json:"message"`
}

type InboundMessage struct {
	Text string `json:"text"`
	Chat Chat   `json:"chat"`
	From From   `json:"from"`
	// PromptRef is attached by the scheduler on synthetic events and
	// overrides the handler's default prompt selection.
	PromptRef string `json:"promptRef,omitempty"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

type From struct {
	ID           int64  `json:"id"`
	Username     string `json:"username,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsBot        bool   `json:"is_bot,omitempty"`
}

// Context is the execution context handed to a command: conversation
// identity, the resolved user profile when one exists, and the raw
// message. Built once per event and never mutated by handlers.
type Context struct {
	ChatID    int64
	User      *store.User
	Message   *InboundMessage
	PromptRef string
}

// Language returns the user's preferred language, or "" when unknown
// (the orchestrator falls back to its configured default).
func (ec *Context) Language() string {
	if ec.User != nil && ec.User.LanguageCode != "" {
		return ec.User.LanguageCode
	}
	if ec.Message != nil {
		return ec.Message.From.LanguageCode
	}
	return ""
}

// DisplayName returns the friendliest available name for the user.
func (ec *Context) DisplayName() string {
	if ec.User != nil {
		if ec.User.FirstName != "" {
			return ec.User.FirstName
		}
		if ec.User.Username != "" {
			return ec.User.Username
		}
	}
	if ec.Message != nil {
		if ec.Message.From.FirstName != "" {
			return ec.Message.From.FirstName
		}
		if ec.Message.From.Username != "" {
			return ec.Message.From.Username
		}
	}
	return ""
}
