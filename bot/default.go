package bot

import (
	"context"
	"log/slog"

	"github.com/v-kyrychenko/ka4-today-bot/store"
)

const (
	// DefaultPromptRef is used unless a scheduler attached an explicit
	// promptRef to the event.
	DefaultPromptRef = "default"

	// DefaultCommandText is the single magic message that triggers the
	// default prompt. Anything else falls through the router and is
	// dropped; free text never starts a paid run.
	DefaultCommandText = "42"
)

// DefaultCommand answers the magic message through the orchestrator's
// default prompt and delivers the reply.
type DefaultCommand struct {
	replies  ReplyFetcher
	delivery Delivery
	audit    store.MessageLog
	log      *slog.Logger
}

func NewDefaultCommand(replies ReplyFetcher, delivery Delivery, audit store.MessageLog, log *slog.Logger) *DefaultCommand {
	if log == nil {
		log = slog.Default()
	}
	return &DefaultCommand{replies: replies, delivery: delivery, audit: audit, log: log}
}

func (c *DefaultCommand) Name() string { return "default" }

func (c *DefaultCommand) CanHandle(text string, _ *Context) bool {
	return text == DefaultCommandText
}

func (c *DefaultCommand) Execute(ctx context.Context, ec *Context) error {
	promptRef := ec.PromptRef
	if promptRef == "" {
		promptRef = DefaultPromptRef
	}
	reply, err := c.replies.FetchReply(ctx, runContext(ec), promptRef, map[string]any{
		"name":    ec.DisplayName(),
		"message": ec.Message.Text,
	})
	if err != nil {
		return err
	}
	if err := c.delivery.SendMessage(ctx, ec.ChatID, reply); err != nil {
		return err
	}
	recordDelivery(ctx, c.log, c.audit, ec.ChatID, reply, promptRef)
	return nil
}
