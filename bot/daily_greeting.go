package bot

import (
	"context"
	"log/slog"

	"github.com/v-kyrychenko/ka4-today-bot/store"
)

const GreetingPromptRef = "daily_greeting"

// DailyGreetingCommand delivers the scheduled morning message. The cron
// fan-out attaches a per-user promptRef to the synthetic event; direct
// "/daily_greeting" texts fall back to the stock greeting prompt.
type DailyGreetingCommand struct {
	replies  ReplyFetcher
	delivery Delivery
	audit    store.MessageLog
	log      *slog.Logger
}

func NewDailyGreetingCommand(replies ReplyFetcher, delivery Delivery, audit store.MessageLog, log *slog.Logger) *DailyGreetingCommand {
	if log == nil {
		log = slog.Default()
	}
	return &DailyGreetingCommand{replies: replies, delivery: delivery, audit: audit, log: log}
}

func (c *DailyGreetingCommand) Name() string { return "daily_greeting" }

func (c *DailyGreetingCommand) CanHandle(text string, _ *Context) bool {
	return text == "/daily_greeting"
}

func (c *DailyGreetingCommand) Execute(ctx context.Context, ec *Context) error {
	promptRef := ec.PromptRef
	if promptRef == "" {
		promptRef = GreetingPromptRef
	}
	reply, err := c.replies.FetchReply(ctx, runContext(ec), promptRef, map[string]any{
		"name": ec.DisplayName(),
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
