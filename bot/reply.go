package bot

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/v-kyrychenko/ka4-today-bot/assistant"
	"github.com/v-kyrychenko/ka4-today-bot/store"
)

// ReplyFetcher runs one assistant invocation to completion and returns
// the extracted reply. Implemented by assistant.Orchestrator.
type ReplyFetcher interface {
	FetchReply(ctx context.Context, rc assistant.RunContext, promptRef string, vars map[string]any) (string, error)
}

// runContext builds the trusted run context for one execution: the
// resolved language plus the override fields a tool call may never spoof.
func runContext(ec *Context) assistant.RunContext {
	return assistant.RunContext{
		Language: ec.Language(),
		Overrides: map[string]any{
			"chatId": strconv.FormatInt(ec.ChatID, 10),
		},
	}
}

// recordDelivery appends the sent reply to the audit log. Best-effort:
// an audit failure never fails the handler.
func recordDelivery(ctx context.Context, log *slog.Logger, audit store.MessageLog, chatID int64, text, promptRef string) {
	if audit == nil {
		return
	}
	if err := audit.LogSentMessage(ctx, chatID, text, promptRef); err != nil {
		log.WarnContext(ctx, "message_audit_failed", "chat_id", chatID, "error", err)
	}
}
