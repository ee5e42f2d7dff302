package bot

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/v-kyrychenko/ka4-today-bot/apperr"
	"github.com/v-kyrychenko/ka4-today-bot/store"
	"github.com/v-kyrychenko/ka4-today-bot/telegram"
)

// FallbackNotice is sent to the chat when a handler fails, so the user
// is not left staring at silence.
const FallbackNotice = "🧠💥🪄🐞"

// Delivery sends outbound messages to a conversation. Implemented by the
// telegram client; tests substitute fakes.
type Delivery interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMediaGroup(ctx context.Context, chatID int64, photoURLs []string, caption string) error
}

type DispatcherOption func(*Dispatcher)

func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// Dispatcher is the top of the pipeline: extract identity, resolve the
// user profile, route, execute, and convert an escaped handler error into
// a best-effort fallback notice while re-raising it for the transport.
type Dispatcher struct {
	router   *Router
	users    store.UserStore
	delivery Delivery
	log      *slog.Logger
}

func NewDispatcher(router *Router, users store.UserStore, delivery Delivery, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		router:   router,
		users:    users,
		delivery: delivery,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

func (d *Dispatcher) Execute(ctx context.Context, ev InboundEvent) error {
	if ev.Message == nil {
		return apperr.ClientInput("inbound event has no message")
	}
	msg := ev.Message
	if msg.Chat.ID == 0 {
		return apperr.ClientInput("inbound message has no chat id")
	}

	log := d.log.With(
		"dispatch_id", uuid.NewString(),
		"chat_id", msg.Chat.ID,
	)

	ec := &Context{
		ChatID:    msg.Chat.ID,
		Message:   msg,
		PromptRef: msg.PromptRef,
	}
	// The profile is optional at this layer: commands that need a record
	// create one themselves.
	user, err := d.users.Get(ctx, msg.Chat.ID)
	if err == nil {
		ec.User = user
	} else if !apperr.IsKind(err, apperr.KindClientInput) {
		log.WarnContext(ctx, "user_lookup_failed", "error", err)
	}

	cmd := d.router.Match(msg.Text, ec)
	if cmd == nil {
		log.InfoContext(ctx, "command_not_matched", "text", msg.Text)
		return nil
	}

	log.InfoContext(ctx, "command_start", "command", commandName(cmd))
	if err := cmd.Execute(ctx, ec); err != nil {
		log.ErrorContext(ctx, "command_failed", "command", commandName(cmd), "error", err)
		if telegram.IsRecipientUnreachable(err) {
			// The chat cannot be messaged anymore; a fallback notice
			// would fail the same way.
			log.InfoContext(ctx, "recipient_unreachable")
			if markErr := d.users.MarkInactive(ctx, ec.ChatID); markErr != nil {
				log.WarnContext(ctx, "mark_inactive_failed", "error", markErr)
			}
			return err
		}
		if sendErr := d.delivery.SendMessage(ctx, ec.ChatID, FallbackNotice); sendErr != nil {
			log.WarnContext(ctx, "fallback_notice_failed", "error", sendErr)
		}
		return err
	}
	log.InfoContext(ctx, "command_done", "command", commandName(cmd))
	return nil
}

func commandName(c Command) string {
	if n, ok := c.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "unknown"
}
