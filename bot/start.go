package bot

import (
	"context"

	"github.com/v-kyrychenko/ka4-today-bot/store"
)

// StartCommand handles "/start": it ensures the user record exists.
// First-time creation is a conditional write owned by the store, so
// concurrent /start from the same chat is safe. No message is sent.
type StartCommand struct {
	users store.UserStore
}

func NewStartCommand(users store.UserStore) *StartCommand {
	return &StartCommand{users: users}
}

func (c *StartCommand) Name() string { return "start" }

func (c *StartCommand) CanHandle(text string, _ *Context) bool {
	return text == "/start"
}

func (c *StartCommand) Execute(ctx context.Context, ec *Context) error {
	msg := ec.Message
	_, err := c.users.GetOrCreate(ctx, store.User{
		ChatID:       ec.ChatID,
		Username:     msg.From.Username,
		FirstName:    msg.From.FirstName,
		LastName:     msg.From.LastName,
		LanguageCode: msg.From.LanguageCode,
		ChatType:     msg.Chat.Type,
		IsBot:        msg.From.IsBot,
		Active:       true,
	})
	return err
}
