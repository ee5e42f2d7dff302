// Package telegram delivers outbound messages through the Telegram Bot
// API. Calls go through the shared httpx wrapper; inbound updates are the
// transport's concern (see cmd).
package telegram

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/v-kyrychenko/ka4-today-bot/apperr"
	"github.com/v-kyrychenko/ka4-today-bot/internal/httpx"
)

const (
	apiLabel       = "telegram"
	defaultBaseURL = "https://api.telegram.org"
)

type Option func(*Client)

func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.base = strings.TrimRight(base, "/")
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

type Client struct {
	http  *httpx.Client
	base  string
	token string
	log   *slog.Logger
}

func New(http *httpx.Client, token string, opts ...Option) *Client {
	c := &Client{
		http:  http,
		base:  defaultBaseURL,
		token: token,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SendMessage sends plain text to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	return c.call(ctx, "/sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
}

// SendMediaGroup sends photo URLs as one album; the optional caption is
// attached to the first item.
func (c *Client) SendMediaGroup(ctx context.Context, chatID int64, photoURLs []string, caption string) error {
	if len(photoURLs) == 0 {
		return nil
	}
	media := make([]map[string]any, 0, len(photoURLs))
	for i, url := range photoURLs {
		item := map[string]any{"type": "photo", "media": url}
		if i == 0 && caption != "" {
			item["caption"] = caption
		}
		media = append(media, item)
	}
	return c.call(ctx, "/sendMediaGroup", map[string]any{
		"chat_id": chatID,
		"media":   media,
	})
}

func (c *Client) call(ctx context.Context, method string, body map[string]any) error {
	return c.http.Do(ctx, httpx.Request{
		Method:  http.MethodPost,
		BaseURL: c.base,
		Path:    "/bot" + c.token + method,
		Body:    body,
		Label:   apiLabel + ":" + strings.TrimPrefix(method, "/"),
		Fail: func(status int, msg string) error {
			// Keep the bot token out of error messages.
			msg = strings.ReplaceAll(msg, c.token, "***")
			return apperr.RemoteService("%s", msg).WithRemoteStatus(status)
		},
	}, nil)
}

// IsRecipientUnreachable reports whether err means the recipient can no
// longer be messaged (bot blocked or account deactivated). Such users are
// marked inactive instead of being retried.
func IsRecipientUnreachable(err error) bool {
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindRemoteService {
		return false
	}
	if ae.RemoteStatus == http.StatusForbidden {
		return true
	}
	msg := strings.ToLower(ae.Error())
	return strings.Contains(msg, "forbidden") || strings.Contains(msg, "user is deactivated")
}
