package main

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"

	"github.com/v-kyrychenko/ka4-today-bot/bot"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromViper()
			if err != nil {
				return err
			}
			if cfg.SecurityToken == "" {
				return fmt.Errorf("missing telegram.security_token (set via %s_TELEGRAM_SECURITY_TOKEN)", envPrefix)
			}

			app, err := newApp(cfg)
			if err != nil {
				return err
			}

			mux := newWebhookMux(cfg.SecurityToken, app.dispatchAsync)

			addr := cfg.Bind + ":" + strconv.Itoa(cfg.Port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			app.log.Info("server_start", "addr", addr)
			return srv.ListenAndServe()
		},
	}
	return cmd
}

func newWebhookMux(securityToken string, dispatch func(bot.InboundEvent)) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":   true,
			"time": time.Now().Format(time.RFC3339Nano),
		})
	})
	mux.HandleFunc("/telegram/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		secret := strings.TrimPrefix(r.URL.Path, "/telegram/")
		if subtle.ConstantTimeCompare([]byte(secret), []byte(securityToken)) != 1 {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var update telego.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		ev, ok := inboundFromUpdate(update)
		if !ok {
			// Non-message updates are acknowledged and ignored.
			w.WriteHeader(http.StatusOK)
			return
		}

		// Acknowledge immediately; the run outlives the webhook request.
		// Dispatch errors are logged, not returned, so Telegram does not
		// redeliver the update.
		dispatch(ev)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	return mux
}

func inboundFromUpdate(update telego.Update) (bot.InboundEvent, bool) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return bot.InboundEvent{}, false
	}
	ev := bot.InboundEvent{Message: &bot.InboundMessage{
		Text: msg.Text,
		Chat: bot.Chat{ID: msg.Chat.ID, Type: msg.Chat.Type},
	}}
	if msg.From != nil {
		ev.Message.From = bot.From{
			ID:           msg.From.ID,
			Username:     msg.From.Username,
			FirstName:    msg.From.FirstName,
			LastName:     msg.From.LastName,
			LanguageCode: msg.From.LanguageCode,
			IsBot:        msg.From.IsBot,
		}
	}
	return ev, true
}
