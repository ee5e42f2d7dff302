package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"
)

func newListenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Run with Telegram long polling (no webhook needed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromViper()
			if err != nil {
				return err
			}
			app, err := newApp(cfg)
			if err != nil {
				return err
			}

			tgBot, err := telego.NewBot(cfg.TelegramToken)
			if err != nil {
				return fmt.Errorf("create telegram bot: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			updates, err := tgBot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
				Timeout: 30,
			})
			if err != nil {
				return fmt.Errorf("start long polling: %w", err)
			}

			app.log.Info("listen_start")
			for update := range updates {
				ev, ok := inboundFromUpdate(update)
				if !ok {
					continue
				}
				app.dispatchAsync(ev)
			}
			app.log.Info("listen_stop")
			return nil
		},
	}
	return cmd
}
