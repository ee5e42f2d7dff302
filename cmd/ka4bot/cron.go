package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

func newCronCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Fan the daily greeting out to everyone scheduled today",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromViper()
			if err != nil {
				return err
			}
			app, err := newApp(cfg)
			if err != nil {
				return err
			}

			// One handler budget per user, sequenced by the fan-out's
			// concurrency limit; cap the whole batch generously.
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
			defer cancel()
			return app.cron.Run(ctx)
		},
	}
	return cmd
}
