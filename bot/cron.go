package bot

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/v-kyrychenko/ka4-today-bot/store"
	"github.com/v-kyrychenko/ka4-today-bot/telegram"
)

const cronConcurrency = 8

// CronRunner fans the daily greeting out to every user scheduled for the
// current weekday. Each user is dispatched independently; one broken
// recipient never stalls the batch.
type CronRunner struct {
	dispatcher *Dispatcher
	schedule   store.ScheduleStore
	now        func() time.Time
	log        *slog.Logger
}

func NewCronRunner(dispatcher *Dispatcher, schedule store.ScheduleStore, log *slog.Logger) *CronRunner {
	if log == nil {
		log = slog.Default()
	}
	return &CronRunner{
		dispatcher: dispatcher,
		schedule:   schedule,
		now:        time.Now,
		log:        log,
	}
}

func (r *CronRunner) Run(ctx context.Context) error {
	day := store.DayCode(r.now())
	entries, err := r.schedule.ScheduledForDay(ctx, day)
	if err != nil {
		return err
	}
	r.log.InfoContext(ctx, "cron_start", "day", day, "users", len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cronConcurrency)
	for _, entry := range entries {
		g.Go(func() error {
			r.dispatchOne(ctx, entry)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
	r.log.InfoContext(ctx, "cron_done", "day", day)
	return nil
}

func (r *CronRunner) dispatchOne(ctx context.Context, entry store.ScheduleEntry) {
	ev := InboundEvent{Message: &InboundMessage{
		Text:      "/daily_greeting",
		Chat:      Chat{ID: entry.ChatID},
		PromptRef: entry.PromptRef,
	}}
	err := r.dispatcher.Execute(ctx, ev)
	if err == nil {
		return
	}
	// The dispatcher already marked unreachable recipients inactive;
	// here the failure only decides the log level.
	if telegram.IsRecipientUnreachable(err) {
		r.log.InfoContext(ctx, "cron_recipient_skipped", "chat_id", entry.ChatID)
		return
	}
	r.log.WarnContext(ctx, "cron_dispatch_failed", "chat_id", entry.ChatID, "error", err)
}
