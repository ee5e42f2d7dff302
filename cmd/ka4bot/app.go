package main

import (
	"context"
	"log/slog"

	"github.com/v-kyrychenko/ka4-today-bot/assistant"
	"github.com/v-kyrychenko/ka4-today-bot/bot"
	"github.com/v-kyrychenko/ka4-today-bot/internal/httpx"
	"github.com/v-kyrychenko/ka4-today-bot/internal/logutil"
	"github.com/v-kyrychenko/ka4-today-bot/store"
	"github.com/v-kyrychenko/ka4-today-bot/telegram"
)

// app wires the whole pipeline once per process: stores, outbound
// clients, the orchestrator and the dispatcher.
type app struct {
	cfg      appConfig
	log      *slog.Logger
	store    *store.FileStore
	dispatch *bot.Dispatcher
	cron     *bot.CronRunner
}

func newApp(cfg appConfig) (*app, error) {
	log, err := logutil.LoggerFromViper()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)

	fs, err := store.NewFileStore(cfg.StoreDir)
	if err != nil {
		return nil, err
	}

	httpClient := httpx.New(httpx.WithLogger(log))

	delivery := telegram.New(httpClient, cfg.TelegramToken,
		telegram.WithBaseURL(cfg.TelegramBaseURL),
		telegram.WithLogger(log),
	)

	runs := assistant.NewClient(httpClient, assistant.ClientConfig{
		BaseURL:   cfg.OpenAIBaseURL,
		APIKey:    cfg.OpenAIAPIKey,
		ProjectID: cfg.OpenAIProject,
	})

	funcs := assistant.NewFunctions()
	if err := registerFunctions(funcs, fs); err != nil {
		return nil, err
	}

	orchestrator := assistant.NewOrchestrator(runs, fs, funcs, assistant.Config{
		Model:           cfg.Model,
		DefaultLanguage: cfg.DefaultLanguage,
		PollInterval:    cfg.PollInterval,
		PollAttempts:    cfg.PollAttempts,
	}, assistant.WithLogger(log))

	var media bot.MediaResolver = bot.StaticMediaResolver{BaseURL: cfg.MediaBaseURL}

	router := bot.NewRouter(
		bot.NewStartCommand(fs),
		bot.NewDailyGreetingCommand(orchestrator, delivery, fs, log),
		bot.NewDailyWorkoutCommand(orchestrator, delivery, fs, media, fs, log),
		bot.NewDefaultCommand(orchestrator, delivery, fs, log),
	)
	dispatcher := bot.NewDispatcher(router, fs, delivery, bot.WithLogger(log))

	return &app{
		cfg:      cfg,
		log:      log,
		store:    fs,
		dispatch: dispatcher,
		cron:     bot.NewCronRunner(dispatcher, fs, log),
	}, nil
}

// dispatchAsync handles one inbound event on its own goroutine with its
// own timeout, so a slow run never blocks the transport.
func (a *app) dispatchAsync(ev bot.InboundEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HandlerTimeout)
		defer cancel()
		if err := a.dispatch.Execute(ctx, ev); err != nil {
			a.log.Error("dispatch_failed", "error", err)
		}
	}()
}
