package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// appConfig is populated once from viper at command start and validated
// eagerly; components below cmd/ never touch viper.
type appConfig struct {
	TelegramToken   string
	SecurityToken   string
	TelegramBaseURL string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIProject string

	Model           string
	DefaultLanguage string
	PollInterval    time.Duration
	PollAttempts    int

	StoreDir     string
	MediaBaseURL string

	HandlerTimeout time.Duration

	Bind string
	Port int
}

func configFromViper() (appConfig, error) {
	cfg := appConfig{
		TelegramToken:   strings.TrimSpace(viper.GetString("telegram.token")),
		SecurityToken:   strings.TrimSpace(viper.GetString("telegram.security_token")),
		TelegramBaseURL: viper.GetString("telegram.base_url"),

		OpenAIAPIKey:  strings.TrimSpace(viper.GetString("openai.api_key")),
		OpenAIBaseURL: viper.GetString("openai.base_url"),
		OpenAIProject: strings.TrimSpace(viper.GetString("openai.project_id")),

		Model:           viper.GetString("assistant.model"),
		DefaultLanguage: viper.GetString("assistant.default_language"),
		PollInterval:    viper.GetDuration("assistant.poll_interval"),
		PollAttempts:    viper.GetInt("assistant.poll_attempts"),

		StoreDir:     viper.GetString("store.dir"),
		MediaBaseURL: strings.TrimSpace(viper.GetString("media.base_url")),

		HandlerTimeout: viper.GetDuration("handler.timeout"),

		Bind: viper.GetString("server.bind"),
		Port: viper.GetInt("server.port"),
	}
	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("missing telegram.token (set via %s_TELEGRAM_TOKEN)", envPrefix)
	}
	if cfg.OpenAIAPIKey == "" {
		return cfg, fmt.Errorf("missing openai.api_key (set via %s_OPENAI_API_KEY)", envPrefix)
	}
	return cfg, nil
}
