package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)

	viper.SetDefault("telegram.base_url", "https://api.telegram.org")

	viper.SetDefault("openai.base_url", "https://api.openai.com")

	viper.SetDefault("assistant.model", "gpt-5-mini")
	viper.SetDefault("assistant.default_language", "ua")
	viper.SetDefault("assistant.poll_interval", 2*time.Second)
	viper.SetDefault("assistant.poll_attempts", 30)

	viper.SetDefault("store.dir", "./data")

	// Handler budget: the poll ceiling (~60s) plus delivery headroom.
	viper.SetDefault("handler.timeout", 90*time.Second)

	viper.SetDefault("server.bind", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
}
