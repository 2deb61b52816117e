package internal

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIPort     string
	AMQPURL     string
	GitLabURL   string
	GitLabToken string

	LLMMaxTokens int
	LLMTimeout   time.Duration
	MaxFileSize  int64
}

func ConfigFromEnv() Config {
	return Config{
		APIPort:      env("API_PORT", "8080"),
		AMQPURL:      env("AMQP_URL", ""),
		GitLabURL:    env("GITLAB_URL", "https://gitlab.com"),
		GitLabToken:  env("GITLAB_TOKEN", ""),
		LLMMaxTokens: envInt("LLM_MAX_TOKENS", 15000),
		LLMTimeout:   time.Duration(envInt("LLM_TIMEOUT_SECONDS", 120)) * time.Second,
		MaxFileSize:  int64(envInt("MAX_FILE_SIZE", 10485760)),
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		n, _ := strconv.Atoi(v)
		if n > 0 {
			return n
		}
	}
	return def
}
