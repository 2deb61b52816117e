// guardian is the CodeGuardian API service.
// It generates agile user stories, unit tests, and bug-fix suggestions
// from submitted code or requirements, using an Azure OpenAI or OpenAI
// backend when one is configured and deterministic fallbacks when not.
// Processing events stream to browsers over WebSocket and, when a broker
// is configured, to RabbitMQ for auditing.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codeguardian/guardian/services/guardian/internal"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "1" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	_ = godotenv.Load()

	cfg := internal.ConfigFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info().Msg("shutdown signal — stopping guardian")
		cancel()
	}()

	svc := internal.NewService(cfg, internal.LLMEnviron())
	defer svc.Close()

	printBanner()
	log.Info().
		Str("api_port", cfg.APIPort).
		Str("gitlab", cfg.GitLabURL).
		Msg("guardian online")

	if err := svc.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("guardian exited")
	}
}

func printBanner() {
	log.Info().Msg("╔══════════════════════════════════════╗")
	log.Info().Msg("║  CODEGUARDIAN  API  v0.3             ║")
	log.Info().Msg("║  Stories · Tests · Fixes  AI Agent   ║")
	log.Info().Msg("╚══════════════════════════════════════╝")
}
