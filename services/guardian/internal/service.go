package internal

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codeguardian/guardian/shared/bugfix"
	"github.com/codeguardian/guardian/shared/gitlab"
	"github.com/codeguardian/guardian/shared/llm"
	"github.com/codeguardian/guardian/shared/mq"
	"github.com/codeguardian/guardian/shared/story"
)

// Service owns every generator plus the transport pieces around them.
// A missing LLM configuration is not fatal: generation then runs on the
// deterministic fallbacks and the status endpoint reports what is absent.
type Service struct {
	cfg Config
	hub *Hub

	provider      llm.Provider
	providerKind  llm.Kind
	missingConfig *llm.ConfigMissingError

	broker  *mq.Broker
	stories *story.Generator
	fixes   *bugfix.Fixer
	gitlab  *gitlab.Client
}

func NewService(cfg Config, environ map[string]string) *Service {
	s := &Service{
		cfg:    cfg,
		hub:    NewHub(),
		gitlab: gitlab.NewClient(cfg.GitLabURL, cfg.GitLabToken),
	}

	sel, err := llm.SelectProvider(environ)
	if err != nil {
		var missing *llm.ConfigMissingError
		if errors.As(err, &missing) {
			s.missingConfig = missing
			log.Warn().
				Strs("enterprise", missing.Enterprise).
				Strs("generic", missing.Generic).
				Msg("no LLM backend configured, generation will use fallbacks")
		}
	} else {
		opts := llm.DefaultOptions()
		opts.MaxTokens = cfg.LLMMaxTokens
		opts.Timeout = cfg.LLMTimeout
		s.provider = llm.New(sel, opts)
		s.providerKind = sel.Kind
		log.Info().Str("profile", string(sel.Kind)).Msg("LLM backend configured")
	}

	if cfg.AMQPURL != "" {
		broker, err := mq.New(cfg.AMQPURL)
		if err != nil {
			log.Warn().Err(err).Msg("mq connect failed, events will not be published")
		} else {
			s.broker = broker
		}
	}

	s.stories = story.NewGenerator(s.provider)
	s.fixes = bugfix.NewFixer(s.provider)
	return s
}

// Run serves the API and the WebSocket hub until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.hub.Run(ctx) })
	g.Go(func() error { return s.serveAPI(ctx) })
	return g.Wait()
}

func (s *Service) Close() {
	s.broker.Close()
}

// LLMEnviron collects the provider-selection variables from the process
// environment.
func LLMEnviron() map[string]string {
	keys := []string{
		llm.EnvAzureAPIKey, llm.EnvAzureEndpoint, llm.EnvAzureAPIBase,
		llm.EnvAzureDeployment, llm.EnvAzureAPIVersion,
		llm.EnvOpenAIAPIKey, llm.EnvOpenAIModelName,
	}
	environ := make(map[string]string, len(keys))
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			environ[k] = v
		}
	}
	return environ
}
