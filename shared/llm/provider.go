// Package llm selects and constructs the hosted LLM backend used for
// generation. Two profiles are supported: the enterprise-hosted Azure OpenAI
// deployment, preferred whenever its credentials are complete, and plain
// OpenAI as the generic fallback profile.
package llm

import (
	"context"
	"strings"
	"time"
)

// Provider is an abstraction over LLM HTTP backends. Each implementation
// handles provider-specific authentication and request/response formatting.
type Provider interface {
	// Generate sends the prompt and returns the raw completion text.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options are backend knobs applied to every request, regardless of profile.
type Options struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultOptions mirrors the documented operational defaults: a 15000 token
// cap passed through to the provider and a two minute call ceiling.
func DefaultOptions() Options {
	return Options{
		MaxTokens:   15000,
		Temperature: 0.7,
		Timeout:     120 * time.Second,
	}
}

// New constructs the client for a successful selection.
func New(sel Selection, opts Options) Provider {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultOptions().MaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if sel.Kind == KindEnterprise {
		return newAzureProvider(sel, opts)
	}
	return newOpenAIProvider(sel, opts)
}

// StripFences removes a leading/trailing markdown code fence from a
// completion, which models emit despite instructions not to.
func StripFences(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 0 && (strings.HasPrefix(lines[0], "```") || strings.HasPrefix(lines[0], "~~~")) {
		lines = lines[1:]
	}
	if len(lines) > 0 && (strings.HasPrefix(lines[len(lines)-1], "```") || strings.HasPrefix(lines[len(lines)-1], "~~~")) {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
