package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const openaiURL = "https://api.openai.com/v1/chat/completions"

// openaiProvider implements Provider for the generic-hosted OpenAI profile.
type openaiProvider struct {
	apiKey string
	model  string
	opts   Options
	client *http.Client
}

func newOpenAIProvider(sel Selection, opts Options) *openaiProvider {
	return &openaiProvider{
		apiKey: sel.APIKey,
		model:  sel.Model,
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// Generate calls the OpenAI chat-completions API. One attempt, no retry.
func (op *openaiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"model": op.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  op.opts.MaxTokens,
		"temperature": op.opts.Temperature,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", openaiURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+op.apiKey)

	resp, err := op.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	return decodeChatCompletion(raw, "openai")
}
