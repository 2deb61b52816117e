package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// azureProvider implements Provider against an Azure OpenAI deployment.
type azureProvider struct {
	endpoint   string
	deployment string
	apiVersion string
	apiKey     string
	opts       Options
	client     *http.Client
}

func newAzureProvider(sel Selection, opts Options) *azureProvider {
	return &azureProvider{
		endpoint:   strings.TrimRight(sel.Endpoint, "/"),
		deployment: sel.Deployment,
		apiVersion: sel.APIVersion,
		apiKey:     sel.APIKey,
		opts:       opts,
		client:     &http.Client{Timeout: opts.Timeout},
	}
}

// Generate calls the deployment's chat-completions endpoint. One attempt,
// no retry: the caller recovers via the deterministic fallback path.
func (az *azureProvider) Generate(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  az.opts.MaxTokens,
		"temperature": az.opts.Temperature,
	})

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		az.endpoint, az.deployment, az.apiVersion)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", az.apiKey)

	resp, err := az.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("azure openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	return decodeChatCompletion(raw, "azure openai")
}

// decodeChatCompletion handles the OpenAI-compatible response format shared
// by both profiles.
func decodeChatCompletion(raw []byte, provider string) (string, error) {
	var cr struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("%s: %s", provider, cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response", provider)
	}
	return cr.Choices[0].Message.Content, nil
}
