package distill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// AnthropicBackend talks to the Anthropic messages API.
type AnthropicBackend struct {
	httpc   *http.Client
	name    string
	model   string
	apiKey  string
	baseURL string
}

// NewAnthropicBackend creates a backend against api.anthropic.com or a
// compatible base URL.
func NewAnthropicBackend(name, model, baseURL, apiKey string) *AnthropicBackend {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if name == "" {
		name = model
	}
	return &AnthropicBackend{
		httpc:   &http.Client{Timeout: 120 * time.Second},
		name:    name,
		model:   model,
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

func (b *AnthropicBackend) Name() string { return b.name }

func (b *AnthropicBackend) Run(ctx context.Context, systemPrompt, userInput string) (string, error) {
	payload := map[string]any{
		"model":      b.model,
		"max_tokens": 8192,
		"system":     systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": userInput},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", b.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := b.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", b.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", &HTTPError{Status: resp.StatusCode, Detail: fmt.Sprintf("%v", errResp)}
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("no content returned")
	}
	return result.Content[0].Text, nil
}
