package distill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OpenAIBackend talks to any OpenAI-compatible chat completion endpoint
// (OpenAI, DeepSeek, DashScope/Qwen, Moonshot/Kimi, ...).
type OpenAIBackend struct {
	httpc   *http.Client
	name    string
	model   string
	apiKey  string
	baseURL string
}

// NewOpenAIBackend creates a backend. baseURL must point at the API root
// that prefixes /chat/completions (e.g. https://api.deepseek.com/v1); empty
// defaults to the OpenAI endpoint.
func NewOpenAIBackend(name, model, baseURL, apiKey string) *OpenAIBackend {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if name == "" {
		name = model
	}
	return &OpenAIBackend{
		httpc:   &http.Client{Timeout: 120 * time.Second},
		name:    name,
		model:   model,
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

func (b *OpenAIBackend) Name() string { return b.name }

func (b *OpenAIBackend) Run(ctx context.Context, systemPrompt, userInput string) (string, error) {
	payload := map[string]any{
		"model": b.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userInput},
		},
		"temperature": 0.1,
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

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
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return result.Choices[0].Message.Content, nil
}
