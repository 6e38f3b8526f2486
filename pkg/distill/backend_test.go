package distill

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIBackendRun(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}

		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.Model != "deepseek-chat" {
			t.Errorf("model = %q", payload.Model)
		}
		if len(payload.Messages) != 2 || payload.Messages[0].Role != "system" || payload.Messages[1].Role != "user" {
			t.Errorf("messages = %+v", payload.Messages)
		}

		w.Write([]byte(`{"choices": [{"message": {"content": "{\"items\": []}"}}]}`))
	}))
	defer srv.Close()

	b := NewOpenAIBackend("deepseek", "deepseek-chat", srv.URL, "sk-test")
	out, err := b.Run(context.Background(), "系统提示", "输入")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != `{"items": []}` {
		t.Errorf("out = %q", out)
	}
}

func TestOpenAIBackendHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIBackend("x", "m", srv.URL, "k").Run(context.Background(), "s", "u")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error type %T, want *HTTPError", err)
	}
	if httpErr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d", httpErr.Status)
	}
}

func TestAnthropicBackendRun(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "sk-ant" {
			t.Errorf("api key header = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Error("anthropic-version header missing")
		}

		var payload struct {
			System   string `json:"system"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.System != "系统提示" {
			t.Errorf("system = %q", payload.System)
		}
		if len(payload.Messages) != 1 || payload.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", payload.Messages)
		}

		w.Write([]byte(`{"content": [{"text": "答复"}]}`))
	}))
	defer srv.Close()

	b := NewAnthropicBackend("claude", "claude-sonnet", srv.URL, "sk-ant")
	out, err := b.Run(context.Background(), "系统提示", "输入")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "答复" {
		t.Errorf("out = %q", out)
	}
}

func TestBackendNameDefaultsToModel(t *testing.T) {
	t.Parallel()
	if got := NewOpenAIBackend("", "gpt-4o-mini", "", "k").Name(); got != "gpt-4o-mini" {
		t.Errorf("name = %q", got)
	}
}
