package alert

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFeishuSend(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Write([]byte(`{"code": 0}`))
	}))
	defer srv.Close()

	err := NewFeishu(srv.URL).Send(context.Background(), &Notification{Text: "摘要内容"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["msg_type"] != "text" {
		t.Errorf("msg_type = %v", got["msg_type"])
	}
	content, _ := got["content"].(map[string]any)
	if content["text"] != "摘要内容" {
		t.Errorf("content = %v", got["content"])
	}
}

func TestFeishuSendBotError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 19001, "msg": "param invalid"}`))
	}))
	defer srv.Close()

	err := NewFeishu(srv.URL).Send(context.Background(), &Notification{Text: "x"})
	if err == nil {
		t.Fatal("want error for non-zero bot code")
	}
}

func TestFeishuSendEmptyBodyIsSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	if err := NewFeishu(srv.URL).Send(context.Background(), &Notification{Text: "x"}); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestWebhookSignsPayload(t *testing.T) {
	t.Parallel()

	const secret = "topsecret"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
		if got := r.Header.Get("X-Signature-256"); got != want {
			t.Errorf("signature = %q, want %q", got, want)
		}
		var n Notification
		if err := json.Unmarshal(body, &n); err != nil || n.Title != "标题" {
			t.Errorf("payload = %s", body)
		}
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, secret).Send(context.Background(), &Notification{Title: "标题", Text: "正文"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestWebhookNon2xxFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL, "").Send(context.Background(), &Notification{Text: "x"}); err == nil {
		t.Fatal("want error for 502")
	}
}

type fakeNotifier struct {
	name string
	err  error
	sent int
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Send(context.Context, *Notification) error {
	f.sent++
	return f.err
}

func TestManagerBroadcastContinuesPastFailures(t *testing.T) {
	t.Parallel()

	bad := &fakeNotifier{name: "bad", err: fmt.Errorf("down")}
	good := &fakeNotifier{name: "good"}
	m := NewManager([]Notifier{bad, good})

	err := m.Broadcast(context.Background(), &Notification{Text: "x"})
	if err == nil {
		t.Fatal("want joined error from the failing notifier")
	}
	if bad.sent != 1 || good.sent != 1 {
		t.Errorf("sent counts bad=%d good=%d, want every notifier attempted", bad.sent, good.sent)
	}
}

func TestManagerEmpty(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	if m.HasNotifiers() {
		t.Error("empty manager must report no notifiers")
	}
	if err := m.Broadcast(context.Background(), &Notification{}); err != nil {
		t.Errorf("broadcast with no notifiers: %v", err)
	}
}
