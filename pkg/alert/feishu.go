package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Feishu sends text messages through a Feishu custom-bot webhook.
type Feishu struct {
	client     *http.Client
	webhookURL string
}

// NewFeishu creates a Feishu notifier.
func NewFeishu(webhookURL string) *Feishu {
	return &Feishu{
		client:     &http.Client{Timeout: 30 * time.Second},
		webhookURL: webhookURL,
	}
}

func (f *Feishu) Name() string { return "feishu" }

func (f *Feishu) Send(ctx context.Context, n *Notification) error {
	payload := map[string]any{
		"msg_type": "text",
		"content": map[string]string{
			"text": n.Text,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal feishu payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create feishu request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("send feishu message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feishu status %d", resp.StatusCode)
	}

	// Custom bots answer {"code": 0} on success; app bots use StatusCode.
	var result struct {
		Code       *int   `json:"code"`
		StatusCode *int   `json:"StatusCode"`
		Msg        string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// Some deployments return an empty body; treat 200 as success.
		return nil
	}
	code := 0
	if result.Code != nil {
		code = *result.Code
	} else if result.StatusCode != nil {
		code = *result.StatusCode
	}
	if code != 0 {
		return fmt.Errorf("feishu code %d: %s", code, result.Msg)
	}
	return nil
}
