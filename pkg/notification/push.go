package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type PushConfig struct {
	// Topics 为空时推送给所有设备
	Topics []string
}

type PushClient interface {
	Push(ctx context.Context, title, content string, audience map[string]interface{}, extras map[string]interface{}) error
}

type Push struct {
	cfg PushConfig
	cli PushClient
}

func NewPush(cfg PushConfig, cli PushClient) *Push { return &Push{cfg: cfg, cli: cli} }

func (p *Push) Notify(ctx context.Context, a Alert) error {
	if p.cli == nil {
		return ErrNotConfigured
	}
	aud := map[string]interface{}{"all": true}
	if len(p.cfg.Topics) > 0 {
		aud = map[string]interface{}{"tag": p.cfg.Topics}
	}
	extras := map[string]interface{}{
		"flow_id": a.FlowID,
		"kind":    a.Kind,
		"bureau":  a.Bureau,
	}
	if a.ImageURL != "" {
		extras["image_url"] = a.ImageURL
	}
	return p.cli.Push(ctx, a.Title, a.Summary(), aud, extras)
}

// WebhookClient relays pushes and texts as JSON to an HTTP gateway. It
// satisfies both PushClient and SMSClient.
type WebhookClient struct {
	URL  string
	HTTP *http.Client
}

type webhookPush struct {
	Title    string                 `json:"title"`
	Content  string                 `json:"content"`
	Audience map[string]interface{} `json:"audience"`
	Extras   map[string]interface{} `json:"extras,omitempty"`
}

type webhookSMS struct {
	Phone    string            `json:"phone"`
	Sign     string            `json:"sign,omitempty"`
	Template string            `json:"template,omitempty"`
	Params   map[string]string `json:"params"`
}

func (w *WebhookClient) Push(ctx context.Context, title, content string, audience map[string]interface{}, extras map[string]interface{}) error {
	return w.post(ctx, webhookPush{Title: title, Content: content, Audience: audience, Extras: extras})
}

func (w *WebhookClient) Send(ctx context.Context, phone, sign, template string, params map[string]string) error {
	return w.post(ctx, webhookSMS{Phone: phone, Sign: sign, Template: template, Params: params})
}

func (w *WebhookClient) post(ctx context.Context, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	hc := w.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
