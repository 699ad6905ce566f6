package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WebhookNotifier posts rendered notifications to an HTTP gateway, such as a
// WhatsApp or SMS relay.
type WebhookNotifier struct {
	url   string
	token string
	http  *http.Client
}

func NewWebhookNotifier(url, token string) *WebhookNotifier {
	return &WebhookNotifier{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type webhookPayload struct {
	To            string `json:"to"`
	Body          string `json:"body"`
	Kind          Kind   `json:"kind"`
	AppointmentID string `json:"appointment_id"`
}

func (w *WebhookNotifier) Notify(ctx context.Context, n Notification) error {
	if w.url == "" {
		return errors.New("notify: webhook url not configured")
	}
	raw, err := json.Marshal(webhookPayload{
		To:            DigitsOnly(n.Recipient),
		Body:          Render(n),
		Kind:          n.Kind,
		AppointmentID: n.AppointmentID,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: webhook %s: %w", n.Kind, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned %d", resp.StatusCode)
	}
	return nil
}
