// Package notify delivers digests to an external channel. The selection core
// has no knowledge of delivery; failures here never touch committed state.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dailydose/internal/engine"
)

// Webhook POSTs each digest as JSON to a configured URL.
type Webhook struct {
	URL    string
	Client *http.Client
}

// NewWebhook creates a webhook notifier with the given request timeout.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	return &Webhook{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

// Deliver sends the digest. Retry policy is the caller's concern.
func (w *Webhook) Deliver(ctx context.Context, digest *engine.Digest) error {
	body, err := json.Marshal(digest)
	if err != nil {
		return fmt.Errorf("marshal digest: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver digest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("deliver digest: webhook returned %s", resp.Status)
	}
	return nil
}
