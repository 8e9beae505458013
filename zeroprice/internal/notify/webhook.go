package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/solarwatch/horosafe"
	"github.com/hazyhaar/solarwatch/listing"
)

// Webhook POSTs new entries as JSON to a URL.
type Webhook struct {
	url        string
	client     *http.Client
	maxRetries int
	validate   func(string) error
	logger     *slog.Logger
}

// WebhookOption configures a Webhook notifier.
type WebhookOption func(*Webhook)

// WithWebhookRetries sets the number of retries after the first attempt.
// Default: 0.
func WithWebhookRetries(n int) WebhookOption {
	return func(w *Webhook) { w.maxRetries = n }
}

// WithWebhookLogger sets a custom logger.
func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) { w.logger = l }
}

// WithWebhookClient replaces the HTTP client.
func WithWebhookClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

// WithURLValidator replaces horosafe.ValidateURL. Tests pointing at a
// loopback server pass a permissive validator.
func WithURLValidator(fn func(string) error) WebhookOption {
	return func(w *Webhook) { w.validate = fn }
}

// NewWebhook creates a Webhook notifier targeting url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		validate: horosafe.ValidateURL,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Payload is the JSON body of a webhook call.
type Payload struct {
	Type    string          `json:"type"`
	Count   int             `json:"count"`
	Entries []listing.Entry `json:"entries"`
}

// PayloadType identifies zero-price notifications to receivers.
const PayloadType = "zero_price_listings"

func (w *Webhook) Notify(ctx context.Context, entries []listing.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := w.validate(w.url); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}

	body, err := json.Marshal(Payload{Type: PayloadType, Count: len(entries), Entries: entries})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("webhook: post: %w", err)
			w.logger.Warn("webhook: request failed", "attempt", attempt+1, "error", err)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			w.logger.Info("webhook: delivered", "count", len(entries))
			return nil
		}
		lastErr = fmt.Errorf("webhook: status %d", resp.StatusCode)
		w.logger.Warn("webhook: bad status", "attempt", attempt+1, "status", resp.StatusCode)
	}
	if w.maxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("webhook: all retries exhausted: %w", lastErr)
}
