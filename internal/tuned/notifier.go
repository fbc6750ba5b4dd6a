package tuned

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jingdong00/FLAML/pkg/config"
	"github.com/jingdong00/FLAML/pkg/models"
	"github.com/jingdong00/FLAML/pkg/utils"
)

const (
	secretHeader = "X-Tuned-Secret"
	// deliveryHeader carries an opaque ID shared by all attempts of one
	// delivery, so receivers can deduplicate retried callbacks.
	deliveryHeader = "X-Tuned-Delivery"
)

// Notifier delivers completion events to experiment callbacks with
// retries. The callback URL may contain a {job_id} placeholder.
type Notifier struct {
	client      *http.Client
	backoff     utils.BackoffStrategy
	maxAttempts int
	log         *slog.Logger
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithNotifierClient overrides the HTTP client.
func WithNotifierClient(client *http.Client) NotifierOption {
	return func(n *Notifier) { n.client = client }
}

// WithNotifierRetries sets the attempt limit and delay strategy.
func WithNotifierRetries(maxAttempts int, backoff utils.BackoffStrategy) NotifierOption {
	return func(n *Notifier) {
		n.maxAttempts = maxAttempts
		n.backoff = backoff
	}
}

// WithNotifierLogger sets the logger.
func WithNotifierLogger(log *slog.Logger) NotifierOption {
	return func(n *Notifier) { n.log = log }
}

// NewNotifier returns a notifier with sane retry defaults.
func NewNotifier(opts ...NotifierOption) *Notifier {
	n := &Notifier{
		client:      &http.Client{Timeout: 10 * time.Second},
		backoff:     utils.NewExponentialBackoff(500*time.Millisecond, 10*time.Second, 2.0, true),
		maxAttempts: 3,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify POSTs the event to the callback URL, retrying transient
// failures. Any 2xx response counts as delivered.
func (n *Notifier) Notify(ctx context.Context, cb *config.Callback, event models.CompletionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode completion event: %w", err)
	}

	url := strings.ReplaceAll(cb.URL, "{job_id}", event.JobID)
	deliveryID := utils.GenerateCallbackID()

	var lastErr error
	for attempt := 0; attempt < n.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := n.backoff.NextDelay(attempt - 1)
			n.log.Debug("retrying callback", "url", url, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = n.deliver(ctx, url, cb.Secret, deliveryID, payload)
		if lastErr == nil {
			n.log.Info("callback delivered", "url", url, "job_id", event.JobID, "delivery_id", deliveryID)
			return nil
		}
	}

	return fmt.Errorf("callback failed after %d attempt(s): %w", n.maxAttempts, lastErr)
}

func (n *Notifier) deliver(ctx context.Context, url, secret, deliveryID string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(deliveryHeader, deliveryID)
	if secret != "" {
		req.Header.Set(secretHeader, secret)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}
