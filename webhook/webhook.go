// Package webhook posts signed run notifications.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/dodf/models"
)

// SignatureHeader carries "sha256=<hex HMAC of the body>" when a secret is set.
const SignatureHeader = "X-DODF-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string            `json:"type"` // "run.completed", "run.empty" or "run.failed"
	RunID     string            `json:"run_id,omitempty"`
	Timestamp int64             `json:"timestamp"`
	Data      *models.RunResult `json:"data"`
}

// EventType maps a run status to its event name.
func EventType(status string) string {
	switch status {
	case models.RunCompleted:
		return "run.completed"
	case models.RunEmpty:
		return "run.empty"
	default:
		return "run.failed"
	}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Notifier delivers run events to one endpoint.
type Notifier struct {
	URL    string
	Secret string

	// Retries are the waits before each redelivery attempt.
	Retries []time.Duration

	client *http.Client
}

// New returns a Notifier with the default retry schedule (1s, 5s, 30s).
func New(url, secret string) *Notifier {
	return &Notifier{
		URL:     url,
		Secret:  secret,
		Retries: []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second},
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Deliver sends an event synchronously.
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "DODF-Webhook/1.0")
	if n.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.Secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Notify delivers the outcome of a run, retrying on failure until the
// schedule is exhausted or ctx is done.
func (n *Notifier) Notify(ctx context.Context, runID string, result *models.RunResult) {
	event := &Event{
		Type:      EventType(result.Status),
		RunID:     runID,
		Timestamp: time.Now().Unix(),
		Data:      result,
	}

	delays := append([]time.Duration{0}, n.Retries...)
	for attempt, delay := range delays {
		if delay > 0 {
			select {
			case <-ctx.Done():
				slog.Warn("webhook delivery abandoned", "url", n.URL, "error", ctx.Err())
				return
			case <-time.After(delay):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := n.Deliver(attemptCtx, event)
		cancel()
		if err == nil {
			slog.Info("webhook delivered",
				"url", n.URL,
				"event", event.Type,
				"run_id", runID,
				"attempt", attempt+1,
			)
			return
		}
		slog.Warn("webhook delivery failed",
			"url", n.URL,
			"event", event.Type,
			"run_id", runID,
			"attempt", attempt+1,
			"error", err,
		)
	}
	slog.Error("webhook delivery exhausted all retries",
		"url", n.URL,
		"event", event.Type,
		"run_id", runID,
	)
}

// NotifyAsync runs Notify in its own goroutine, detached from the caller's
// cancellation.
func (n *Notifier) NotifyAsync(runID string, result *models.RunResult) {
	go n.Notify(context.Background(), runID, result)
}
