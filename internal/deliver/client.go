// Package deliver sends validated submission records to the backend, with
// bounded retries and exponential backoff. It performs no deduplication of its
// own; the monitor's content guard is the only duplicate filter.
package deliver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"leetsync/internal/extract"
	"leetsync/internal/store"
)

// ErrMissingCredential means no auth token was supplied; no network call is
// attempted in that case.
var ErrMissingCredential = errors.New("no auth token found")

// StatusError reports the final non-2xx response after the retry budget is
// exhausted.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Status)
}

// Recorder receives the persisted side effects of delivery attempts.
type Recorder interface {
	SetStatus(status store.Status) error
	MarkSynced(slug, title, language string, at time.Time) (int, error)
}

// Options configures a Client.
type Options struct {
	SubmitURL string
	Attempts  int
	BaseDelay time.Duration
	State     Recorder
	Logger    *zap.Logger
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client delivers submission records.
type Client struct {
	url       string
	attempts  int
	baseDelay time.Duration
	state     Recorder
	httpc     *http.Client
	log       *zap.Logger
}

// New creates a delivery client. Attempts defaults to 3 and BaseDelay to 1s.
func New(opts Options) *Client {
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		url:       opts.SubmitURL,
		attempts:  attempts,
		baseDelay: baseDelay,
		state:     opts.State,
		httpc:     httpc,
		log:       log,
	}
}

// Deliver posts the record with the bearer token. Each failed attempt waits
// baseDelay * 2^(attempt-1) before the next one; the final failure is returned
// as-is and persisted as status Error. On success the synced counter and
// lastSync stamp are updated and the parsed response body returned.
func (c *Client) Deliver(ctx context.Context, rec *extract.SubmissionRecord, token string) (map[string]any, error) {
	if token == "" {
		return nil, ErrMissingCredential
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	if c.state != nil {
		if err := c.state.SetStatus(store.StatusSyncing); err != nil {
			c.log.Warn("status update failed", zap.Error(err))
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		payload, err := c.attemptOnce(ctx, body, token)
		if err == nil {
			return c.finish(rec, payload)
		}
		lastErr = err

		c.log.Warn("delivery attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.attempts),
			zap.Error(err))

		if attempt == c.attempts {
			break
		}
		delay := c.baseDelay * time.Duration(1<<(attempt-1))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if c.state != nil {
		if err := c.state.SetStatus(store.StatusError); err != nil {
			c.log.Warn("status update failed", zap.Error(err))
		}
	}
	return nil, lastErr
}

func (c *Client) attemptOnce(ctx context.Context, body []byte, token string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused across retries.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}

func (c *Client) finish(rec *extract.SubmissionRecord, payload map[string]any) (map[string]any, error) {
	if c.state != nil {
		count, err := c.state.MarkSynced(rec.Slug, rec.ProblemTitle, rec.Language, time.Now())
		if err != nil {
			c.log.Warn("sync state update failed", zap.Error(err))
		} else {
			c.log.Info("submission synced",
				zap.String("slug", rec.Slug),
				zap.String("language", rec.Language),
				zap.Int("problems_synced", count))
		}
	}
	return payload, nil
}
