// Package graph implements the resilient fetch client for the remote
// notebook API: pagination, token refresh on 401, rate-limit backoff on 429,
// a bounded retry budget for everything else, and a session-wide stall guard.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mrlokans/notebridge/internal/logger"
	"github.com/mrlokans/notebridge/internal/oauth2"
)

var (
	// ErrStalled aborts the whole import: no fetch has succeeded within the
	// stall timeout, which also guards against endless rate-limit backoff.
	ErrStalled = errors.New("no successful fetch within the stall timeout")

	// ErrRateLimitBudget is returned when a bounded rate-limit policy ran
	// out of waits for a single request.
	ErrRateLimitBudget = errors.New("rate limit wait budget exhausted")
)

// APIError is a non-success response from the remote API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Provider error codes that need special handling. The rate-limit code is
// the OneNote-specific one; InvalidAuthenticationToken accompanies expired
// bearer tokens even on some non-401 statuses.
const (
	errCodeExpiredToken = "InvalidAuthenticationToken"
	errCodeRateLimited  = "20166"
)

// Kind selects the response-parsing strategy for one fetch.
type Kind int

const (
	KindText Kind = iota
	KindBinary
	KindJSON
	KindPaginatedJSON
)

// Result holds the parsed response; exactly one field is populated,
// matching the requested Kind.
type Result struct {
	Text   string
	Binary []byte
	JSON   json.RawMessage
	Values []json.RawMessage // accumulated across pages for KindPaginatedJSON
}

// Options configures retry and backoff behavior.
type Options struct {
	MaxRetries        int           // Bounded retry budget per request
	RetryDelay        time.Duration // Delay between bounded retries
	RateLimitDefault  time.Duration // Backoff when no Retry-After header is given
	RateLimitMaxWaits int           // 0 = wait out throttling indefinitely
	StallTimeout      time.Duration
	RequestTimeout    time.Duration
}

// DefaultOptions returns the production retry policy.
func DefaultOptions() Options {
	return Options{
		MaxRetries:        3,
		RetryDelay:        time.Second,
		RateLimitDefault:  15 * time.Second,
		RateLimitMaxWaits: 0,
		StallTimeout:      5 * time.Minute,
		RequestTimeout:    60 * time.Second,
	}
}

// Client is the authenticated fetch layer every other component calls through.
type Client struct {
	httpClient *http.Client
	tokens     oauth2.TokenSource
	health     *SessionHealth
	opts       Options
}

// NewClient creates a fetch client bound to a token source and a session
// health tracker.
func NewClient(tokens oauth2.TokenSource, health *SessionHealth, opts Options) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: opts.RequestTimeout},
		tokens:     tokens,
		health:     health,
		opts:       opts,
	}
}

// Health returns the session health tracker shared with the importer.
func (c *Client) Health() *SessionHealth {
	return c.health
}

// Fetch performs one logical request. For KindPaginatedJSON the continuation
// link in each response body is followed until exhausted and the combined
// value list is returned as a single result.
func (c *Client) Fetch(ctx context.Context, url string, kind Kind, retryCount int) (*Result, error) {
	if kind != KindPaginatedJSON {
		return c.fetchOne(ctx, url, kind, retryCount)
	}

	var values []json.RawMessage
	next := url
	for next != "" {
		res, err := c.fetchOne(ctx, next, KindJSON, retryCount)
		if err != nil {
			return nil, err
		}

		var envelope struct {
			Value    []json.RawMessage `json:"value"`
			NextLink string            `json:"@odata.nextLink"`
		}
		if err := json.Unmarshal(res.JSON, &envelope); err != nil {
			return nil, fmt.Errorf("failed to parse paginated response: %w", err)
		}

		values = append(values, envelope.Value...)
		next = envelope.NextLink
	}

	return &Result{Values: values}, nil
}

// GetPaginated fetches a paginated collection with a fresh retry budget.
func (c *Client) GetPaginated(ctx context.Context, url string) ([]json.RawMessage, error) {
	res, err := c.Fetch(ctx, url, KindPaginatedJSON, 0)
	if err != nil {
		return nil, err
	}
	return res.Values, nil
}

// GetText fetches a textual body with a fresh retry budget.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	res, err := c.Fetch(ctx, url, KindText, 0)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// GetBinary fetches a binary body with a fresh retry budget.
func (c *Client) GetBinary(ctx context.Context, url string) ([]byte, error) {
	res, err := c.Fetch(ctx, url, KindBinary, 0)
	if err != nil {
		return nil, err
	}
	return res.Binary, nil
}

// fetchOne runs the per-request state machine: send, then classify the
// outcome as Ok / Unauthorized / RateLimited / OtherError / NetworkError.
func (c *Client) fetchOne(ctx context.Context, url string, kind Kind, retryCount int) (*Result, error) {
	rateLimitWaits := 0

	for {
		// Cancellation is checked before every send and fails immediately.
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("request cancelled: %w", err)
		}
		if c.health.Stalled(c.opts.StallTimeout) {
			return nil, fmt.Errorf("%w (last success %s ago)", ErrStalled, c.health.SinceLastSuccess().Round(time.Second))
		}

		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// NetworkError: consumes one unit of the retry budget.
			retryCount++
			if retryCount > c.opts.MaxRetries {
				return nil, fmt.Errorf("request failed after %d retries: %w", c.opts.MaxRetries, err)
			}
			logger.Warn("network error, retrying", logger.Fields{"url": url, "attempt": retryCount})
			if err := sleepCtx(ctx, c.opts.RetryDelay); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if readErr != nil {
				return nil, fmt.Errorf("failed to read response body: %w", readErr)
			}
			c.health.RecordSuccess()
			return parseBody(kind, body)
		}

		apiErr := parseAPIError(resp.StatusCode, body)

		switch {
		case resp.StatusCode == http.StatusUnauthorized || apiErr.Code == errCodeExpiredToken:
			// Unauthorized: refresh and retry, consuming one unit of the budget.
			// A refresh failure is Unauthenticated and surfaces immediately.
			if err := c.tokens.ForceRefresh(ctx); err != nil {
				return nil, err
			}
			retryCount++
			if retryCount > c.opts.MaxRetries {
				return nil, fmt.Errorf("still unauthorized after %d retries: %w", c.opts.MaxRetries, apiErr)
			}
			logger.Debug("token refreshed, retrying request", logger.Fields{"url": url})
			continue

		case resp.StatusCode == http.StatusTooManyRequests || apiErr.Code == errCodeRateLimited:
			// RateLimited: sleep the suggested duration and retry the identical
			// request without touching retryCount. Bounded only by the stall
			// timeout unless RateLimitMaxWaits is configured.
			rateLimitWaits++
			if c.opts.RateLimitMaxWaits > 0 && rateLimitWaits > c.opts.RateLimitMaxWaits {
				return nil, fmt.Errorf("%w: %s", ErrRateLimitBudget, apiErr)
			}
			delay := retryAfter(resp.Header, c.opts.RateLimitDefault)
			logger.Info("rate limited, backing off", logger.Fields{"delay": delay.String(), "waits": rateLimitWaits})
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
			continue

		default:
			// OtherError: consumes one unit of the retry budget.
			retryCount++
			if retryCount > c.opts.MaxRetries {
				return nil, fmt.Errorf("request failed after %d retries: %w", c.opts.MaxRetries, apiErr)
			}
			logger.Warn("api error, retrying", logger.Fields{"url": url, "status": resp.StatusCode, "attempt": retryCount})
			if err := sleepCtx(ctx, c.opts.RetryDelay); err != nil {
				return nil, err
			}
			continue
		}
	}
}

func parseBody(kind Kind, body []byte) (*Result, error) {
	switch kind {
	case KindText:
		return &Result{Text: string(body)}, nil
	case KindBinary:
		return &Result{Binary: body}, nil
	case KindJSON:
		if !json.Valid(body) {
			return nil, fmt.Errorf("response is not valid JSON")
		}
		return &Result{JSON: json.RawMessage(body)}, nil
	default:
		return nil, fmt.Errorf("unsupported fetch kind %d", kind)
	}
}

// parseAPIError extracts the machine-readable error code from the response
// body, tolerating non-JSON bodies.
func parseAPIError(status int, body []byte) *APIError {
	var errResp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Code != "" {
		return &APIError{StatusCode: status, Code: errResp.Error.Code, Message: errResp.Error.Message}
	}
	msg := string(body)
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return &APIError{StatusCode: status, Message: msg}
}

// retryAfter reads the provider-suggested backoff, falling back to a default.
func retryAfter(header http.Header, fallback time.Duration) time.Duration {
	raw := header.Get("Retry-After")
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("request cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
