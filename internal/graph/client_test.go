package graph

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenSource satisfies oauth2.TokenSource without hitting a token store.
type fakeTokenSource struct {
	token      string
	refreshes  int32
	refreshErr error
}

func (f *fakeTokenSource) Token(ctx context.Context) (string, error) {
	return f.token, nil
}

func (f *fakeTokenSource) ForceRefresh(ctx context.Context) error {
	if f.refreshErr != nil {
		return f.refreshErr
	}
	atomic.AddInt32(&f.refreshes, 1)
	f.token = "refreshed-token"
	return nil
}

func (f *fakeTokenSource) IsValid() bool            { return f.token != "" }
func (f *fakeTokenSource) ExpiresAt() *time.Time    { return nil }
func (f *fakeTokenSource) AccountID() string        { return "test" }

func testOptions() Options {
	opts := DefaultOptions()
	opts.RetryDelay = time.Millisecond
	opts.RateLimitDefault = time.Millisecond
	return opts
}

func newTestClient(tokens *fakeTokenSource, opts Options) *Client {
	return NewClient(tokens, NewSessionHealth(), opts)
}

func TestFetch_PaginatedAccumulatesAllPages(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/pages" {
			w.Write([]byte(`{"value":[{"id":"p1"},{"id":"p2"}],"@odata.nextLink":"` + server.URL + `/pages2"}`))
			return
		}
		w.Write([]byte(`{"value":[{"id":"p3"}]}`))
	}))
	defer server.Close()

	client := newTestClient(&fakeTokenSource{token: "t"}, testOptions())

	res, err := client.Fetch(context.Background(), server.URL+"/pages", KindPaginatedJSON, 0)
	require.NoError(t, err)
	assert.Len(t, res.Values, 3)
}

func TestFetch_UnauthorizedRefreshesAndRetries(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":"InvalidAuthenticationToken","message":"expired"}}`))
			return
		}
		assert.Equal(t, "Bearer refreshed-token", r.Header.Get("Authorization"))
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	tokens := &fakeTokenSource{token: "stale"}
	client := newTestClient(tokens, testOptions())

	res, err := client.Fetch(context.Background(), server.URL, KindText, 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokens.refreshes))
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestFetch_RefreshFailureSurfacesImmediately(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	authErr := errors.New("not authenticated")
	tokens := &fakeTokenSource{token: "stale", refreshErr: authErr}
	client := newTestClient(tokens, testOptions())

	_, err := client.Fetch(context.Background(), server.URL, KindText, 0)
	require.ErrorIs(t, err, authErr)
}

func TestFetch_RateLimitRetriesWithoutConsumingBudget(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) <= 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	// MaxRetries 0: any budget-consuming retry would fail the request, so
	// success proves rate-limit retries leave the counter untouched.
	opts := testOptions()
	opts.MaxRetries = 0
	client := newTestClient(&fakeTokenSource{token: "t"}, opts)

	res, err := client.Fetch(context.Background(), server.URL, KindText, 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestFetch_RateLimitWaitBudget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	opts := testOptions()
	opts.RateLimitMaxWaits = 2
	client := newTestClient(&fakeTokenSource{token: "t"}, opts)

	_, err := client.Fetch(context.Background(), server.URL, KindText, 0)
	require.ErrorIs(t, err, ErrRateLimitBudget)
}

func TestFetch_RetryBudgetExhausted(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	opts := testOptions()
	opts.MaxRetries = 2
	client := newTestClient(&fakeTokenSource{token: "t"}, opts)

	_, err := client.Fetch(context.Background(), server.URL, KindText, 0)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestFetch_CallerSuppliedRetryCountShrinksBudget(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	opts := testOptions()
	opts.MaxRetries = 2
	client := newTestClient(&fakeTokenSource{token: "t"}, opts)

	_, err := client.Fetch(context.Background(), server.URL, KindText, 2)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestFetch_StallGuardAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	health := NewSessionHealth()
	health.lastSuccess = time.Now().Add(-time.Hour)

	opts := testOptions()
	opts.StallTimeout = time.Minute
	client := NewClient(&fakeTokenSource{token: "t"}, health, opts)

	_, err := client.Fetch(context.Background(), server.URL, KindText, 0)
	require.ErrorIs(t, err, ErrStalled)
}

func TestFetch_CancelledContextFailsWithoutSending(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(&fakeTokenSource{token: "t"}, testOptions())

	_, err := client.Fetch(ctx, server.URL, KindText, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&requests))
}

func TestFetch_JSONKindRejectsInvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := newTestClient(&fakeTokenSource{token: "t"}, testOptions())

	_, err := client.Fetch(context.Background(), server.URL, KindJSON, 0)
	require.Error(t, err)
}

func TestRetryAfter(t *testing.T) {
	header := http.Header{}
	assert.Equal(t, time.Second, retryAfter(header, time.Second))

	header.Set("Retry-After", "30")
	assert.Equal(t, 30*time.Second, retryAfter(header, time.Second))

	header.Set("Retry-After", "soon")
	assert.Equal(t, time.Second, retryAfter(header, time.Second))
}
