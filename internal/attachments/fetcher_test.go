package attachments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/notebridge/internal/graph"
	"github.com/mrlokans/notebridge/internal/oauth2"
	"github.com/mrlokans/notebridge/internal/vault"
)

func newTestFetcher(t *testing.T, handler http.HandlerFunc, batchSize int, pause time.Duration) (*Fetcher, *vault.Vault, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	v, err := vault.NewVault(t.TempDir())
	require.NoError(t, err)

	opts := graph.DefaultOptions()
	opts.RetryDelay = time.Millisecond
	client := graph.NewClient(oauth2.NewStaticTokenSource("t", "test"), graph.NewSessionHealth(), opts)

	return NewFetcher(client, v, batchSize, pause), v, server
}

func TestFetch_DownloadsAndWrites(t *testing.T) {
	f, v, server := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("imagebytes"))
	}, 7, 0)

	path, err := f.Fetch(context.Background(), server.URL+"/res/1", "Work/attachments", "pic.png")
	require.NoError(t, err)
	assert.Equal(t, "Work/attachments/pic.png", path)
	assert.True(t, v.Exists(path))
	assert.Equal(t, 1, f.Downloads())
}

func TestFetch_ExistingFileSkipsNetworkCall(t *testing.T) {
	var requests int32
	f, v, server := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Write([]byte("fresh"))
	}, 7, 0)

	require.NoError(t, v.WriteBinary("Work/attachments/pic.png", []byte("already here")))

	path, err := f.Fetch(context.Background(), server.URL+"/res/1", "Work/attachments", "pic.png")
	require.NoError(t, err)
	assert.Equal(t, "Work/attachments/pic.png", path)
	assert.Equal(t, int32(0), atomic.LoadInt32(&requests))
	assert.Equal(t, 0, f.Downloads())
}

func TestFetch_SameResourceReusesResult(t *testing.T) {
	var requests int32
	f, _, server := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Write([]byte("data"))
	}, 7, 0)

	first, err := f.Fetch(context.Background(), server.URL+"/res/1", "a", "pic.png")
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), server.URL+"/res/1", "a", "pic.png")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestFetch_NameCollisionGetsNumberedVariant(t *testing.T) {
	f, v, server := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}, 7, 0)

	first, err := f.Fetch(context.Background(), server.URL+"/res/1", "a", "pic.png")
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), server.URL+"/res/2", "a", "pic.png")
	require.NoError(t, err)

	assert.Equal(t, "a/pic.png", first)
	assert.Equal(t, "a/pic 1.png", second)
	assert.True(t, v.Exists(first))
	assert.True(t, v.Exists(second))
}

func TestFetch_PausesAfterEachBatch(t *testing.T) {
	const pause = 30 * time.Millisecond
	f, _, server := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}, 2, pause)

	start := time.Now()
	for i := 0; i < 4; i++ {
		_, err := f.Fetch(context.Background(), server.URL+"/res/"+string(rune('a'+i)), "a", "f"+string(rune('a'+i))+".bin")
		require.NoError(t, err)
	}

	// Four downloads with batch size two means two pauses.
	assert.GreaterOrEqual(t, time.Since(start), 2*pause)
	assert.Equal(t, 4, f.Downloads())
}

func TestFetch_DownloadFailureReturnsError(t *testing.T) {
	f, v, server := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, 7, 0)

	// Keep the retry budget at zero so the failure surfaces quickly.
	opts := graph.DefaultOptions()
	opts.MaxRetries = 0
	f.client = graph.NewClient(oauth2.NewStaticTokenSource("t", "test"), graph.NewSessionHealth(), opts)

	_, err := f.Fetch(context.Background(), server.URL+"/gone", "a", "pic.png")
	require.Error(t, err)
	assert.False(t, v.Exists("a/pic.png"))
}
