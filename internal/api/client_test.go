package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GordonCopestake/Logisplit/internal/domain"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Options{
		BaseURL:      baseURL,
		Timeout:      5 * time.Second,
		RetryCount:   2,
		RetryWait:    time.Millisecond,
		RetryMaxWait: 5 * time.Millisecond,
	})
}

func TestURL(t *testing.T) {
	c := newTestClient("http://localhost:8000/")

	assert.Equal(t, "http://localhost:8000", c.BaseURL())
	assert.Equal(t, "http://localhost:8000/upload/stream", c.URL(UploadPath))
	assert.Equal(t, "http://localhost:8000/patterns.json", c.URL("patterns.json"))
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8000", "ws://localhost:8000/progress"},
		{"https://splitter.example.com", "wss://splitter.example.com/progress"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := newTestClient(tt.base).WebSocketURL(ProgressPath)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := newTestClient("ftp://files").WebSocketURL(ProgressPath)
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}

func TestRetryOnlyForGet(t *testing.T) {
	var gets, posts int32

	r := chi.NewRouter()
	r.Get("/flaky", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&gets, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/flaky", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&posts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := newTestClient(srv.URL)
	ctx := context.Background()

	resp, err := c.R(ctx).Get(c.URL("/flaky"))
	require.NoError(t, Check(resp, err, "get"))
	assert.EqualValues(t, 3, atomic.LoadInt32(&gets))

	resp, err = c.R(ctx).Post(c.URL("/flaky"))
	checkErr := Check(resp, err, "post")
	require.Error(t, checkErr)
	assert.Equal(t, http.StatusServiceUnavailable, domain.StatusCode(checkErr))
	assert.EqualValues(t, 1, atomic.LoadInt32(&posts))
}

func TestCheck_TransportError(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")

	resp, err := c.TransferR(context.Background()).Get(c.URL(DownloadPath))
	checkErr := Check(resp, err, "retrieve result")

	require.Error(t, checkErr)
	assert.True(t, domain.IsType(checkErr, domain.ErrorTypeNetwork))
}

func TestRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, retryableStatus(code), "status %d should be retried", code)
	}
	for _, code := range []int{200, 400, 404, 501} {
		assert.False(t, retryableStatus(code), "status %d should not be retried", code)
	}
}
