package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitegrab/sitegrab/internal/crawler"
)

func newTestClient(followRedirects bool) *Client {
	return New(Config{
		UserAgent:       "sitegrab-test/1.0",
		Timeout:         2 * time.Second,
		FollowRedirects: followRedirects,
		MaxAttempts:     3,
		RetryPause:      10 * time.Millisecond,
	}, zap.NewNop())
}

func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.UserAgent())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	res, err := newTestClient(true).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(res.Body), "hello")
	require.True(t, res.IsHTML())
	require.Equal(t, "sitegrab-test/1.0", gotUA.Load())
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	res, err := newTestClient(true).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.EqualValues(t, 3, calls.Load())
}

func TestFetchUnusualSuccessStatuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"no content", http.StatusNoContent, ""},
		{"partial content", http.StatusPartialContent, "part"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			res, err := newTestClient(true).Fetch(context.Background(), srv.URL)
			require.NoError(t, err)
			require.Equal(t, tt.status, res.StatusCode)
			require.EqualValues(t, 1, calls.Load(), "a 2xx response must not be retried")
		})
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(true).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	require.EqualValues(t, 3, calls.Load())

	var cerr *crawler.CrawlError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, crawler.KindTransport, cerr.Kind)
	require.Equal(t, srv.URL, cerr.URL)
}

func TestFetchRedirectsDisabled(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>end</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// A redirect that is not followed surfaces as a non-2xx transport
	// failure after retries.
	_, err := newTestClient(false).Fetch(context.Background(), srv.URL+"/start")
	require.Error(t, err)

	res, err := newTestClient(true).Fetch(context.Background(), srv.URL+"/start")
	require.NoError(t, err)
	require.Contains(t, res.FinalURL, "/end")
}

func TestFetchCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(true).Fetch(ctx, "http://example.invalid")
	require.ErrorIs(t, err, context.Canceled)
}
