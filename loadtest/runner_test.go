package loadtest_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/hearth/loadtest"
)

func TestRunner_Run(t *testing.T) {
	t.Run("counts every request", func(t *testing.T) {
		var hits atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte("hello"))
		}))
		defer server.Close()

		result, err := loadtest.NewRunner().Run(context.Background(), loadtest.Plan{
			URL:         server.URL + "/time",
			Requests:    20,
			Concurrency: 5,
		})
		require.NoError(t, err)

		assert.Equal(t, int64(20), hits.Load())
		assert.Equal(t, 20, result.Succeeded)
		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, map[int]int{http.StatusOK: 20}, result.StatusCodes)
		assert.Equal(t, int64(100), result.Bytes)
		assert.LessOrEqual(t, result.Latency.Min, result.Latency.P50)
		assert.LessOrEqual(t, result.Latency.P50, result.Latency.P99)
		assert.LessOrEqual(t, result.Latency.P99, result.Latency.Max)
		assert.Positive(t, result.RequestsPerSecond())
	})

	t.Run("never exceeds concurrency", func(t *testing.T) {
		var inFlight, peak atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
		}))
		defer server.Close()

		_, err := loadtest.NewRunner().Run(context.Background(), loadtest.Plan{
			URL:         server.URL,
			Requests:    30,
			Concurrency: 3,
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, peak.Load(), int64(3))
	})

	t.Run("sends keep-alive and custom headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Bench") != "1" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		result, err := loadtest.NewRunner().Run(context.Background(), loadtest.Plan{
			URL:       server.URL,
			Requests:  4,
			KeepAlive: true,
			Headers:   map[string]string{"X-Bench": "1"},
		})
		require.NoError(t, err)
		assert.Equal(t, map[int]int{http.StatusNoContent: 4}, result.StatusCodes)
	})

	t.Run("records status codes separately", func(t *testing.T) {
		var n atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n.Add(1)%2 == 0 {
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		result, err := loadtest.NewRunner().Run(context.Background(), loadtest.Plan{
			URL:         server.URL,
			Requests:    10,
			Concurrency: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, 5, result.StatusCodes[http.StatusOK])
		assert.Equal(t, 5, result.StatusCodes[http.StatusNotFound])
	})

	t.Run("connection errors are counted as failures", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		result, err := loadtest.NewRunner().Run(context.Background(), loadtest.Plan{
			URL:      url,
			Requests: 3,
			Timeout:  time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Failed)
		assert.Equal(t, 0, result.Succeeded)
		assert.NotEmpty(t, result.Errors)
		assert.Empty(t, result.StatusCodes)
	})

	t.Run("custom client", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		runner := loadtest.NewRunner(loadtest.WithHTTPClient(server.Client()))
		result, err := runner.Run(context.Background(), loadtest.Plan{URL: server.URL, Requests: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, result.StatusCodes[http.StatusNotFound])
	})

	t.Run("invalid plan", func(t *testing.T) {
		_, err := loadtest.NewRunner().Run(context.Background(), loadtest.Plan{URL: "ftp://example.com"})
		require.ErrorIs(t, err, loadtest.ErrInvalidPlan)
	})

	t.Run("cancelled context", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := loadtest.NewRunner().Run(ctx, loadtest.Plan{URL: server.URL})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestPlan(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := loadtest.Plan{}.WithDefaults()
		assert.Equal(t, loadtest.DefaultURL, p.URL)
		assert.Equal(t, loadtest.DefaultRequests, p.Requests)
		assert.Equal(t, loadtest.DefaultConcurrency, p.Concurrency)
		assert.Equal(t, loadtest.DefaultTimeout, p.Timeout)
	})

	t.Run("validate", func(t *testing.T) {
		tests := []struct {
			name    string
			url     string
			wantErr bool
		}{
			{"http", "http://localhost:8000/time", false},
			{"https", "https://localhost:8000", true},
			{"no host", "http:///time", true},
			{"garbage", "://", true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := loadtest.Plan{URL: tt.url}.Validate()
				if tt.wantErr {
					assert.ErrorIs(t, err, loadtest.ErrInvalidPlan)
				} else {
					assert.NoError(t, err)
				}
			})
		}
	})

	t.Run("save and load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plan.yaml")
		want := loadtest.Plan{
			URL:         "http://127.0.0.1:9000/hello",
			Requests:    50,
			Concurrency: 10,
			Timeout:     3 * time.Second,
			KeepAlive:   true,
			Headers:     map[string]string{"Accept-Encoding": "gzip"},
		}
		require.NoError(t, want.Save(path))

		got, err := loadtest.LoadPlan(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("load missing file", func(t *testing.T) {
		_, err := loadtest.LoadPlan(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
