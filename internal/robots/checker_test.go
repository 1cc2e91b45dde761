package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckerEnforcesDisallow(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	allowAll, err := NewChecker(false, "test-agent", logger)
	require.NoError(t, err)
	assert.True(t, allowAll.Allowed(ctx, "https://example.com/whatever"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprintln(w, "User-agent: *\nDisallow: /blocked\nCrawl-delay: 2")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker, err := NewChecker(true, "test-agent", logger)
	require.NoError(t, err)
	assert.True(t, checker.Allowed(ctx, srv.URL+"/allowed"))
	assert.False(t, checker.Allowed(ctx, srv.URL+"/blocked"))
	assert.Equal(t, 2*time.Second, checker.CrawlDelay(ctx, srv.URL+"/allowed"))
}

func TestCheckerFailsOpenOnFetchError(t *testing.T) {
	ctx := context.Background()
	checker, err := NewChecker(true, "test-agent", zap.NewNop())
	require.NoError(t, err)

	// Unroutable host: the fetch errors and the checker must allow anyway.
	assert.True(t, checker.Allowed(ctx, "http://127.0.0.1:1/recipes/1"))
	assert.Equal(t, time.Duration(0), checker.CrawlDelay(ctx, "http://127.0.0.1:1/recipes/1"))
}

func TestCheckerFailsOpenOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	checker, err := NewChecker(true, "test-agent", zap.NewNop())
	require.NoError(t, err)
	assert.True(t, checker.Allowed(context.Background(), srv.URL+"/anything"))
}

func TestCheckerCachesPerHost(t *testing.T) {
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fetches.Add(1)
			fmt.Fprintln(w, "User-agent: *\nDisallow:")
		}
	}))
	defer srv.Close()

	checker, err := NewChecker(true, "test-agent", zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		assert.True(t, checker.Allowed(ctx, fmt.Sprintf("%s/recipes/%d", srv.URL, i)))
	}
	assert.Equal(t, int64(1), fetches.Load())
}
