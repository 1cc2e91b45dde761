package errclass

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizeStatusCodes(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
		skip      bool
		reason    string
		delay     time.Duration
		retries   int
	}{
		{404, false, true, "not_found", 0, 0},
		{403, false, true, "forbidden", 0, 0},
		{429, true, false, "rate_limited", 60 * time.Second, 3},
		{503, true, false, "service_unavailable", 10 * time.Second, 5},
		{500, true, false, "server_error", 5 * time.Second, 3},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			cat := Categorize(&StatusError{URL: "https://example.com/r/1", StatusCode: tc.status})
			assert.Equal(t, tc.retryable, cat.Retryable)
			assert.Equal(t, tc.skip, cat.SkipPermanently)
			assert.Equal(t, tc.reason, cat.Reason)
			assert.Equal(t, tc.delay, cat.RetryDelay)
			assert.Equal(t, tc.retries, cat.MaxRetries)
		})
	}
}

func TestCategorizeNetworkErrorStrings(t *testing.T) {
	tests := []struct {
		msg    string
		reason string
	}{
		{"dial tcp: ETIMEDOUT", "timeout"},
		{"read: ECONNRESET by peer", "timeout"},
		{"dial tcp: ECONNREFUSED", "network_unreachable"},
		{"lookup host: ENOTFOUND", "network_unreachable"},
		{"lookup host: EAI_AGAIN temporary failure", "network_unreachable"},
	}
	for _, tc := range tests {
		t.Run(tc.msg, func(t *testing.T) {
			cat := Categorize(errors.New(tc.msg))
			assert.True(t, cat.Retryable)
			assert.False(t, cat.SkipPermanently)
			assert.Equal(t, tc.reason, cat.Reason)
			assert.Equal(t, 5, cat.MaxRetries)
		})
	}
}

func TestCategorizeRobotsAndParse(t *testing.T) {
	robots := Categorize(&RobotsDisallowedError{URL: "https://example.com/r/1"})
	assert.True(t, robots.SkipPermanently)
	assert.False(t, robots.Retryable)

	parse := Categorize(&ParseError{URL: "https://example.com/r/1", Reason: "no recipe markup"})
	assert.True(t, parse.SkipPermanently)
	assert.False(t, parse.Retryable)

	validation := Categorize(&ValidationError{URL: "https://example.com/r/1", Err: errors.New("missing instructions")})
	assert.True(t, validation.SkipPermanently)
	assert.False(t, validation.Retryable)
}

func TestCategorizeDefaultsToRetryable(t *testing.T) {
	cat := Categorize(errors.New("something inexplicable happened"))
	assert.True(t, cat.Retryable)
	assert.False(t, cat.SkipPermanently)
	assert.Equal(t, "unknown", cat.Reason)
	assert.Equal(t, 5, cat.MaxRetries)
}

func TestRetryDelayFixedCategory(t *testing.T) {
	// Fixed category delays are exact: no jitter, no attempt scaling.
	err := &StatusError{URL: "https://example.com", StatusCode: 503}
	for attempt := 1; attempt <= 5; attempt++ {
		assert.Equal(t, 10*time.Second, RetryDelay(err, attempt, time.Second))
	}

	rateLimited := &StatusError{URL: "https://example.com", StatusCode: 429}
	assert.Equal(t, 60*time.Second, RetryDelay(rateLimited, 1, time.Second))
}

func TestRetryDelayExponentialWithCap(t *testing.T) {
	err := errors.New("flaky")
	base := time.Second

	first := RetryDelay(err, 1, base)
	assert.GreaterOrEqual(t, first, base)
	assert.LessOrEqual(t, first, time.Duration(float64(base)*1.3))

	third := RetryDelay(err, 3, base)
	assert.GreaterOrEqual(t, third, 4*time.Second)

	huge := RetryDelay(err, 20, base)
	assert.Equal(t, 60*time.Second, huge)
}

func TestRetryDelayPreservesAttemptFloor(t *testing.T) {
	err := errors.New("flaky")
	require.NotPanics(t, func() { RetryDelay(err, 0, time.Second) })
}
