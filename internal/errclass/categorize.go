package errclass

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"
)

// Category describes how the pipeline should react to a failure.
type Category struct {
	Retryable       bool
	SkipPermanently bool
	// RetryDelay is a fixed delay between attempts. Zero means exponential
	// backoff from the caller's base delay.
	RetryDelay time.Duration
	MaxRetries int
	Reason     string
}

const maxRetryDelay = 60 * time.Second

// Categorize maps an error to its retry category. Rules are evaluated in
// precedence order; the final rule is an optimistic retryable default.
func Categorize(err error) Category {
	if err == nil {
		return Category{Reason: "no error"}
	}

	msg := strings.ToLower(err.Error())
	status := statusCode(err)

	switch {
	case status == http.StatusNotFound || strings.Contains(msg, "not found"):
		return Category{SkipPermanently: true, Reason: "not_found"}

	case status == http.StatusForbidden || strings.Contains(msg, "forbidden"):
		return Category{SkipPermanently: true, Reason: "forbidden"}

	case status == http.StatusTooManyRequests || strings.Contains(msg, "rate limit"):
		return Category{Retryable: true, RetryDelay: 60 * time.Second, MaxRetries: 3, Reason: "rate_limited"}

	case status == http.StatusServiceUnavailable || strings.Contains(msg, "service unavailable"):
		return Category{Retryable: true, RetryDelay: 10 * time.Second, MaxRetries: 5, Reason: "service_unavailable"}

	case status == http.StatusInternalServerError || strings.Contains(msg, "internal server error"):
		return Category{Retryable: true, RetryDelay: 5 * time.Second, MaxRetries: 3, Reason: "server_error"}

	case isTimeout(err) || strings.Contains(msg, "econnreset") || strings.Contains(msg, "connection reset"):
		return Category{Retryable: true, MaxRetries: 5, Reason: "timeout"}

	case isNetworkUnreachable(err, msg):
		return Category{Retryable: true, MaxRetries: 5, Reason: "network_unreachable"}

	case isRobotsDisallowed(err):
		return Category{SkipPermanently: true, Reason: "robots_disallowed"}

	case isParseOrValidation(err, msg):
		return Category{SkipPermanently: true, Reason: "parse_failure"}

	default:
		return Category{Retryable: true, MaxRetries: 5, Reason: "unknown"}
	}
}

// RetryDelay computes the wait before the next attempt: the category's fixed
// delay when present, else exponential backoff from baseDelay with up to 30%
// jitter, capped at 60 seconds. Fixed category delays are taken as-is; only
// the exponential path is jittered. attempt is 1-based.
func RetryDelay(err error, attempt int, baseDelay time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	cat := Categorize(err)

	delay := cat.RetryDelay
	if delay == 0 {
		delay = time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt-1)))
		delay += randomJitter(time.Duration(float64(delay) * 0.3))
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func statusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "etimedout") || strings.Contains(msg, "timeout")
}

func isNetworkUnreachable(err error, msg string) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	for _, code := range []string{"econnrefused", "enotfound", "eai_again", "no such host", "connection refused"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

func isRobotsDisallowed(err error) bool {
	var robotsErr *RobotsDisallowedError
	return errors.As(err, &robotsErr)
}

func isParseOrValidation(err error, msg string) bool {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return true
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return true
	}
	for _, token := range []string{"validation", "parse", "malformed"} {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
