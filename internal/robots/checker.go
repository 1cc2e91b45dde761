// Package robots enforces robots.txt directives per host. Policy fetches are
// cached for the process lifetime and every failure path fails open: scraping
// must not halt because a site lacks or blocks robots.txt retrieval.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

const (
	fetchTimeout  = 5 * time.Second
	maxPolicySize = 1 << 20
	cacheSize     = 512
)

// Policy answers allow/deny and crawl-delay queries for URLs.
type Policy interface {
	Allowed(ctx context.Context, rawURL string) bool
	CrawlDelay(ctx context.Context, rawURL string) time.Duration
}

// Checker fetches and caches robots.txt per host.
type Checker struct {
	client    *http.Client
	cache     *lru.Cache[string, *robotstxt.RobotsData]
	userAgent string
	logger    *zap.Logger
}

// NewChecker builds a robots Policy respecting the config toggle.
func NewChecker(respect bool, userAgent string, logger *zap.Logger) (Policy, error) {
	if !respect {
		return &allowAllPolicy{}, nil
	}
	cache, err := lru.New[string, *robotstxt.RobotsData](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create robots cache: %w", err)
	}
	return &Checker{
		client: &http.Client{
			Timeout: fetchTimeout,
		},
		cache:     cache,
		userAgent: userAgent,
		logger:    logger,
	}, nil
}

// Allowed implements Policy. It fails open on any fetch or parse problem.
func (c *Checker) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	data, err := c.load(ctx, parsed)
	if err != nil {
		c.logger.Warn("robots fetch failed; allowing access",
			zap.String("host", parsed.Host), zap.Error(err))
		return true
	}
	group := data.FindGroup(c.userAgent)
	if group == nil {
		return true
	}
	return group.Test(parsed.Path)
}

// CrawlDelay returns the crawl-delay directive for the URL's host, or zero
// when no delay applies or the policy is unavailable.
func (c *Checker) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	data, err := c.load(ctx, parsed)
	if err != nil {
		return 0
	}
	group := data.FindGroup(c.userAgent)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

func (c *Checker) load(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	hostKey := strings.ToLower(parsed.Host)
	if data, ok := c.cache.Get(hostKey); ok {
		return data, nil
	}

	robotsURL := *parsed
	robotsURL.Path = path.Join("/", "robots.txt")
	robotsURL.RawQuery = ""
	robotsURL.Fragment = ""
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("Failed to close robots response body", zap.Error(cerr))
		}
	}()
	// Any non-200 means no usable policy: fail open and cache that, so a
	// flaky robots endpoint is not re-fetched per URL. This includes 5xx,
	// where the parser library would otherwise assume disallow-all.
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("robots.txt unavailable; allowing access",
			zap.String("host", hostKey), zap.Int("status", resp.StatusCode))
		data := &robotstxt.RobotsData{}
		c.cache.Add(hostKey, data)
		return data, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPolicySize))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	c.cache.Add(hostKey, data)
	return data, nil
}

type allowAllPolicy struct{}

func (a *allowAllPolicy) Allowed(context.Context, string) bool { return true }

func (a *allowAllPolicy) CrawlDelay(context.Context, string) time.Duration { return 0 }
