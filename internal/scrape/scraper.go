package scrape

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/clock"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/errclass"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/metrics"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/normalize"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/ratelimit"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/recipe"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/robots"
)

// AIExtractor recovers a recipe from raw page HTML when structured parsing
// fails. Implementations return (nil, nil) when extraction is unavailable or
// produced nothing usable.
type AIExtractor interface {
	Extract(ctx context.Context, body []byte, pageURL string) (*recipe.ScrapedRecipe, error)
}

// Config tunes the per-URL pipeline. Delay and MaxConcurrent are the default
// rate-limit window; a Source may override the delay. MaxRetries is the
// baseline attempt cap; an error category carrying a higher cap of its own,
// such as timeouts or 503s, wins over it.
type Config struct {
	MaxRetries    int
	BackoffBase   time.Duration
	Delay         time.Duration
	MaxConcurrent int
}

// Scraper runs the fetch-parse-normalize-validate pipeline for single URLs.
// Rate limiting is per source so one slow site's budget never starves the
// others.
type Scraper struct {
	fetcher Fetcher
	robots  robots.Policy
	ai      AIExtractor
	clock   clock.Clock
	cfg     Config
	logger  *zap.Logger

	mu       sync.Mutex
	limiters map[string]*ratelimit.Limiter
}

// New builds a Scraper. ai may be nil when AI extraction is disabled.
func New(fetcher Fetcher, policy robots.Policy, ai AIExtractor, clk clock.Clock, cfg Config, logger *zap.Logger) *Scraper {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Scraper{
		fetcher:  fetcher,
		robots:   policy,
		ai:       ai,
		clock:    clk,
		cfg:      cfg,
		logger:   logger,
		limiters: make(map[string]*ratelimit.Limiter),
	}
}

func (s *Scraper) limiterFor(src Source) *ratelimit.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.limiters[src.Name]; ok {
		return l
	}
	window := s.cfg.Delay
	if src.Delay > 0 {
		window = src.Delay
	}
	l := ratelimit.New(window, s.cfg.MaxConcurrent)
	s.limiters[src.Name] = l
	return l
}

// ScrapeRecipe fetches one URL and extracts a validated recipe. The result is
// always populated; Success false carries the failure message so callers can
// record it without inspecting error types.
func (s *Scraper) ScrapeRecipe(ctx context.Context, src Source, rawURL string) recipe.ScrapeResult {
	result := recipe.ScrapeResult{Source: src.Name, URL: rawURL}

	page, err := s.fetchWithRetry(ctx, src, rawURL)
	if err != nil {
		cat := errclass.Categorize(err)
		metrics.ObservePage(src.Name, "fetch_error")
		metrics.ObserveFailure(cat.Reason)
		s.logger.Warn("fetch failed",
			zap.String("source", src.Name),
			zap.String("url", rawURL),
			zap.String("category", cat.Reason),
			zap.Error(err))
		result.Error = err.Error()
		return result
	}

	r := s.extract(ctx, src, page)
	if r == nil {
		err := &errclass.ParseError{URL: rawURL, Reason: "no recipe data in page"}
		metrics.ObservePage(src.Name, "parse_error")
		metrics.ObserveFailure(errclass.Categorize(err).Reason)
		s.logger.Warn("Failed to parse recipe",
			zap.String("source", src.Name),
			zap.String("url", rawURL))
		result.Error = "Failed to parse recipe"
		return result
	}

	r.Source = src.Name
	r.SourceURL = rawURL
	r.ID = recipe.MakeID(r.Name, rawURL)
	normalize.Recipe(r, s.clock.Now())

	if err := recipe.Validate(r); err != nil {
		verr := &errclass.ValidationError{URL: rawURL, Err: err}
		metrics.ObservePage(src.Name, "validation_error")
		metrics.ObserveFailure(errclass.Categorize(verr).Reason)
		s.logger.Warn("Recipe validation failed",
			zap.String("source", src.Name),
			zap.String("url", rawURL),
			zap.Error(err))
		result.Error = "Recipe validation failed"
		return result
	}

	metrics.ObservePage(src.Name, "success")
	result.Success = true
	result.Recipe = r
	return result
}

// fetchWithRetry enforces robots.txt and the rate limiter before each
// attempt, then retries according to the error's category.
func (s *Scraper) fetchWithRetry(ctx context.Context, src Source, rawURL string) (Page, error) {
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}

		if !s.robots.Allowed(ctx, rawURL) {
			return Page{}, &errclass.RobotsDisallowedError{URL: rawURL}
		}
		if delay := s.robots.CrawlDelay(ctx, rawURL); delay > 0 {
			if err := sleepCtx(ctx, delay); err != nil {
				return Page{}, err
			}
		}

		waitStart := s.clock.Now()
		if err := s.limiterFor(src).Wait(ctx); err != nil {
			return Page{}, err
		}
		if waited := s.clock.Now().Sub(waitStart); waited > 0 {
			metrics.ObserveRateLimitDelay(src.Name, waited)
		}

		page, err := s.fetcher.Fetch(ctx, rawURL, src.UserAgent)
		if err == nil {
			return page, nil
		}
		lastErr = err

		cat := errclass.Categorize(err)
		if !cat.Retryable || cat.SkipPermanently {
			return Page{}, err
		}
		maxRetries := s.cfg.MaxRetries
		if cat.MaxRetries > maxRetries {
			maxRetries = cat.MaxRetries
		}
		if attempt >= maxRetries {
			return Page{}, fmt.Errorf("gave up after %d attempts: %w", attempt, lastErr)
		}

		metrics.ObserveRetry(src.Name)
		backoff := errclass.RetryDelay(err, attempt, s.cfg.BackoffBase)
		s.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.String("category", cat.Reason),
			zap.Duration("backoff", backoff))
		if err := sleepCtx(ctx, backoff); err != nil {
			return Page{}, err
		}
	}
}

// extract runs the parser chain: JSON-LD, then HTML selectors, then the AI
// extractor when configured. First non-nil result wins.
func (s *Scraper) extract(ctx context.Context, src Source, page Page) *recipe.ScrapedRecipe {
	if r := ParseJSONLD(page.Body, page.URL); r != nil {
		return r
	}
	if r := ParseHTML(page.Body, src, page.URL); r != nil {
		return r
	}
	if s.ai != nil {
		r, err := s.ai.Extract(ctx, page.Body, page.URL)
		if err != nil {
			s.logger.Warn("AI extraction failed",
				zap.String("url", page.URL), zap.Error(err))
			return nil
		}
		return r
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
