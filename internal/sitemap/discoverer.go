// Package sitemap discovers candidate recipe URLs for a source by resolving
// its sitemap tree: sitemap indexes are fetched recursively in small parallel
// batches, leaf urlsets are flattened, and the result is filtered by the
// source's URL pattern and the global exclude patterns.
package sitemap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/stopper"
)

const maxSitemapSize = 32 << 20

// Spec describes what to discover for one source.
type Spec struct {
	Source     string
	SitemapURL string
	// Include must match for a URL to be considered a recipe page.
	Include *regexp.Regexp
	// Excludes drop listing/collection/search style pages.
	Excludes []*regexp.Regexp
}

// Config tunes the discoverer's politeness.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// BatchSize bounds how many child sitemaps are fetched in parallel.
	BatchSize int
	// Pause is the inter-batch delay protecting the target server.
	Pause time.Duration
}

// Discoverer resolves sitemap trees into recipe URL lists.
type Discoverer struct {
	client *http.Client
	cfg    Config
	stop   *stopper.Stopper
	logger *zap.Logger
}

// NewDiscoverer builds a Discoverer.
func NewDiscoverer(cfg Config, stop *stopper.Stopper, logger *zap.Logger) *Discoverer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Pause <= 0 {
		cfg.Pause = 200 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Discoverer{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		stop:   stop,
		logger: logger,
	}
}

// DiscoverRecipeURLs returns the fully materialized, deduplicated list of
// candidate recipe URLs for the given Spec. A requested stop surfaces as
// stopper.ErrStopped and aborts the whole discovery; callers must not treat
// it as a scraping failure.
func (d *Discoverer) DiscoverRecipeURLs(ctx context.Context, spec Spec) ([]string, error) {
	if err := d.stop.Check(ctx); err != nil {
		return nil, err
	}

	root, err := d.fetchSitemap(ctx, spec.SitemapURL)
	if err != nil {
		return nil, fmt.Errorf("fetch root sitemap for %s: %w", spec.Source, err)
	}

	seen := make(map[string]struct{})
	var urls []string
	collect := func(locs []string) {
		for _, loc := range locs {
			if !matchesSpec(loc, spec) {
				continue
			}
			if _, dup := seen[loc]; dup {
				continue
			}
			seen[loc] = struct{}{}
			urls = append(urls, loc)
		}
	}

	pending := root.children
	collect(root.leaves)

	for len(pending) > 0 {
		batch := pending
		if len(batch) > d.cfg.BatchSize {
			batch = batch[:d.cfg.BatchSize]
		}
		pending = pending[len(batch):]

		if err := d.stop.Check(ctx); err != nil {
			return nil, err
		}

		results, err := d.fetchBatch(ctx, spec.Source, batch)
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			pending = append(pending, res.children...)
			collect(res.leaves)
		}

		if err := d.stop.Check(ctx); err != nil {
			return nil, err
		}
		if len(pending) > 0 {
			select {
			case <-ctx.Done():
				return nil, stopper.ErrStopped
			case <-time.After(d.cfg.Pause):
			}
		}
	}

	d.logger.Info("sitemap discovery complete",
		zap.String("source", spec.Source),
		zap.Int("urls", len(urls)),
	)
	return urls, nil
}

type sitemapPage struct {
	children []string
	leaves   []string
}

// fetchBatch fetches child sitemaps concurrently. Individual child failures
// are logged and skipped so one broken shard does not abort discovery.
func (d *Discoverer) fetchBatch(ctx context.Context, source string, locs []string) ([]sitemapPage, error) {
	results := make([]sitemapPage, len(locs))
	var wg sync.WaitGroup
	for i, loc := range locs {
		wg.Add(1)
		go func(i int, loc string) {
			defer wg.Done()
			page, err := d.fetchSitemap(ctx, loc)
			if err != nil {
				d.logger.Warn("child sitemap fetch failed",
					zap.String("source", source),
					zap.String("sitemap", loc),
					zap.Error(err),
				)
				return
			}
			results[i] = page
		}(i, loc)
	}
	wg.Wait()
	return results, nil
}

func (d *Discoverer) fetchSitemap(ctx context.Context, rawURL string) (sitemapPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return sitemapPage{}, fmt.Errorf("new sitemap request: %w", err)
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return sitemapPage{}, fmt.Errorf("fetch sitemap: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return sitemapPage{}, fmt.Errorf("sitemap status %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSitemapSize))
	if err != nil {
		return sitemapPage{}, fmt.Errorf("read sitemap body: %w", err)
	}
	return parseSitemap(body)
}

// parseSitemap handles both index documents (<sitemap> entries pointing at
// child sitemaps) and leaf urlsets (<url> entries).
func parseSitemap(body []byte) (sitemapPage, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return sitemapPage{}, fmt.Errorf("parse sitemap xml: %w", err)
	}

	var page sitemapPage
	for _, node := range xmlquery.Find(doc, "//sitemap/loc") {
		if loc := trimmedText(node); loc != "" {
			page.children = append(page.children, loc)
		}
	}
	for _, node := range xmlquery.Find(doc, "//url/loc") {
		if loc := trimmedText(node); loc != "" {
			page.leaves = append(page.leaves, loc)
		}
	}
	return page, nil
}

func trimmedText(node *xmlquery.Node) string {
	return string(bytes.TrimSpace([]byte(node.InnerText())))
}

func matchesSpec(loc string, spec Spec) bool {
	if spec.Include != nil && !spec.Include.MatchString(loc) {
		return false
	}
	for _, ex := range spec.Excludes {
		if ex.MatchString(loc) {
			return false
		}
	}
	return true
}
