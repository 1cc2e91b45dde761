// Package job orchestrates full scraping runs: per-source discovery, batch
// scheduling, storage, and checkpointing. Sources run concurrently; within a
// source, URLs are worked in discovery order, batch by batch, with a small
// in-flight window per batch as the primary backpressure mechanism.
package job

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/metrics"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/progress"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/recipe"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/scrape"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/sitemap"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/stopper"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/storage"
)

// Discoverer resolves a source's sitemap tree into recipe URLs.
type Discoverer interface {
	DiscoverRecipeURLs(ctx context.Context, spec sitemap.Spec) ([]string, error)
}

// RecipeScraper runs the per-URL pipeline.
type RecipeScraper interface {
	ScrapeRecipe(ctx context.Context, src scrape.Source, url string) recipe.ScrapeResult
}

// Store persists validated recipes.
type Store interface {
	SaveRecipe(r *recipe.ScrapedRecipe) (storage.SaveResult, error)
	URLExists(source, sourceURL string) (bool, error)
}

// Config tunes run-wide batching.
type Config struct {
	// BatchSize is the checkpoint granularity: progress is saved after each
	// batch, not after each URL.
	BatchSize int
	// FetchConcurrency bounds simultaneous in-flight fetches per source.
	FetchConcurrency int64
}

// SourceSummary reports one source's run outcome.
type SourceSummary struct {
	Discovered int
	Scraped    int
	Failed     int
	Skipped    int
	Err        string
}

// Summary reports a whole run.
type Summary struct {
	Sources map[string]*SourceSummary
	Stopped bool
}

// Orchestrator coordinates a scraping run across sources.
type Orchestrator struct {
	discoverer Discoverer
	scraper    RecipeScraper
	store      Store
	tracker    *progress.Tracker
	stop       *stopper.Stopper
	cfg        Config
	logger     *zap.Logger
}

// New builds an Orchestrator.
func New(discoverer Discoverer, scraper RecipeScraper, store Store, tracker *progress.Tracker, stop *stopper.Stopper, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 3
	}
	return &Orchestrator{
		discoverer: discoverer,
		scraper:    scraper,
		store:      store,
		tracker:    tracker,
		stop:       stop,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run scrapes every source concurrently. Per-source failures are contained
// in the summary; only a requested stop aborts the run, surfacing as
// stopper.ErrStopped alongside the partial summary.
func (o *Orchestrator) Run(ctx context.Context, sources []scrape.Source) (Summary, error) {
	summary := Summary{Sources: make(map[string]*SourceSummary, len(sources))}
	var mu sync.Mutex
	for _, src := range sources {
		summary.Sources[src.Name] = &SourceSummary{}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			err := o.runSource(gctx, src, summary.Sources[src.Name], &mu)
			if errors.Is(err, stopper.ErrStopped) {
				return err
			}
			if err != nil {
				o.logger.Error("source run failed",
					zap.String("source", src.Name), zap.Error(err))
				mu.Lock()
				summary.Sources[src.Name].Err = err.Error()
				mu.Unlock()
			}
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, stopper.ErrStopped) {
		summary.Stopped = true
		return summary, stopper.ErrStopped
	}
	return summary, err
}

func (o *Orchestrator) runSource(ctx context.Context, src scrape.Source, sum *SourceSummary, mu *sync.Mutex) error {
	if err := o.stop.Check(ctx); err != nil {
		return err
	}

	metrics.IncActiveSources()
	defer metrics.DecActiveSources()

	p, err := o.resumeOrInitialize(ctx, src)
	if err != nil {
		return err
	}
	mu.Lock()
	sum.Discovered = len(p.Discovered)
	mu.Unlock()

	remaining := progress.Remaining(p)
	o.logger.Info("starting source",
		zap.String("source", src.Name),
		zap.Int("discovered", len(p.Discovered)),
		zap.Int("remaining", len(remaining)))

	// Batches completed in a prior run count toward the total, so a resumed
	// checkpoint still ends with CurrentBatch == TotalBatches.
	mu.Lock()
	p.TotalBatches = p.CurrentBatch + (len(remaining)+o.cfg.BatchSize-1)/o.cfg.BatchSize
	mu.Unlock()

	// Progress for this source is mutated only under mu: batch workers for
	// the same source run concurrently, and the summary shares the lock.
	for start := 0; start < len(remaining); start += o.cfg.BatchSize {
		if err := o.stop.Check(ctx); err != nil {
			return err
		}

		end := start + o.cfg.BatchSize
		if end > len(remaining) {
			end = len(remaining)
		}
		o.runBatch(ctx, src, remaining[start:end], p, sum, mu)

		mu.Lock()
		p.CurrentBatch++
		saveErr := o.tracker.Save(p)
		mu.Unlock()
		if saveErr != nil {
			return saveErr
		}

		if err := o.stop.Check(ctx); err != nil {
			return err
		}
	}

	o.logger.Info("source complete",
		zap.String("source", src.Name),
		zap.Bool("complete", progress.IsComplete(p)))
	return nil
}

// runBatch scrapes one batch with a bounded in-flight window. Individual URL
// failures are recorded and never abort the batch; a stop request only stops
// new fetches from starting.
func (o *Orchestrator) runBatch(ctx context.Context, src scrape.Source, urls []string, p *progress.Progress, sum *SourceSummary, mu *sync.Mutex) {
	sem := semaphore.NewWeighted(o.cfg.FetchConcurrency)
	var wg sync.WaitGroup

	for _, url := range urls {
		if o.stop.Check(ctx) != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			defer sem.Release(1)
			o.scrapeOne(ctx, src, url, p, sum, mu)
		}(url)
	}
	wg.Wait()
}

func (o *Orchestrator) scrapeOne(ctx context.Context, src scrape.Source, url string, p *progress.Progress, sum *SourceSummary, mu *sync.Mutex) {
	exists, err := o.store.URLExists(src.Name, url)
	if err != nil {
		o.logger.Warn("index lookup failed",
			zap.String("url", url), zap.Error(err))
	}
	if exists {
		mu.Lock()
		o.tracker.Update(p, url, true, "")
		sum.Skipped++
		mu.Unlock()
		return
	}

	res := o.scraper.ScrapeRecipe(ctx, src, url)
	if !res.Success {
		mu.Lock()
		o.tracker.Update(p, url, false, res.Error)
		sum.Failed++
		mu.Unlock()
		return
	}

	if _, err := o.store.SaveRecipe(res.Recipe); err != nil {
		o.logger.Error("save failed",
			zap.String("url", url), zap.Error(err))
		mu.Lock()
		o.tracker.Update(p, url, false, "storage: "+err.Error())
		sum.Failed++
		mu.Unlock()
		return
	}

	mu.Lock()
	o.tracker.Update(p, url, true, "")
	sum.Scraped++
	mu.Unlock()
}

// resumeOrInitialize reuses an existing checkpoint's discovered URL list so
// interrupted runs do not re-walk the sitemap tree.
func (o *Orchestrator) resumeOrInitialize(ctx context.Context, src scrape.Source) (*progress.Progress, error) {
	p, err := o.tracker.Load(src.Name)
	if err != nil {
		return nil, err
	}
	if p != nil && len(p.Discovered) > 0 && !progress.IsComplete(p) {
		o.logger.Info("resuming from checkpoint",
			zap.String("source", src.Name),
			zap.Int("scraped", len(p.Scraped)))
		return p, nil
	}

	urls, err := o.discoverer.DiscoverRecipeURLs(ctx, sitemap.Spec{
		Source:     src.Name,
		SitemapURL: src.SitemapURL,
		Include:    src.URLPattern,
		Excludes:   src.ExcludePatterns,
	})
	if err != nil {
		return nil, err
	}
	return o.tracker.Initialize(src.Name, urls)
}
