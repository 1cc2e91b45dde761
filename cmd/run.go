package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/aiextract"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/api"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/clock"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/config"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/job"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/metrics"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/progress"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/robots"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/scrape"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/sitemap"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/sites"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/stopper"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/storage"
)

var runSources []string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape all enabled sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()

		names := runSources
		if len(names) == 0 {
			names = cfg.Scraper.EnabledSources
		}
		srcs, err := sites.Enabled(names)
		if err != nil {
			return err
		}
		applyOverrides(srcs, cfg.Scraper.SourceOverrides)

		app, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}

		// A fresh run clears any stop flag left by a previous invocation.
		if err := app.stop.Clear(); err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if cfg.Server.Enabled {
			server := api.New(cfg.Server.Port, app.tracker, app.engine, sourceNames(srcs), logger)
			server.Start()
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				_ = server.Shutdown(shutdownCtx)
			}()
		}

		summary, err := app.orchestrator.Run(ctx, srcs)
		printSummary(summary)
		if errors.Is(err, stopper.ErrStopped) {
			logger.Info("run stopped before completion")
			return nil
		}
		return err
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <source>",
	Short: "Scrape a single source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()

		src, err := sites.Lookup(args[0])
		if err != nil {
			return err
		}
		srcs := []scrape.Source{src}
		applyOverrides(srcs, cfg.Scraper.SourceOverrides)

		app, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		if err := app.stop.Clear(); err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		summary, err := app.orchestrator.Run(ctx, srcs)
		printSummary(summary)
		if errors.Is(err, stopper.ErrStopped) {
			logger.Info("run stopped before completion")
			return nil
		}
		return err
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runSources, "sources", nil,
		"sources to scrape (default: config enabled_sources, else all)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scrapeCmd)
}

type app struct {
	engine       *storage.Engine
	tracker      *progress.Tracker
	stop         *stopper.Stopper
	orchestrator *job.Orchestrator
}

// buildApp assembles the scraping pipeline from configuration.
func buildApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.Init()
	clk := clock.System{}

	engine, err := storage.New(cfg.Storage.Root, clk, logger)
	if err != nil {
		return nil, err
	}
	tracker := progress.NewTracker(cfg.Storage.Root, clk, logger)
	stop := stopper.New(cfg.Storage.Root)

	policy, err := robots.NewChecker(cfg.Scraper.RespectRobots, cfg.Scraper.UserAgent, logger)
	if err != nil {
		return nil, err
	}

	fetcher, err := scrape.NewCollyFetcher(scrape.FetcherConfig{
		UserAgent:      cfg.Scraper.UserAgent,
		RequestTimeout: cfg.RequestTimeout(),
		Concurrency:    cfg.Scraper.FetchConcurrency,
	}, logger)
	if err != nil {
		return nil, err
	}

	var ai scrape.AIExtractor
	if cfg.AI.Enabled {
		extractor := aiextract.New(aiextract.Config{
			Endpoint:      cfg.AI.Endpoint,
			APIKey:        cfg.AI.APIKey,
			Model:         cfg.AI.Model,
			Timeout:       time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
			MinTextLength: cfg.AI.MinTextLength,
		}, logger)
		if extractor != nil {
			ai = extractor
		}
	}

	scraper := scrape.New(fetcher, policy, ai, clk, scrape.Config{
		MaxRetries:    cfg.HTTP.MaxRetries,
		BackoffBase:   time.Duration(cfg.HTTP.BackoffInitialMs) * time.Millisecond,
		Delay:         cfg.Delay(),
		MaxConcurrent: cfg.Scraper.MaxConcurrent,
	}, logger)

	discoverer := sitemap.NewDiscoverer(sitemap.Config{
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   cfg.RequestTimeout(),
		BatchSize: cfg.Scraper.SitemapBatchSize,
		Pause:     time.Duration(cfg.Scraper.SitemapPauseMs) * time.Millisecond,
	}, stop, logger)

	orchestrator := job.New(discoverer, scraper, engine, tracker, stop, job.Config{
		BatchSize:        cfg.Scraper.BatchSize,
		FetchConcurrency: int64(cfg.Scraper.FetchConcurrency),
	}, logger)

	return &app{
		engine:       engine,
		tracker:      tracker,
		stop:         stop,
		orchestrator: orchestrator,
	}, nil
}

func printSummary(summary job.Summary) {
	names := make([]string, 0, len(summary.Sources))
	for name := range summary.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Source", "Discovered", "Scraped", "Failed", "Skipped", "Error"})
	for _, name := range names {
		s := summary.Sources[name]
		t.AppendRow(table.Row{name, s.Discovered, s.Scraped, s.Failed, s.Skipped, s.Err})
	}
	t.Render()
}

// applyOverrides copies per-source politeness overrides from config onto the
// registry records.
func applyOverrides(srcs []scrape.Source, overrides map[string]config.SourceOverride) {
	for i := range srcs {
		o, ok := overrides[srcs[i].Name]
		if !ok {
			continue
		}
		if o.UserAgent != "" {
			srcs[i].UserAgent = o.UserAgent
		}
		if o.DelayMs > 0 {
			srcs[i].Delay = time.Duration(o.DelayMs) * time.Millisecond
		}
	}
}

func sourceNames(srcs []scrape.Source) []string {
	names := make([]string, 0, len(srcs))
	for _, src := range srcs {
		names = append(names, src.Name)
	}
	return names
}
