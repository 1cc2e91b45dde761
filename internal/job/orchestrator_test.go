package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/progress"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/recipe"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/scrape"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/sitemap"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/stopper"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/storage"
)

type fakeDiscoverer struct {
	urls map[string][]string
	errs map[string]error
}

func (d *fakeDiscoverer) DiscoverRecipeURLs(_ context.Context, spec sitemap.Spec) ([]string, error) {
	if err := d.errs[spec.Source]; err != nil {
		return nil, err
	}
	return d.urls[spec.Source], nil
}

type fakeScraper struct {
	mu      sync.Mutex
	failing map[string]string
	calls   []string
}

func (s *fakeScraper) ScrapeRecipe(_ context.Context, src scrape.Source, url string) recipe.ScrapeResult {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()

	if reason, ok := s.failing[url]; ok {
		return recipe.ScrapeResult{Source: src.Name, URL: url, Error: reason}
	}
	return recipe.ScrapeResult{
		Success: true,
		Source:  src.Name,
		URL:     url,
		Recipe: &recipe.ScrapedRecipe{
			ID:           recipe.MakeID("dish", url),
			Source:       src.Name,
			SourceURL:    url,
			Name:         "Dish",
			Instructions: []string{"Cook."},
			Ingredients:  []recipe.Ingredient{{Name: "thing", OriginalText: "1 thing"}},
			ScrapedAt:    time.Now().UTC(),
		},
	}
}

type fakeStore struct {
	mu       sync.Mutex
	existing map[string]bool
	saved    []string
}

func (s *fakeStore) SaveRecipe(r *recipe.ScrapedRecipe) (storage.SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, r.SourceURL)
	return storage.SaveResult{Saved: true}, nil
}

func (s *fakeStore) URLExists(source, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existing[source+"|"+url], nil
}

func urlsFor(source string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("https://%s.example/recipes/%d", source, i+1)
	}
	return out
}

func newFixture(t *testing.T, discoverer Discoverer, scraper RecipeScraper, store Store) (*Orchestrator, *progress.Tracker, *stopper.Stopper) {
	t.Helper()
	root := t.TempDir()
	tracker := progress.NewTracker(root, nil, zap.NewNop())
	stop := stopper.New(root)
	o := New(discoverer, scraper, store, tracker, stop,
		Config{BatchSize: 2, FetchConcurrency: 2}, zap.NewNop())
	return o, tracker, stop
}

func TestRunScrapesAllSources(t *testing.T) {
	discoverer := &fakeDiscoverer{urls: map[string][]string{
		"alpha": urlsFor("alpha", 5),
		"beta":  urlsFor("beta", 3),
	}}
	scraper := &fakeScraper{}
	store := &fakeStore{}
	o, tracker, _ := newFixture(t, discoverer, scraper, store)

	summary, err := o.Run(context.Background(), []scrape.Source{{Name: "alpha"}, {Name: "beta"}})
	require.NoError(t, err)
	assert.False(t, summary.Stopped)
	assert.Equal(t, 5, summary.Sources["alpha"].Scraped)
	assert.Equal(t, 3, summary.Sources["beta"].Scraped)
	assert.Len(t, store.saved, 8)

	for _, source := range []string{"alpha", "beta"} {
		p, err := tracker.Load(source)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.True(t, progress.IsComplete(p))
		assert.Empty(t, p.Failed)
		assert.Equal(t, len(p.Discovered), p.CurrentIndex)
		assert.Equal(t, p.TotalBatches, p.CurrentBatch)
	}

	// 5 URLs in batches of 2 is 3 batches.
	p, err := tracker.Load("alpha")
	require.NoError(t, err)
	assert.Equal(t, 3, p.TotalBatches)
}

func TestRunContainsPerURLFailures(t *testing.T) {
	urls := urlsFor("alpha", 4)
	discoverer := &fakeDiscoverer{urls: map[string][]string{"alpha": urls}}
	scraper := &fakeScraper{failing: map[string]string{urls[1]: "Failed to parse recipe"}}
	store := &fakeStore{}
	o, tracker, _ := newFixture(t, discoverer, scraper, store)

	summary, err := o.Run(context.Background(), []scrape.Source{{Name: "alpha"}})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Sources["alpha"].Scraped)
	assert.Equal(t, 1, summary.Sources["alpha"].Failed)

	p, err := tracker.Load("alpha")
	require.NoError(t, err)
	assert.Equal(t, "Failed to parse recipe", p.Failed[urls[1]])
	assert.False(t, progress.IsComplete(p))
}

func TestRunContainsPerSourceFailures(t *testing.T) {
	discoverer := &fakeDiscoverer{
		urls: map[string][]string{"beta": urlsFor("beta", 2)},
		errs: map[string]error{"alpha": errors.New("sitemap status 500")},
	}
	scraper := &fakeScraper{}
	store := &fakeStore{}
	o, _, _ := newFixture(t, discoverer, scraper, store)

	summary, err := o.Run(context.Background(), []scrape.Source{{Name: "alpha"}, {Name: "beta"}})
	require.NoError(t, err)
	assert.Contains(t, summary.Sources["alpha"].Err, "sitemap status 500")
	assert.Equal(t, 2, summary.Sources["beta"].Scraped)
}

func TestRunSkipsAlreadyStoredURLs(t *testing.T) {
	urls := urlsFor("alpha", 3)
	discoverer := &fakeDiscoverer{urls: map[string][]string{"alpha": urls}}
	scraper := &fakeScraper{}
	store := &fakeStore{existing: map[string]bool{"alpha|" + urls[0]: true}}
	o, _, _ := newFixture(t, discoverer, scraper, store)

	summary, err := o.Run(context.Background(), []scrape.Source{{Name: "alpha"}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sources["alpha"].Skipped)
	assert.Equal(t, 2, summary.Sources["alpha"].Scraped)
	assert.NotContains(t, scraper.calls, urls[0])
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	urls := urlsFor("alpha", 4)
	discoverer := &fakeDiscoverer{
		errs: map[string]error{"alpha": errors.New("discovery must not rerun")},
	}
	scraper := &fakeScraper{}
	store := &fakeStore{}
	o, tracker, _ := newFixture(t, discoverer, scraper, store)

	p, err := tracker.Initialize("alpha", urls)
	require.NoError(t, err)
	tracker.Update(p, urls[0], true, "")
	tracker.Update(p, urls[1], true, "")
	require.NoError(t, tracker.Save(p))

	summary, err := o.Run(context.Background(), []scrape.Source{{Name: "alpha"}})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Sources["alpha"].Scraped)
	assert.ElementsMatch(t, []string{urls[2], urls[3]}, scraper.calls)

	resumed, err := tracker.Load("alpha")
	require.NoError(t, err)
	assert.Equal(t, 4, resumed.CurrentIndex)
	assert.Equal(t, resumed.TotalBatches, resumed.CurrentBatch)
}

func TestRunHonorsStopFlag(t *testing.T) {
	discoverer := &fakeDiscoverer{urls: map[string][]string{"alpha": urlsFor("alpha", 10)}}
	scraper := &fakeScraper{}
	store := &fakeStore{}
	o, _, stop := newFixture(t, discoverer, scraper, store)

	require.NoError(t, stop.Stop())
	summary, err := o.Run(context.Background(), []scrape.Source{{Name: "alpha"}})
	require.ErrorIs(t, err, stopper.ErrStopped)
	assert.True(t, summary.Stopped)
	assert.Empty(t, scraper.calls)
}

func TestRunHonorsContextCancellation(t *testing.T) {
	discoverer := &fakeDiscoverer{urls: map[string][]string{"alpha": urlsFor("alpha", 10)}}
	scraper := &fakeScraper{}
	store := &fakeStore{}
	o, _, _ := newFixture(t, discoverer, scraper, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := o.Run(ctx, []scrape.Source{{Name: "alpha"}})
	require.ErrorIs(t, err, stopper.ErrStopped)
	assert.True(t, summary.Stopped)
}
