package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/clock"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/errclass"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/robots"
)

// scriptedFetcher returns its queued outcomes in order, then repeats the last.
type scriptedFetcher struct {
	outcomes   []fetchResult
	calls      int
	userAgents []string
}

func (f *scriptedFetcher) Fetch(_ context.Context, _, userAgent string) (Page, error) {
	idx := f.calls
	if idx >= len(f.outcomes) {
		idx = len(f.outcomes) - 1
	}
	f.calls++
	f.userAgents = append(f.userAgents, userAgent)
	out := f.outcomes[idx]
	return out.page, out.err
}

func newTestScraper(t *testing.T, fetcher Fetcher) *Scraper {
	t.Helper()
	policy, err := robots.NewChecker(false, "prepflow-test", zap.NewNop())
	require.NoError(t, err)
	return New(
		fetcher,
		policy,
		nil,
		clock.Fixed{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		Config{
			MaxRetries:    3,
			BackoffBase:   time.Millisecond,
			Delay:         time.Millisecond,
			MaxConcurrent: 100,
		},
		zap.NewNop(),
	)
}

const ldPage = `<html><head><script type="application/ld+json">{
	"@type": "Recipe",
	"name": "Chickpea Curry",
	"recipeIngredient": ["1 can chickpeas", "2 tbsp olive oil"],
	"recipeInstructions": ["Heat oil.", "Add chickpeas."]
}</script></head><body></body></html>`

func TestScrapeRecipeSuccess(t *testing.T) {
	url := "https://example.com/recipes/42/chickpea-curry"
	fetcher := &scriptedFetcher{outcomes: []fetchResult{
		{page: Page{URL: url, StatusCode: 200, Body: []byte(ldPage)}},
	}}
	s := newTestScraper(t, fetcher)

	res := s.ScrapeRecipe(context.Background(), Source{Name: "testkitchen"}, url)

	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Recipe)
	assert.Equal(t, "testkitchen", res.Recipe.Source)
	assert.Equal(t, url, res.Recipe.SourceURL)
	assert.Equal(t, "chickpea-curry-42", res.Recipe.ID)
	assert.False(t, res.Recipe.ScrapedAt.IsZero())
	assert.Equal(t, 1, fetcher.calls)
}

func TestScrapeRecipeRetriesTransientErrors(t *testing.T) {
	url := "https://example.com/recipes/7/flaky"
	fetcher := &scriptedFetcher{outcomes: []fetchResult{
		{err: errors.New("read tcp: i/o timeout")},
		{err: errors.New("read tcp: i/o timeout")},
		{page: Page{URL: url, StatusCode: 200, Body: []byte(ldPage)}},
	}}
	s := newTestScraper(t, fetcher)

	res := s.ScrapeRecipe(context.Background(), Source{Name: "testkitchen"}, url)

	assert.True(t, res.Success, res.Error)
	assert.Equal(t, 3, fetcher.calls)
}

func TestScrapeRecipeDoesNotRetryNotFound(t *testing.T) {
	url := "https://example.com/recipes/9/gone"
	fetcher := &scriptedFetcher{outcomes: []fetchResult{
		{err: &errclass.StatusError{URL: url, StatusCode: http.StatusNotFound}},
	}}
	s := newTestScraper(t, fetcher)

	res := s.ScrapeRecipe(context.Background(), Source{Name: "testkitchen"}, url)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "404")
	assert.Equal(t, 1, fetcher.calls)
}

func TestScrapeRecipeGivesUpAfterMaxRetries(t *testing.T) {
	// Timeouts carry a category cap of 5, above the configured 3.
	fetcher := &scriptedFetcher{outcomes: []fetchResult{
		{err: errors.New("dial tcp: i/o timeout")},
	}}
	s := newTestScraper(t, fetcher)

	res := s.ScrapeRecipe(context.Background(), Source{Name: "testkitchen"}, "https://example.com/recipes/11/down")

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "gave up after 5 attempts")
	assert.Equal(t, 5, fetcher.calls)
}

func TestScrapeRecipeConfigRaisesRetryCap(t *testing.T) {
	fetcher := &scriptedFetcher{outcomes: []fetchResult{
		{err: errors.New("dial tcp: i/o timeout")},
	}}
	policy, err := robots.NewChecker(false, "prepflow-test", zap.NewNop())
	require.NoError(t, err)
	s := New(fetcher, policy, nil,
		clock.Fixed{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		Config{
			MaxRetries:    8,
			BackoffBase:   time.Millisecond,
			Delay:         time.Millisecond,
			MaxConcurrent: 100,
		},
		zap.NewNop(),
	)

	res := s.ScrapeRecipe(context.Background(), Source{Name: "testkitchen"}, "https://example.com/recipes/17/down")

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "gave up after 8 attempts")
	assert.Equal(t, 8, fetcher.calls)
}

func TestScrapeRecipePassesSourceUserAgent(t *testing.T) {
	url := "https://example.com/recipes/21/custom-ua"
	fetcher := &scriptedFetcher{outcomes: []fetchResult{
		{page: Page{URL: url, StatusCode: 200, Body: []byte(ldPage)}},
	}}
	s := newTestScraper(t, fetcher)

	src := Source{Name: "testkitchen", UserAgent: "prepflow-special/2.0"}
	res := s.ScrapeRecipe(context.Background(), src, url)

	require.True(t, res.Success, res.Error)
	require.Len(t, fetcher.userAgents, 1)
	assert.Equal(t, "prepflow-special/2.0", fetcher.userAgents[0])
}

func TestScrapeRecipeParseFailure(t *testing.T) {
	url := "https://example.com/recipes/13/empty"
	fetcher := &scriptedFetcher{outcomes: []fetchResult{
		{page: Page{URL: url, StatusCode: 200, Body: []byte("<html><body>nothing here</body></html>")}},
	}}
	s := newTestScraper(t, fetcher)

	res := s.ScrapeRecipe(context.Background(), Source{Name: "testkitchen"}, url)

	assert.False(t, res.Success)
	assert.Equal(t, "Failed to parse recipe", res.Error)
}

func TestScrapeRecipeHonorsCancellation(t *testing.T) {
	fetcher := &scriptedFetcher{outcomes: []fetchResult{
		{err: errors.New("dial tcp: i/o timeout")},
	}}
	s := newTestScraper(t, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := s.ScrapeRecipe(ctx, Source{Name: "testkitchen"}, "https://example.com/recipes/15/slow")

	assert.False(t, res.Success)
	assert.Equal(t, 0, fetcher.calls)
}

func TestCollyFetcherFetchesAndClassifiesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(ldPage))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher, err := NewCollyFetcher(FetcherConfig{
		UserAgent:      "prepflow-test",
		RequestTimeout: 5 * time.Second,
		Concurrency:    2,
	}, zap.NewNop())
	require.NoError(t, err)

	page, err := fetcher.Fetch(context.Background(), server.URL+"/ok", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, string(page.Body), "Chickpea Curry")

	_, err = fetcher.Fetch(context.Background(), server.URL+"/missing", "")
	var statusErr *errclass.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
