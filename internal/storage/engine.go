// Package storage persists recipes as gzip-compressed JSON files with a
// single uncompressed index.json as the authority for existence and listing
// queries. The index read-modify-write is guarded by a mutex for goroutines
// within the process and a file lock for separate processes, so concurrent
// savers cannot lose updates.
package storage

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/clock"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/metrics"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/recipe"
)

const (
	indexFileName = "index.json"
	lockFileName  = "index.lock"
)

// IndexEntry is one recipe's record in index.json.
type IndexEntry struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	SourceURL   string    `json:"source_url"`
	Name        string    `json:"recipe_name"`
	FilePath    string    `json:"file_path"`
	ContentHash string    `json:"content_hash"`
	ScrapedAt   time.Time `json:"scraped_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type index struct {
	Recipes     []IndexEntry `json:"recipes"`
	LastUpdated time.Time    `json:"lastUpdated"`
	TotalCount  int          `json:"totalCount"`
}

// SaveResult reports what SaveRecipe did.
type SaveResult struct {
	Saved    bool
	Updated  bool
	FilePath string
	Reason   string
}

// Stats summarizes the stored dataset.
type Stats struct {
	TotalRecipes int
	BySource     map[string]int
	LastUpdated  time.Time
}

// Engine stores recipes under a root directory.
type Engine struct {
	root   string
	mu     sync.Mutex
	lock   *flock.Flock
	clock  clock.Clock
	logger *zap.Logger
}

// New creates the storage root if needed and returns an Engine.
func New(root string, clk clock.Clock, logger *zap.Logger) (*Engine, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Engine{
		root:   root,
		lock:   flock.New(filepath.Join(root, lockFileName)),
		clock:  clk,
		logger: logger,
	}, nil
}

// Root returns the storage root directory.
func (e *Engine) Root() string {
	return e.root
}

// SaveRecipe writes the recipe file and updates the index transactionally.
// The (source, source_url) pair is the identity: a re-scrape updates the
// existing entry in place and the file path never changes, so no orphaned
// files accumulate. An unchanged recipe body skips the file rewrite.
func (e *Engine) SaveRecipe(r *recipe.ScrapedRecipe) (SaveResult, error) {
	// The flock only excludes other processes. It is held by the process,
	// not the goroutine, and Lock returns immediately when the process
	// already holds it, so in-process savers need the mutex.
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.lock.Lock(); err != nil {
		return SaveResult{}, fmt.Errorf("acquire index lock: %w", err)
	}
	defer func() {
		if err := e.lock.Unlock(); err != nil {
			e.logger.Warn("release index lock", zap.Error(err))
		}
	}()

	idx, err := e.loadIndex()
	if err != nil {
		return SaveResult{}, err
	}

	now := e.clock.Now()
	hash, err := contentHash(r)
	if err != nil {
		return SaveResult{}, err
	}

	pos := findEntry(idx, r.Source, r.SourceURL)
	if pos >= 0 {
		entry := &idx.Recipes[pos]
		if entry.ContentHash == hash {
			entry.UpdatedAt = now
			if err := e.writeIndex(idx, now); err != nil {
				return SaveResult{}, err
			}
			return SaveResult{Saved: true, Updated: true, FilePath: entry.FilePath, Reason: "unchanged"}, nil
		}

		r.UpdatedAt = &now
		if err := e.writeRecipeFile(entry.FilePath, r); err != nil {
			return SaveResult{}, err
		}
		entry.Name = r.Name
		entry.ContentHash = hash
		entry.ScrapedAt = r.ScrapedAt
		entry.UpdatedAt = now
		if err := e.writeIndex(idx, now); err != nil {
			return SaveResult{}, err
		}
		metrics.ObserveRecipeSaved(r.Source)
		return SaveResult{Saved: true, Updated: true, FilePath: entry.FilePath}, nil
	}

	relPath := filepath.Join(r.Source, r.ID+".json.gz")
	if err := e.writeRecipeFile(relPath, r); err != nil {
		return SaveResult{}, err
	}
	idx.Recipes = append(idx.Recipes, IndexEntry{
		ID:          r.ID,
		Source:      r.Source,
		SourceURL:   r.SourceURL,
		Name:        r.Name,
		FilePath:    relPath,
		ContentHash: hash,
		ScrapedAt:   r.ScrapedAt,
		UpdatedAt:   now,
	})
	if err := e.writeIndex(idx, now); err != nil {
		return SaveResult{}, err
	}
	metrics.ObserveRecipeSaved(r.Source)
	return SaveResult{Saved: true, FilePath: relPath}, nil
}

// LoadRecipe reads one stored recipe by its index-relative file path.
// A missing file returns (nil, nil).
func (e *Engine) LoadRecipe(relPath string) (*recipe.ScrapedRecipe, error) {
	f, err := os.Open(filepath.Join(e.root, relPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open recipe file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", relPath, err)
	}
	defer func() {
		_ = gz.Close()
	}()

	var r recipe.ScrapedRecipe
	if err := json.NewDecoder(gz).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", relPath, err)
	}
	return &r, nil
}

// URLExists reports whether a (source, source_url) pair is already stored.
func (e *Engine) URLExists(source, sourceURL string) (bool, error) {
	idx, err := e.loadIndex()
	if err != nil {
		return false, err
	}
	return findEntry(idx, source, sourceURL) >= 0, nil
}

// SearchByIngredient scans the index and lazily decompresses candidate files
// until limit matches are found. Matching is a case-insensitive substring
// test over each ingredient's name and original text. Linear on purpose:
// single-crawler datasets do not justify an inverted index.
func (e *Engine) SearchByIngredient(name string, limit int) ([]*recipe.ScrapedRecipe, error) {
	if limit <= 0 {
		limit = 10
	}
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, nil
	}

	idx, err := e.loadIndex()
	if err != nil {
		return nil, err
	}

	var out []*recipe.ScrapedRecipe
	for _, entry := range idx.Recipes {
		if len(out) >= limit {
			break
		}
		r, err := e.LoadRecipe(entry.FilePath)
		if err != nil {
			e.logger.Warn("skipping unreadable recipe file",
				zap.String("path", entry.FilePath), zap.Error(err))
			continue
		}
		if r == nil {
			continue
		}
		if recipeUsesIngredient(r, needle) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Statistics summarizes the index.
func (e *Engine) Statistics() (Stats, error) {
	idx, err := e.loadIndex()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		TotalRecipes: idx.TotalCount,
		BySource:     map[string]int{},
		LastUpdated:  idx.LastUpdated,
	}
	for _, entry := range idx.Recipes {
		stats.BySource[entry.Source]++
	}
	return stats, nil
}

// Entries returns a copy of the index entries, for listing and status output.
func (e *Engine) Entries() ([]IndexEntry, error) {
	idx, err := e.loadIndex()
	if err != nil {
		return nil, err
	}
	return append([]IndexEntry{}, idx.Recipes...), nil
}

func (e *Engine) loadIndex() (*index, error) {
	data, err := os.ReadFile(filepath.Join(e.root, indexFileName))
	if errors.Is(err, os.ErrNotExist) {
		return &index{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return &idx, nil
}

// writeIndex persists the index atomically via temp file and rename.
func (e *Engine) writeIndex(idx *index, now time.Time) error {
	idx.LastUpdated = now
	idx.TotalCount = len(idx.Recipes)
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	target := filepath.Join(e.root, indexFileName)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

func (e *Engine) writeRecipeFile(relPath string, r *recipe.ScrapedRecipe) error {
	full := filepath.Join(e.root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create source dir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode recipe %s: %w", r.ID, err)
	}

	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("create recipe file: %w", err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		_ = gz.Close()
		_ = f.Close()
		return fmt.Errorf("compress recipe %s: %w", r.ID, err)
	}
	if err := gz.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush recipe %s: %w", r.ID, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close recipe file: %w", err)
	}
	return nil
}

// contentHash fingerprints the recipe with volatile timestamps zeroed, so a
// re-scrape producing identical content is detected as unchanged.
func contentHash(r *recipe.ScrapedRecipe) (string, error) {
	stable := *r
	stable.ScrapedAt = time.Time{}
	stable.UpdatedAt = nil
	data, err := json.Marshal(&stable)
	if err != nil {
		return "", fmt.Errorf("hash recipe %s: %w", r.ID, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func findEntry(idx *index, source, sourceURL string) int {
	for i, entry := range idx.Recipes {
		if entry.Source == source && entry.SourceURL == sourceURL {
			return i
		}
	}
	return -1
}

func recipeUsesIngredient(r *recipe.ScrapedRecipe, needle string) bool {
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing.Name), needle) {
			return true
		}
		if strings.Contains(strings.ToLower(ing.OriginalText), needle) {
			return true
		}
	}
	return false
}
