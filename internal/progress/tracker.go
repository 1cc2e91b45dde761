// Package progress persists per-source scraping checkpoints so interrupted
// runs resume where they stopped instead of re-discovering and re-fetching
// everything.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/clock"
)

// DirName is the checkpoint directory under the storage root.
const DirName = ".progress"

// Progress is one source's durable checkpoint.
type Progress struct {
	Source       string            `json:"source"`
	Discovered   []string          `json:"discovered"`
	Scraped      []string          `json:"scraped"`
	Failed       map[string]string `json:"failed"`
	CurrentIndex int               `json:"currentIndex"`
	CurrentBatch int               `json:"currentBatch"`
	TotalBatches int               `json:"totalBatches"`
	StartedAt    time.Time         `json:"startedAt"`
	LastUpdated  time.Time         `json:"lastUpdated"`
}

// Stats summarizes a checkpoint for reporting.
type Stats struct {
	Source     string
	Discovered int
	Scraped    int
	Failed     int
	Remaining  int
	Percent    float64
	Elapsed    time.Duration
	ETA        time.Duration
}

// Tracker reads and writes checkpoints under <root>/.progress.
type Tracker struct {
	dir    string
	clock  clock.Clock
	logger *zap.Logger
}

// NewTracker creates a Tracker rooted at the storage directory.
func NewTracker(root string, clk clock.Clock, logger *zap.Logger) *Tracker {
	if clk == nil {
		clk = clock.System{}
	}
	return &Tracker{
		dir:    filepath.Join(root, DirName),
		clock:  clk,
		logger: logger,
	}
}

// Initialize starts a fresh checkpoint for a source and persists it.
func (t *Tracker) Initialize(source string, discovered []string) (*Progress, error) {
	now := t.clock.Now()
	p := &Progress{
		Source:      source,
		Discovered:  append([]string{}, discovered...),
		Scraped:     []string{},
		Failed:      map[string]string{},
		StartedAt:   now,
		LastUpdated: now,
	}
	if err := t.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads a source's checkpoint. A missing file returns (nil, nil) so
// callers can distinguish "never started" from a read failure.
func (t *Tracker) Load(source string) (*Progress, error) {
	data, err := os.ReadFile(t.path(source))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress for %s: %w", source, err)
	}
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode progress for %s: %w", source, err)
	}
	if p.Failed == nil {
		p.Failed = map[string]string{}
	}
	return &p, nil
}

// Save persists the checkpoint atomically: write a temp file, then rename
// over the real one. Rename is the durability boundary, so a crash mid-write
// never leaves a truncated checkpoint. When the atomic path fails, a direct
// write is attempted rather than dropping the update.
func (t *Tracker) Save(p *Progress) error {
	p.LastUpdated = t.clock.Now()

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("create progress dir: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress for %s: %w", p.Source, err)
	}

	target := t.path(p.Source)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err == nil {
		if err := os.Rename(tmp, target); err == nil {
			return nil
		}
		_ = os.Remove(tmp)
	}

	t.logger.Warn("atomic progress save failed; writing directly",
		zap.String("source", p.Source))
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("save progress for %s: %w", p.Source, err)
	}
	return nil
}

// Update records one URL outcome in memory. Success appends to Scraped once
// and clears any failure entry; failure records the message and removes the
// URL from Scraped. The scraped list and failed map never overlap.
// CurrentIndex tracks how many discovered URLs have an outcome of either
// kind.
func (t *Tracker) Update(p *Progress, url string, success bool, errMsg string) {
	if success {
		if !contains(p.Scraped, url) {
			p.Scraped = append(p.Scraped, url)
		}
		delete(p.Failed, url)
	} else {
		p.Failed[url] = errMsg
		p.Scraped = remove(p.Scraped, url)
	}
	p.CurrentIndex = len(p.Scraped) + len(p.Failed)
	p.LastUpdated = t.clock.Now()
}

// Remaining lists discovered URLs that have not been scraped, in discovery
// order. Previously failed URLs are included so re-runs retry them.
func Remaining(p *Progress) []string {
	scraped := make(map[string]struct{}, len(p.Scraped))
	for _, url := range p.Scraped {
		scraped[url] = struct{}{}
	}
	var out []string
	for _, url := range p.Discovered {
		if _, ok := scraped[url]; !ok {
			out = append(out, url)
		}
	}
	return out
}

// IsComplete reports whether every discovered URL has been scraped.
func IsComplete(p *Progress) bool {
	return len(p.Scraped) >= len(p.Discovered)
}

// Statistics derives counts and an ETA from the checkpoint. The ETA scales
// elapsed time per scraped URL over the remainder; before anything has been
// scraped it assumes a flat 2 seconds per remaining URL.
func (t *Tracker) Statistics(p *Progress) Stats {
	remaining := len(Remaining(p))
	elapsed := t.clock.Now().Sub(p.StartedAt)

	var eta time.Duration
	if len(p.Scraped) > 0 {
		perItem := elapsed / time.Duration(len(p.Scraped))
		eta = perItem * time.Duration(remaining)
	} else {
		eta = 2 * time.Second * time.Duration(remaining)
	}

	percent := 100.0
	if len(p.Discovered) > 0 {
		percent = float64(len(p.Scraped)) / float64(len(p.Discovered)) * 100
	}

	return Stats{
		Source:     p.Source,
		Discovered: len(p.Discovered),
		Scraped:    len(p.Scraped),
		Failed:     len(p.Failed),
		Remaining:  remaining,
		Percent:    percent,
		Elapsed:    elapsed,
		ETA:        eta,
	}
}

func (t *Tracker) path(source string) string {
	return filepath.Join(t.dir, source+".json")
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func remove(list []string, s string) []string {
	out := list[:0]
	for _, item := range list {
		if item != s {
			out = append(out, item)
		}
	}
	return out
}
