// Package stopper implements cooperative cancellation for scraping runs.
// Cancellation is advisory: it is checked at well-defined points and never
// interrupts in-flight requests. Two signals are honored: in-process context
// cancellation, and a stop-flag sentinel file so a separate CLI invocation
// can stop a running job.
package stopper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrStopped is the distinguished control-flow signal raised when a stop was
// requested. It aborts orchestration and must never be recorded as a
// recipe-level failure.
var ErrStopped = errors.New("scraping stopped by user")

// FlagFileName is the sentinel file checked under the storage root.
const FlagFileName = ".stop-flag"

type flagPayload struct {
	StoppedAt time.Time `json:"stoppedAt"`
}

// Stopper checks and manages the stop signal for one storage root.
type Stopper struct {
	flagPath string
}

// New creates a Stopper rooted at the given storage directory.
func New(root string) *Stopper {
	return &Stopper{flagPath: filepath.Join(root, FlagFileName)}
}

// Check returns ErrStopped when the context is canceled or the stop flag
// exists, nil otherwise.
func (s *Stopper) Check(ctx context.Context) error {
	if ctx.Err() != nil {
		return ErrStopped
	}
	if _, err := os.Stat(s.flagPath); err == nil {
		return ErrStopped
	}
	return nil
}

// Stop requests a stop by writing the sentinel file. In-flight fetches are
// allowed to finish naturally; only new work is prevented.
func (s *Stopper) Stop() error {
	if err := os.MkdirAll(filepath.Dir(s.flagPath), 0o750); err != nil {
		return fmt.Errorf("create stop flag dir: %w", err)
	}
	payload, err := json.Marshal(flagPayload{StoppedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal stop flag: %w", err)
	}
	if err := os.WriteFile(s.flagPath, payload, 0o600); err != nil {
		return fmt.Errorf("write stop flag: %w", err)
	}
	return nil
}

// Clear removes the sentinel file so a new run can start.
func (s *Stopper) Clear() error {
	if err := os.Remove(s.flagPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stop flag: %w", err)
	}
	return nil
}
