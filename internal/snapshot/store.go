// Package snapshot loads and saves the configuration snapshot as one unit.
//
// The snapshot is the only shared mutable state of a run. There is no
// cross-process locking: overlapping runs are last-writer-wins on the file,
// which is an accepted property of the stateless-trigger deployment model
// (at most one concurrent run is a deployment requirement, not enforced
// here).
package snapshot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/mikage/tweetrunner/pkg/models"
)

// ErrNotFound is returned by Load when the snapshot file does not exist.
// A missing snapshot is fatal for the whole run.
var ErrNotFound = fmt.Errorf("configuration snapshot not found")

// Store reads and writes one snapshot file.
type Store struct {
	path   string
	dryRun bool
	logger *slog.Logger
}

// NewStore creates a snapshot store for the given path.
func NewStore(path string, dryRun bool, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		dryRun: dryRun,
		logger: logger.With("component", "snapshot"),
	}
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the whole snapshot file.
func (s *Store) Load() (*models.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	snap := &models.Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	s.logger.Info("configuration loaded",
		"path", s.path,
		"bots", len(snap.Bots),
		"reply_settings", len(snap.ReplySettings))
	return snap, nil
}

// Save writes the whole snapshot back, pretty-printed. In dry-run mode the
// write is logged and skipped.
func (s *Store) Save(snap *models.Snapshot) error {
	if s.dryRun {
		s.logger.Info("[dry run] would save updated snapshot", "path", s.path)
		return nil
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	s.logger.Info("configuration saved", "path", s.path)
	return nil
}
