// Package dashboard holds the per-user summary counters and mutates them
// incrementally on file events instead of refetching after every upload or
// delete.
package dashboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/viktors2008/mediadrive/internal/client/models"
	"github.com/viktors2008/mediadrive/internal/logging"
)

// Fetcher retrieves the aggregate from the backend. Implemented by the API
// client.
type Fetcher interface {
	Dashboard(ctx context.Context) (*models.Dashboard, error)
}

// Store owns the in-memory aggregate for one session. All incremental
// updates go through Apply so every mutation site shares one contract.
type Store struct {
	mu   sync.Mutex
	dash *models.Dashboard

	fetcher Fetcher
	log     logging.Logger
}

func NewStore(fetcher Fetcher, log logging.Logger) *Store {
	return &Store{fetcher: fetcher, log: log.With("component", "dashboard")}
}

// Initialize fetches the aggregate once. It is idempotent: when an aggregate
// is already held it returns immediately without refetching or overwriting.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.dash != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	dash, err := s.fetcher.Dashboard(ctx)
	if err != nil {
		return fmt.Errorf("fetching dashboard: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// a concurrent Initialize may have won the race; first one sticks
	if s.dash == nil {
		s.dash = dash
		s.log.Debug(ctx, "dashboard initialized", "user_id", dash.UserID)
	}
	return nil
}

// Apply runs fn against a copy of the current aggregate and installs the
// result. A no-op when uninitialized. fn returning nil clears the aggregate.
func (s *Store) Apply(fn func(*models.Dashboard) *models.Dashboard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dash == nil {
		return
	}
	s.dash = fn(s.dash.Clone())
}

// ApplyUpload adjusts the counters for a successful upload of size bytes:
// storage grows by size/1000 and the weekly file count by one.
func (s *Store) ApplyUpload(size int64) {
	s.Apply(func(d *models.Dashboard) *models.Dashboard {
		d.Storage += float64(size) / 1000
		d.FilesThisWeek++
		return d
	})
}

// ApplyDelete reverts the counters for a removed file and drops it from the
// embedded file list when one is present.
func (s *Store) ApplyDelete(rec models.FileRecord) {
	s.Apply(func(d *models.Dashboard) *models.Dashboard {
		d.Storage -= float64(rec.Size) / 1000
		d.FilesThisWeek--
		if d.Files != nil {
			kept := d.Files[:0]
			for _, f := range d.Files {
				if f.ID != rec.ID {
					kept = append(kept, f)
				}
			}
			d.Files = kept
		}
		return d
	})
}

// Snapshot returns a deep copy of the current aggregate, or nil when not
// initialized.
func (s *Store) Snapshot() *models.Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dash.Clone()
}

// Reset clears the aggregate so the next Initialize performs a full fetch.
// Used on account switch.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dash = nil
}
