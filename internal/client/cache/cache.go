// Package cache implements the two-tier read-through cache for file
// records: an in-memory map in front of a persistent keyed store that
// survives restarts. The cache is populated on lookup (by read paths after
// a remote fetch), never written ahead of the backend.
package cache

import (
	"context"
	"sync"

	"github.com/viktors2008/mediadrive/internal/client/models"
	"github.com/viktors2008/mediadrive/internal/logging"
)

// Persistence is the narrow contract the durable tier has to satisfy; the
// sqlite files repository implements it, and tests swap in fakes.
type Persistence interface {
	Get(ctx context.Context, id string) (*models.FileRecord, error)
	Add(ctx context.Context, rec *models.FileRecord) error
	Put(ctx context.Context, rec *models.FileRecord) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

type FileCache struct {
	mu    sync.RWMutex
	mem   map[string]models.FileRecord
	store Persistence
	log   logging.Logger
}

func New(store Persistence, log logging.Logger) *FileCache {
	return &FileCache{
		mem:   make(map[string]models.FileRecord),
		store: store,
		log:   log.With("component", "cache"),
	}
}

// Get consults the memory tier first, then the persistent tier, promoting a
// durable hit into memory. A persistence failure degrades to a miss so read
// paths fall through to the backend instead of failing.
func (c *FileCache) Get(ctx context.Context, id string) *models.FileRecord {
	c.mu.RLock()
	if rec, ok := c.mem[id]; ok {
		c.mu.RUnlock()
		return &rec
	}
	c.mu.RUnlock()

	rec, err := c.store.Get(ctx, id)
	if err != nil {
		c.log.Warn(ctx, "cache lookup failed, treating as miss", "id", id, "error", err)
		return nil
	}
	if rec == nil {
		return nil
	}

	c.mu.Lock()
	c.mem[rec.ID] = *rec
	c.mu.Unlock()
	return rec
}

// Add inserts into both tiers. A duplicate in the durable tier surfaces as
// common.ErrDuplicate; callers treat it as a soft error.
func (c *FileCache) Add(ctx context.Context, rec *models.FileRecord) error {
	c.mu.Lock()
	c.mem[rec.ID] = *rec
	c.mu.Unlock()
	return c.store.Add(ctx, rec)
}

// Put upserts into both tiers.
func (c *FileCache) Put(ctx context.Context, rec *models.FileRecord) error {
	c.mu.Lock()
	c.mem[rec.ID] = *rec
	c.mu.Unlock()
	return c.store.Put(ctx, rec)
}

// Delete evicts from both tiers.
func (c *FileCache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	delete(c.mem, id)
	c.mu.Unlock()
	return c.store.Delete(ctx, id)
}

// Clear wipes both tiers. Used on account switch.
func (c *FileCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.mem = make(map[string]models.FileRecord)
	c.mu.Unlock()
	return c.store.Clear(ctx)
}
