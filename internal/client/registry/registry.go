// Package registry maintains the in-memory, de-duplicated, ordered set of
// file records known to this tab, plus the pagination cursor for loading
// further pages.
package registry

import (
	"sync"

	"github.com/viktors2008/mediadrive/internal/client/models"
)

// Registry is safe for concurrent use. Insertion order depends on the path:
// AddMany appends (pagination, oldest pages first), AddOne prepends
// (new arrivals, newest first). Id uniqueness is enforced on every insert.
type Registry struct {
	mu     sync.RWMutex
	files  []models.FileRecord
	ids    map[string]struct{}
	cursor *string
}

func New() *Registry {
	return &Registry{ids: make(map[string]struct{})}
}

// AddMany appends the records whose ids are not yet present, preserving the
// arrival order of the new records relative to each other. Used for
// paginated "load more" results.
func (r *Registry) AddMany(records []models.FileRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		if _, ok := r.ids[rec.ID]; ok {
			continue
		}
		r.ids[rec.ID] = struct{}{}
		r.files = append(r.files, rec)
	}
}

// AddOne prepends a single record. A duplicate id is a no-op. Used for
// just-uploaded files and realtime inserts.
func (r *Registry) AddOne(rec models.FileRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[rec.ID]; ok {
		return
	}
	r.ids[rec.ID] = struct{}{}
	r.files = append([]models.FileRecord{rec}, r.files...)
}

// Remove drops the record with the given id. No-op if absent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) (models.FileRecord, bool) {
	if _, ok := r.ids[id]; !ok {
		return models.FileRecord{}, false
	}
	delete(r.ids, id)
	for i := range r.files {
		if r.files[i].ID == id {
			rec := r.files[i]
			r.files = append(r.files[:i], r.files[i+1:]...)
			return rec, true
		}
	}
	return models.FileRecord{}, false
}

// TakeFile looks a record up by id and, if present, removes it and invokes
// cb with the removed record. Used by mutate-and-reinsert flows such as the
// realtime privacy toggle. The callback runs outside the registry lock.
func (r *Registry) TakeFile(id string, cb func(models.FileRecord)) {
	r.mu.Lock()
	rec, ok := r.removeLocked(id)
	r.mu.Unlock()
	if ok {
		cb(rec)
	}
}

// SetCursor stores the opaque pagination cursor. Nil means no further pages.
func (r *Registry) SetCursor(cursor *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursor = cursor
}

// Cursor returns the current pagination cursor, or nil when there are no
// further pages.
func (r *Registry) Cursor() *string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cursor
}

// Files returns a snapshot copy of the current records in order.
func (r *Registry) Files() []models.FileRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.FileRecord, len(r.files))
	copy(out, r.files)
	return out
}

// Len reports the number of records held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}
