// Package services contains the use-case layer of the drive client. Each
// service coordinates the API client, the local cache and the in-memory
// stores for one concern, and is constructed explicitly with its
// dependencies.
package services

import (
	"context"
	"fmt"

	"github.com/viktors2008/mediadrive/internal/client/api"
	"github.com/viktors2008/mediadrive/internal/client/cache"
	"github.com/viktors2008/mediadrive/internal/client/dashboard"
	"github.com/viktors2008/mediadrive/internal/client/models"
	"github.com/viktors2008/mediadrive/internal/client/registry"
	"github.com/viktors2008/mediadrive/internal/logging"
)

// MediaBackend is the slice of the API client the media service calls.
type MediaBackend interface {
	GetFile(ctx context.Context, id string) (*models.FileRecord, error)
	GetPublicFile(ctx context.Context, id string) (*models.FileRecord, error)
	TogglePrivacy(ctx context.Context, id string, isPrivate bool) (*models.FileRecord, error)
	DeleteFile(ctx context.Context, id, publicID string) error
	Search(ctx context.Context, query string) ([]models.FileRecord, error)
	ListPage(ctx context.Context, cursor *string) (*api.Page, error)
}

// Broadcaster forwards locally-originated mutations to other sessions.
type Broadcaster interface {
	Emit(event string, payload any) error
}

type MediaService struct {
	backend   MediaBackend
	cache     *cache.FileCache
	registry  *registry.Registry
	dashboard *dashboard.Store
	emitter   Broadcaster
	log       logging.Logger
}

func NewMediaService(backend MediaBackend, c *cache.FileCache, reg *registry.Registry, dash *dashboard.Store, emitter Broadcaster, log logging.Logger) *MediaService {
	return &MediaService{
		backend:   backend,
		cache:     c,
		registry:  reg,
		dashboard: dash,
		emitter:   emitter,
		log:       log.With("component", "media"),
	}
}

// Get resolves a record read-through: cache first, then the backend, writing
// a remote hit into the cache for the next reader.
func (s *MediaService) Get(ctx context.Context, id string) (*models.FileRecord, error) {
	if rec := s.cache.Get(ctx, id); rec != nil {
		return rec, nil
	}

	rec, err := s.backend.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, rec); err != nil {
		s.log.Warn(ctx, "caching fetched record", "id", id, "error", err)
	}
	return rec, nil
}

// GetPublic fetches a record through the public endpoint. Public views never
// populate the cache; the record may belong to someone else.
func (s *MediaService) GetPublic(ctx context.Context, id string) (*models.FileRecord, error) {
	return s.backend.GetPublicFile(ctx, id)
}

// TogglePrivacy flips the record's privacy flag on the backend, refreshes
// local state and broadcasts the change. The cache write is opportunistic
// and soft-fails.
func (s *MediaService) TogglePrivacy(ctx context.Context, id string, private bool) (*models.FileRecord, error) {
	rec, err := s.backend.TogglePrivacy(ctx, id, private)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Add(ctx, rec); err != nil {
		s.log.Warn(ctx, "caching toggled record", "id", id, "error", err)
	}
	s.registry.TakeFile(rec.ID, func(models.FileRecord) {
		s.registry.AddOne(*rec)
	})

	if s.emitter != nil {
		payload := map[string]any{"id": rec.ID, "private": rec.IsPrivate}
		if err := s.emitter.Emit("toggle", payload); err != nil {
			s.log.Warn(ctx, "broadcasting toggle event", "id", id, "error", err)
		}
	}
	return rec, nil
}

// Delete removes the record remotely and locally: cache eviction, registry
// removal, dashboard reverse delta, and an outbound delete broadcast.
func (s *MediaService) Delete(ctx context.Context, rec models.FileRecord) error {
	if err := s.cache.Delete(ctx, rec.ID); err != nil {
		s.log.Warn(ctx, "evicting cached record", "id", rec.ID, "error", err)
	}

	if err := s.backend.DeleteFile(ctx, rec.ID, rec.PublicID); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}

	s.registry.Remove(rec.ID)
	s.dashboard.ApplyDelete(rec)

	if s.emitter != nil {
		if err := s.emitter.Emit("delete", rec); err != nil {
			s.log.Warn(ctx, "broadcasting delete event", "id", rec.ID, "error", err)
		}
	}
	return nil
}

// Search queries the backend. Results are not folded into the registry; the
// listing keeps its own pagination order.
func (s *MediaService) Search(ctx context.Context, query string) ([]models.FileRecord, error) {
	return s.backend.Search(ctx, query)
}

// LoadPage fetches the next listing page into the registry and returns the
// number of records added. The first call requests the first page; once the
// cursor is exhausted further calls are no-ops returning zero.
func (s *MediaService) LoadPage(ctx context.Context) (int, error) {
	var cursor *string
	if s.registry.Len() > 0 {
		cursor = s.registry.Cursor()
		if cursor == nil {
			return 0, nil
		}
	}

	page, err := s.backend.ListPage(ctx, cursor)
	if err != nil {
		return 0, fmt.Errorf("loading media page: %w", err)
	}

	s.registry.AddMany(page.Data)
	s.registry.SetCursor(page.Cursor)
	return len(page.Data), nil
}
