package files

import (
	"context"

	"github.com/viktors2008/mediadrive/internal/client/models"
)

// Repository is the persistent tier of the file-record cache, keyed by
// record id. Get returns (nil, nil) on a miss so callers can distinguish
// "not cached" from a storage failure.
type Repository interface {
	Get(ctx context.Context, id string) (*models.FileRecord, error)
	// Add inserts a new record and reports common.ErrDuplicate when the id
	// already exists.
	Add(ctx context.Context, rec *models.FileRecord) error
	// Put upserts, replacing any existing record with the same id.
	Put(ctx context.Context, rec *models.FileRecord) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
