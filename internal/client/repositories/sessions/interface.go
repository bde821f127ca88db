package sessions

import (
	"context"

	"github.com/viktors2008/mediadrive/internal/client/models"
)

// Repository stores the secondary-account sessions available for quick
// switching. Rows are keyed by a local auto-generated id.
type Repository interface {
	List(ctx context.Context) ([]models.SessionRecord, error)
	// Add inserts the record and fills in its local id.
	Add(ctx context.Context, rec *models.SessionRecord) error
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
}
