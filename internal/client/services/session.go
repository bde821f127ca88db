package services

import (
	"context"
	"fmt"

	"github.com/viktors2008/mediadrive/internal/client/cache"
	"github.com/viktors2008/mediadrive/internal/client/models"
	"github.com/viktors2008/mediadrive/internal/client/repositories/sessions"
	"github.com/viktors2008/mediadrive/internal/common"
	"github.com/viktors2008/mediadrive/internal/logging"
)

// SessionBackend is the slice of the API client the session service calls.
// Rotation tokens are opaque; the service never inspects them.
type SessionBackend interface {
	VerifyToken(ctx context.Context) error
	AddToken(ctx context.Context) (*models.SessionRecord, error)
	ChangeToken(ctx context.Context, token string) (*models.SessionRecord, error)
	Logout(ctx context.Context) error
}

// SessionSwapper atomically replaces a used session row with its successor.
type SessionSwapper interface {
	SwapSession(ctx context.Context, oldID int64, next *models.SessionRecord) error
}

// SessionService manages the locally cached secondary accounts and the
// token lifecycle against the backend.
type SessionService struct {
	backend SessionBackend
	repo    sessions.Repository
	swapper SessionSwapper
	media   *cache.FileCache
	log     logging.Logger
}

func NewSessionService(backend SessionBackend, repo sessions.Repository, swapper SessionSwapper, media *cache.FileCache, log logging.Logger) *SessionService {
	return &SessionService{
		backend: backend,
		repo:    repo,
		swapper: swapper,
		media:   media,
		log:     log.With("component", "sessions"),
	}
}

// Sessions lists the locally stored secondary accounts.
func (s *SessionService) Sessions(ctx context.Context) ([]models.SessionRecord, error) {
	return s.repo.List(ctx)
}

// Session returns the stored session with the given local id.
func (s *SessionService) Session(ctx context.Context, id int64) (*models.SessionRecord, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].ID == id {
			return &rows[i], nil
		}
	}
	return nil, fmt.Errorf("session %d: %w", id, common.ErrNotFound)
}

// AddSession asks the backend for a rotation token for the current identity
// and stores the resulting session locally.
func (s *SessionService) AddSession(ctx context.Context) (*models.SessionRecord, error) {
	rec, err := s.backend.AddToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("adding session: %w", err)
	}
	if err := s.repo.Add(ctx, rec); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	return rec, nil
}

// SwitchSession rotates to the given stored session. The used rotation token
// is single-use, so the old row is swapped for its replacement in one
// transaction; the media cache belongs to the previous account and is wiped.
func (s *SessionService) SwitchSession(ctx context.Context, old models.SessionRecord) (*models.SessionRecord, error) {
	next, err := s.backend.ChangeToken(ctx, old.Token)
	if err != nil {
		return nil, fmt.Errorf("rotating session token: %w", err)
	}

	if err := s.media.Clear(ctx); err != nil {
		s.log.Warn(ctx, "clearing media cache on switch", "error", err)
	}
	if err := s.swapper.SwapSession(ctx, old.ID, next); err != nil {
		return nil, fmt.Errorf("storing rotated session: %w", err)
	}
	return next, nil
}

// Verify checks the current session token against the backend.
func (s *SessionService) Verify(ctx context.Context) error {
	return s.backend.VerifyToken(ctx)
}

// Logout invalidates the current token server-side and wipes the media
// cache. Stored secondary sessions are kept so the user can switch back.
func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.backend.Logout(ctx); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	if err := s.media.Clear(ctx); err != nil {
		s.log.Warn(ctx, "clearing media cache on logout", "error", err)
	}
	return nil
}
