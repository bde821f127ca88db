package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viktors2008/mediadrive/internal/client/models"
	"github.com/viktors2008/mediadrive/internal/logging"
)

type stubFetcher struct {
	dash  *models.Dashboard
	err   error
	calls int
}

func (f *stubFetcher) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.dash.Clone(), nil
}

func nopLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newStore(t *testing.T) (*Store, *stubFetcher) {
	t.Helper()
	f := &stubFetcher{dash: &models.Dashboard{
		UserID:          uuid.NewString(),
		Storage:         100,
		FoldersThisWeek: 2,
		FilesThisWeek:   5,
	}}
	return NewStore(f, nopLogger()), f
}

func TestInitialize_FetchesOnce(t *testing.T) {
	s, f := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Initialize(ctx))

	assert.Equal(t, 1, f.calls, "initialize must be idempotent")
	require.NotNil(t, s.Snapshot())
	assert.Equal(t, 100.0, s.Snapshot().Storage)
}

func TestInitialize_DoesNotOverwriteExistingState(t *testing.T) {
	s, f := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx))
	s.ApplyUpload(3000)

	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, 103.0, s.Snapshot().Storage, "locally applied delta must survive re-initialize")
}

func TestInitialize_FetchError(t *testing.T) {
	f := &stubFetcher{err: errors.New("backend down")}
	s := NewStore(f, nopLogger())

	err := s.Initialize(context.Background())
	require.Error(t, err)
	assert.Nil(t, s.Snapshot(), "prior state (none) left intact on failure")
}

func TestApply_NoOpWhenUninitialized(t *testing.T) {
	s, _ := newStore(t)

	called := false
	s.Apply(func(d *models.Dashboard) *models.Dashboard {
		called = true
		return d
	})

	assert.False(t, called)
	assert.Nil(t, s.Snapshot())
}

func TestApplyUpload_ThenDelete_Reverts(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	const size = int64(4500)
	s.ApplyUpload(size)

	snap := s.Snapshot()
	assert.Equal(t, 100+4.5, snap.Storage)
	assert.Equal(t, 6, snap.FilesThisWeek, "files this week increments by exactly one")

	s.ApplyDelete(models.FileRecord{ID: uuid.NewString(), Size: size})

	snap = s.Snapshot()
	assert.Equal(t, 100.0, snap.Storage)
	assert.Equal(t, 5, snap.FilesThisWeek)
}

func TestApplyDelete_DropsEmbeddedFile(t *testing.T) {
	id := uuid.NewString()
	f := &stubFetcher{dash: &models.Dashboard{
		UserID:        uuid.NewString(),
		Storage:       10,
		FilesThisWeek: 1,
		Files: []models.FileRecord{
			{ID: id, Name: "gone.txt", Size: 1000},
			{ID: uuid.NewString(), Name: "kept.txt", Size: 1000},
		},
	}}
	s := NewStore(f, nopLogger())
	require.NoError(t, s.Initialize(context.Background()))

	s.ApplyDelete(models.FileRecord{ID: id, Size: 1000})

	snap := s.Snapshot()
	require.Len(t, snap.Files, 1)
	assert.Equal(t, "kept.txt", snap.Files[0].Name)
	assert.Equal(t, 9.0, snap.Storage)
}

func TestSnapshot_IsACopy(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Initialize(context.Background()))

	snap := s.Snapshot()
	snap.Storage = 0

	assert.Equal(t, 100.0, s.Snapshot().Storage)
}

func TestReset_AllowsRefetch(t *testing.T) {
	s, f := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx))
	s.Reset()
	assert.Nil(t, s.Snapshot())

	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, 2, f.calls)
}
