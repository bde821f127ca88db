package uploader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viktors2008/mediadrive/internal/client/api"
	"github.com/viktors2008/mediadrive/internal/client/dashboard"
	"github.com/viktors2008/mediadrive/internal/client/models"
	"github.com/viktors2008/mediadrive/internal/client/registry"
	"github.com/viktors2008/mediadrive/internal/common"
	"github.com/viktors2008/mediadrive/internal/logging"
)

func nopLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type dashFetcher struct{}

func (dashFetcher) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	return &models.Dashboard{UserID: uuid.NewString(), Storage: 0, FilesThisWeek: 0}, nil
}

// stubUploader hands control of each transfer to the test: every call parks
// on a gate until the test releases it with a result.
type stubUploader struct {
	mu       sync.Mutex
	calls    []api.UploadRequest
	inFlight atomic.Int32
	maxSeen  atomic.Int32

	gates chan chan uploadResult
}

type uploadResult struct {
	rec *models.FileRecord
	err error
}

func newStubUploader() *stubUploader {
	return &stubUploader{gates: make(chan chan uploadResult, 16)}
}

func (s *stubUploader) Upload(ctx context.Context, req api.UploadRequest) (*models.FileRecord, error) {
	n := s.inFlight.Add(1)
	for {
		max := s.maxSeen.Load()
		if n <= max || s.maxSeen.CompareAndSwap(max, n) {
			break
		}
	}
	defer s.inFlight.Add(-1)

	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	gate := make(chan uploadResult, 1)
	s.gates <- gate

	select {
	case res := <-gate:
		return res.rec, res.err
	case <-ctx.Done():
		return nil, common.ErrCancelled
	}
}

// await returns the gate of the next transfer once it has started.
func (s *stubUploader) await(t *testing.T) chan uploadResult {
	t.Helper()
	select {
	case gate := <-s.gates:
		return gate
	case <-time.After(5 * time.Second):
		t.Fatal("no transfer started")
		return nil
	}
}

func (s *stubUploader) requests() []api.UploadRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.UploadRequest, len(s.calls))
	copy(out, s.calls)
	return out
}

type stubEmitter struct {
	mu     sync.Mutex
	events []string
}

func (s *stubEmitter) Emit(event string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubEmitter) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

type cacheStub struct {
	mu    sync.Mutex
	added []string
}

func (c *cacheStub) Add(_ context.Context, rec *models.FileRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added = append(c.added, rec.ID)
	return nil
}

func (c *cacheStub) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.added...)
}

func handle(name string) FileHandle {
	return FileHandle{
		Name: name,
		Size: 1000,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("data")), nil
		},
	}
}

func record(size int64) *models.FileRecord {
	return &models.FileRecord{
		ID:       uuid.NewString(),
		Name:     "uploaded.bin",
		UserID:   uuid.NewString(),
		PublicID: "pub/x",
		Size:     size,
	}
}

type fixture struct {
	engine   *Engine
	uploader *stubUploader
	registry *registry.Registry
	dash     *dashboard.Store
	emitter  *stubEmitter
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	up := newStubUploader()
	reg := registry.New()
	dash := dashboard.NewStore(dashFetcher{}, nopLogger())
	require.NoError(t, dash.Initialize(context.Background()))
	em := &stubEmitter{}
	e := NewEngine(up, reg, dash, em, nopLogger(), opts)
	t.Cleanup(e.Close)
	return &fixture{engine: e, uploader: up, registry: reg, dash: dash, emitter: em}
}

func pendingIDs(e *Engine) []string {
	pending, _, _ := e.Tasks()
	out := make([]string, len(pending))
	for i, tv := range pending {
		out[i] = tv.ID
	}
	return out
}

func TestEnqueue_ProcessesOneAtATime(t *testing.T) {
	f := newFixture(t, Options{})

	f.engine.Enqueue([]FileHandle{handle("a.txt"), handle("b.txt"), handle("c.txt")})

	gate := f.uploader.await(t)

	// only the first transfer may have begun
	reqs := f.uploader.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "a.txt", reqs[0].Name)

	pending, _, completed := f.engine.Tasks()
	require.Len(t, pending, 3)
	assert.Empty(t, completed)

	// finish a.txt; b.txt starts automatically
	gate <- uploadResult{rec: record(1000)}
	gate2 := f.uploader.await(t)

	reqs = f.uploader.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "b.txt", reqs[1].Name)

	_, _, completed = f.engine.Tasks()
	require.Len(t, completed, 1)
	assert.Equal(t, "a.txt", completed[0].Name)
	assert.Equal(t, 100, completed[0].Progress)
	assert.Equal(t, models.TaskCompleted, completed[0].Status)

	gate2 <- uploadResult{rec: record(1000)}
	f.uploader.await(t) <- uploadResult{rec: record(1000)}

	require.Eventually(t, func() bool {
		pending, _, completed := f.engine.Tasks()
		return len(pending) == 0 && len(completed) == 3
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), f.uploader.maxSeen.Load(), "at most one transfer in flight")
}

func TestSuccess_FansOutToRegistryDashboardAndEmitter(t *testing.T) {
	f := newFixture(t, Options{})

	f.engine.Enqueue([]FileHandle{handle("a.txt")})
	rec := record(4500)
	f.uploader.await(t) <- uploadResult{rec: rec}

	require.Eventually(t, func() bool {
		_, _, completed := f.engine.Tasks()
		return len(completed) == 1
	}, 5*time.Second, 10*time.Millisecond)

	files := f.registry.Files()
	require.Len(t, files, 1)
	assert.Equal(t, rec.ID, files[0].ID)

	snap := f.dash.Snapshot()
	assert.Equal(t, 4.5, snap.Storage)
	assert.Equal(t, 1, snap.FilesThisWeek)

	assert.Equal(t, []string{"upload"}, f.emitter.all())
}

func TestSuccess_WritesCompletedRecordToCache(t *testing.T) {
	stub := &cacheStub{}
	f := newFixture(t, Options{Cache: stub})

	f.engine.Enqueue([]FileHandle{handle("a.txt")})
	rec := record(1000)
	f.uploader.await(t) <- uploadResult{rec: rec}

	require.Eventually(t, func() bool {
		return len(stub.ids()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{rec.ID}, stub.ids())
}

func TestFailure_CarriesServerMessage(t *testing.T) {
	f := newFixture(t, Options{})

	f.engine.Enqueue([]FileHandle{handle("big.bin")})
	f.uploader.await(t) <- uploadResult{err: &api.Error{Status: 507, Message: "disk full"}}

	require.Eventually(t, func() bool {
		_, failed, _ := f.engine.Tasks()
		return len(failed) == 1
	}, 5*time.Second, 10*time.Millisecond)

	_, failed, _ := f.engine.Tasks()
	assert.Equal(t, "disk full", failed[0].Error)
	assert.Equal(t, models.TaskFailed, failed[0].Status)
	assert.Empty(t, f.emitter.all(), "failures are not broadcast")
	assert.Empty(t, f.registry.Files())
}

func TestFailureMessage_Preference(t *testing.T) {
	assert.Equal(t, "disk full", failureMessage(&api.Error{Status: 507, Message: "disk full"}))
	assert.Equal(t, "connection reset", failureMessage(errors.New("connection reset")))
	assert.Equal(t, fallbackErrorMessage, failureMessage(nil))
}

func TestRetry_ResetsProgressAndStatus(t *testing.T) {
	f := newFixture(t, Options{})

	f.engine.Enqueue([]FileHandle{handle("flaky.txt")})
	f.uploader.await(t) <- uploadResult{err: errors.New("boom")}

	require.Eventually(t, func() bool {
		_, failed, _ := f.engine.Tasks()
		return len(failed) == 1
	}, 5*time.Second, 10*time.Millisecond)

	_, failed, _ := f.engine.Tasks()
	id := failed[0].ID

	require.NoError(t, f.engine.RetryTask(id))

	// wait for the retried transfer to start
	_ = f.uploader.await(t)

	pending, failedNow, _ := f.engine.Tasks()
	require.Len(t, pending, 1)
	assert.Empty(t, failedNow)
	assert.Equal(t, id, pending[0].ID)
	assert.Equal(t, 0, pending[0].Progress)
	assert.Equal(t, models.TaskUploading, pending[0].Status)
	assert.Empty(t, pending[0].Error)

	// the fresh cancellation handle must actually work
	require.NoError(t, f.engine.CancelTask(id))
	require.Eventually(t, func() bool {
		pending, failed, completed := f.engine.Tasks()
		return len(pending) == 0 && len(failed) == 0 && len(completed) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRetry_OnlyFailedTasks(t *testing.T) {
	f := newFixture(t, Options{})

	f.engine.Enqueue([]FileHandle{handle("a.txt")})
	f.uploader.await(t)

	id := pendingIDs(f.engine)[0]
	err := f.engine.RetryTask(id)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTaskNotFound)
}

func TestCancel_InFlightTaskDropsSilently(t *testing.T) {
	f := newFixture(t, Options{})

	f.engine.Enqueue([]FileHandle{handle("a.txt")})
	f.uploader.await(t)

	id := pendingIDs(f.engine)[0]
	require.NoError(t, f.engine.CancelTask(id))

	require.Eventually(t, func() bool {
		pending, failed, completed := f.engine.Tasks()
		return len(pending) == 0 && len(failed) == 0 && len(completed) == 0
	}, 5*time.Second, 10*time.Millisecond)

	assert.Empty(t, f.emitter.all())
	assert.Empty(t, f.registry.Files())
}

func TestCancel_UnknownTask(t *testing.T) {
	f := newFixture(t, Options{})
	err := f.engine.CancelTask(uuid.NewString())
	assert.ErrorIs(t, err, common.ErrTaskNotFound)
}

func TestRemoveTask_SectionMembership(t *testing.T) {
	f := newFixture(t, Options{CompletedTTL: time.Hour})

	f.engine.Enqueue([]FileHandle{handle("a.txt"), handle("b.txt")})
	f.uploader.await(t) <- uploadResult{rec: record(10)}
	f.uploader.await(t) <- uploadResult{err: errors.New("boom")}

	require.Eventually(t, func() bool {
		_, failed, completed := f.engine.Tasks()
		return len(failed) == 1 && len(completed) == 1
	}, 5*time.Second, 10*time.Millisecond)

	_, failed, completed := f.engine.Tasks()
	failedID, completedID := failed[0].ID, completed[0].ID

	// wrong section is an error and does not remove anything
	require.Error(t, f.engine.RemoveTask(failedID, models.SectionCompleted))
	require.Error(t, f.engine.RemoveTask(completedID, models.SectionFailed))
	_, failed, completed = f.engine.Tasks()
	assert.Len(t, failed, 1)
	assert.Len(t, completed, 1)

	require.NoError(t, f.engine.RemoveTask(failedID, models.SectionFailed))
	require.NoError(t, f.engine.RemoveTask(completedID, models.SectionCompleted))
	_, failed, completed = f.engine.Tasks()
	assert.Empty(t, failed)
	assert.Empty(t, completed)
}

func TestRemoveTask_PendingIsCallerError(t *testing.T) {
	f := newFixture(t, Options{})

	f.engine.Enqueue([]FileHandle{handle("a.txt")})
	f.uploader.await(t)

	id := pendingIDs(f.engine)[0]
	err := f.engine.RemoveTask(id, models.SectionPending)
	assert.ErrorIs(t, err, common.ErrTaskInFlight)
}

func TestCompletedTasks_AutoExpire(t *testing.T) {
	f := newFixture(t, Options{CompletedTTL: 50 * time.Millisecond})

	f.engine.Enqueue([]FileHandle{handle("a.txt")})
	f.uploader.await(t) <- uploadResult{rec: record(10)}

	require.Eventually(t, func() bool {
		_, _, completed := f.engine.Tasks()
		return len(completed) == 1
	}, 5*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		_, _, completed := f.engine.Tasks()
		return len(completed) == 0
	}, 5*time.Second, 5*time.Millisecond)
}

func TestParentContext_CapturedAtEnqueue(t *testing.T) {
	f := newFixture(t, Options{})

	folder := uuid.NewString()
	f.engine.SetParent(folder)
	f.engine.Enqueue([]FileHandle{handle("a.txt")})
	f.engine.ClearParent()
	f.engine.Enqueue([]FileHandle{handle("b.txt")})

	f.uploader.await(t) <- uploadResult{rec: record(10)}
	f.uploader.await(t) <- uploadResult{rec: record(10)}

	require.Eventually(t, func() bool {
		return len(f.uploader.requests()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	reqs := f.uploader.requests()
	assert.Equal(t, folder, reqs[0].Folder)
	assert.Empty(t, reqs[1].Folder)
}

func TestSubscribe_NotifiesAndUnsubscribes(t *testing.T) {
	f := newFixture(t, Options{})

	var n atomic.Int32
	unsub := f.engine.Subscribe(func() { n.Add(1) })

	f.engine.Enqueue([]FileHandle{handle("a.txt")})
	require.Eventually(t, func() bool { return n.Load() > 0 }, 5*time.Second, 10*time.Millisecond)

	unsub()
	before := n.Load()
	f.uploader.await(t) <- uploadResult{rec: record(10)}

	require.Eventually(t, func() bool {
		_, _, completed := f.engine.Tasks()
		return len(completed) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, before, n.Load(), "no notifications after unsubscribe")
}
