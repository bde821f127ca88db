// Package uploader implements the serialized upload pipeline: batches of
// files become tasks, tasks are transferred one at a time, and each terminal
// transition fans out to the registry, the dashboard aggregate, and the
// realtime channel.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viktors2008/mediadrive/internal/client/api"
	"github.com/viktors2008/mediadrive/internal/client/dashboard"
	"github.com/viktors2008/mediadrive/internal/client/models"
	"github.com/viktors2008/mediadrive/internal/client/registry"
	"github.com/viktors2008/mediadrive/internal/common"
	"github.com/viktors2008/mediadrive/internal/logging"
)

// DefaultCompletedTTL is how long a completed task stays visible before it
// is removed automatically.
const DefaultCompletedTTL = 10 * time.Second

const fallbackErrorMessage = "Upload failed"

// Uploader performs one transfer. Implemented by the API client.
type Uploader interface {
	Upload(ctx context.Context, req api.UploadRequest) (*models.FileRecord, error)
}

// Emitter broadcasts locally-originated mutations to other sessions.
// Implemented by the realtime bridge.
type Emitter interface {
	Emit(event string, payload any) error
}

// FileHandle is a raw file supplied by the selection surface. The surface
// is responsible for size/extension validation before enqueueing.
type FileHandle struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// task is owned exclusively by the engine; nothing outside this package
// mutates one.
type task struct {
	id        string
	file      FileHandle
	progress  int
	status    models.TaskStatus
	errMsg    string
	createdAt time.Time

	// parent is the folder context captured at enqueue time
	parent string

	ctx     context.Context
	cancel  context.CancelFunc
	claimed bool
}

// TaskView is a read-only snapshot of one task handed to observers.
type TaskView struct {
	ID        string
	Name      string
	Size      int64
	Progress  int
	Status    models.TaskStatus
	Error     string
	CreatedAt time.Time
	Section   models.TaskSection
}

// Engine is the upload queue. A task id lives in exactly one of the pending,
// failed, or completed sections at any time, and at most one pending task is
// transferring.
type Engine struct {
	mu        sync.Mutex
	pending   []*task
	failed    []*task
	completed []*task

	parent   string
	draining bool
	closed   bool

	uploader  Uploader
	registry  *registry.Registry
	dashboard *dashboard.Store
	emitter   Emitter
	cache     Cacher
	log       logging.Logger

	completedTTL time.Duration

	subs    map[int]func()
	nextSub int

	baseCtx    context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup
}

// Cacher stores a completed upload's record so read paths find it without a
// refetch. Optional.
type Cacher interface {
	Add(ctx context.Context, rec *models.FileRecord) error
}

// Options tunes the engine; zero values pick defaults.
type Options struct {
	CompletedTTL time.Duration
	Cache        Cacher
}

func NewEngine(up Uploader, reg *registry.Registry, dash *dashboard.Store, emitter Emitter, log logging.Logger, opts Options) *Engine {
	ttl := opts.CompletedTTL
	if ttl <= 0 {
		ttl = DefaultCompletedTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		uploader:     up,
		registry:     reg,
		dashboard:    dash,
		emitter:      emitter,
		cache:        opts.Cache,
		log:          log.With("component", "uploader"),
		completedTTL: ttl,
		subs:         make(map[int]func()),
		baseCtx:      ctx,
		cancelBase:   cancel,
	}
}

// Subscribe registers fn to run after every state change and returns its
// unsubscribe handle. Observers read current state via Tasks.
func (e *Engine) Subscribe(fn func()) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *Engine) notify() {
	e.mu.Lock()
	fns := make([]func(), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// SetParent captures the folder context applied to subsequent uploads.
func (e *Engine) SetParent(folderID string) {
	e.mu.Lock()
	e.parent = folderID
	e.mu.Unlock()
}

// ClearParent drops the captured folder context.
func (e *Engine) ClearParent() {
	e.SetParent("")
}

// Enqueue creates one uploading task per file and starts the drain loop.
// There is no batch-size limit at this layer.
func (e *Engine) Enqueue(files []FileHandle) {
	if len(files) == 0 {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	for _, f := range files {
		ctx, cancel := context.WithCancel(e.baseCtx)
		e.pending = append(e.pending, &task{
			id:        uuid.NewString(),
			file:      f,
			status:    models.TaskUploading,
			createdAt: time.Now(),
			parent:    e.parent,
			ctx:       ctx,
			cancel:    cancel,
		})
	}
	e.mu.Unlock()
	e.notify()
	e.kick()
}

// kick runs one drain cycle: if the engine is idle and an unstarted task
// exists, claim it and launch its transfer. The idle→draining transition and
// the claim happen in the same critical section, so re-entry from any number
// of triggers never starts a second transfer.
func (e *Engine) kick() {
	e.mu.Lock()
	if e.closed || e.draining {
		e.mu.Unlock()
		return
	}
	var next *task
	for _, t := range e.pending {
		if t.progress == 0 && !t.claimed {
			next = t
			break
		}
	}
	if next == nil {
		e.mu.Unlock()
		return
	}
	e.draining = true
	next.claimed = true
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run(next)
}

func (e *Engine) run(t *task) {
	defer e.wg.Done()

	rec, err := e.transfer(t)

	e.mu.Lock()
	e.draining = false
	// the captured folder context is per-drain-cycle
	e.parent = ""
	live := e.findLocked(&e.pending, t.id) != nil
	if live {
		switch {
		case err == nil:
			e.removeLocked(&e.pending, t.id)
			t.status = models.TaskCompleted
			t.progress = 100
			e.completed = append(e.completed, t)
			e.scheduleExpiryLocked(t.id)
		case errors.Is(err, common.ErrCancelled):
			// aborted mid-flight: drop silently, no failed entry
			e.removeLocked(&e.pending, t.id)
		default:
			e.removeLocked(&e.pending, t.id)
			t.status = models.TaskFailed
			t.errMsg = failureMessage(err)
			e.failed = append(e.failed, t)
		}
	}
	e.mu.Unlock()

	if live && err == nil {
		e.registry.AddOne(*rec)
		e.dashboard.ApplyUpload(rec.Size)
		if e.cache != nil {
			if cacheErr := e.cache.Add(t.ctx, rec); cacheErr != nil {
				e.log.Warn(t.ctx, "caching uploaded record", "error", cacheErr)
			}
		}
		if e.emitter != nil {
			if emitErr := e.emitter.Emit("upload", rec); emitErr != nil {
				e.log.Warn(t.ctx, "broadcasting upload event", "error", emitErr)
			}
		}
		e.log.Info(t.ctx, "upload finished", "id", rec.ID, "name", rec.Name, "size", rec.Size)
	} else if live && !errors.Is(err, common.ErrCancelled) {
		e.log.Warn(t.ctx, "upload failed", "name", t.file.Name, "error", err)
	}

	e.notify()
	e.kick()
}

func (e *Engine) transfer(t *task) (*models.FileRecord, error) {
	body, err := t.file.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", t.file.Name, err)
	}
	defer body.Close()

	return e.uploader.Upload(t.ctx, api.UploadRequest{
		Name:   t.file.Name,
		Size:   t.file.Size,
		Body:   body,
		Folder: t.parent,
		OnProgress: func(p int) {
			e.setProgress(t.id, p)
		},
	})
}

// setProgress applies a progress callback only while the task is still a
// claimed member of the pending section; late callbacks from a cancelled or
// finished transfer are dropped.
func (e *Engine) setProgress(id string, p int) {
	e.mu.Lock()
	t := e.findLocked(&e.pending, id)
	if t == nil || !t.claimed {
		e.mu.Unlock()
		return
	}
	t.progress = p
	e.mu.Unlock()
	e.notify()
}

// RetryTask re-admits a failed task to the pending queue with progress reset
// and a fresh cancellation handle. Only failed tasks can be retried.
func (e *Engine) RetryTask(id string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return common.ErrTaskNotFound
	}
	t := e.findLocked(&e.failed, id)
	if t == nil {
		e.mu.Unlock()
		return fmt.Errorf("retry %s: %w", id, common.ErrTaskNotFound)
	}
	e.removeLocked(&e.failed, id)
	ctx, cancel := context.WithCancel(e.baseCtx)
	t.ctx = ctx
	t.cancel = cancel
	t.status = models.TaskUploading
	t.progress = 0
	t.errMsg = ""
	t.claimed = false
	e.pending = append(e.pending, t)
	e.mu.Unlock()

	e.notify()
	e.kick()
	return nil
}

// CancelTask aborts a pending task. The task disappears from the queue and
// never lands in failed or completed.
func (e *Engine) CancelTask(id string) error {
	e.mu.Lock()
	t := e.findLocked(&e.pending, id)
	if t == nil {
		e.mu.Unlock()
		return fmt.Errorf("cancel %s: %w", id, common.ErrTaskNotFound)
	}
	e.removeLocked(&e.pending, id)
	t.cancel()
	e.mu.Unlock()

	e.notify()
	e.kick()
	return nil
}

// RemoveTask removes a task from exactly the named section. In-flight
// removal is a caller error; the UI routes it through CancelTask.
func (e *Engine) RemoveTask(id string, section models.TaskSection) error {
	e.mu.Lock()
	var list *[]*task
	switch section {
	case models.SectionPending:
		if e.findLocked(&e.pending, id) != nil {
			e.mu.Unlock()
			return fmt.Errorf("remove %s: %w", id, common.ErrTaskInFlight)
		}
		e.mu.Unlock()
		return fmt.Errorf("remove %s: %w", id, common.ErrTaskNotFound)
	case models.SectionFailed:
		list = &e.failed
	case models.SectionCompleted:
		list = &e.completed
	default:
		e.mu.Unlock()
		return fmt.Errorf("remove %s: unknown section %q", id, section)
	}
	if e.findLocked(list, id) == nil {
		e.mu.Unlock()
		return fmt.Errorf("remove %s from %s: %w", id, section, common.ErrTaskNotFound)
	}
	e.removeLocked(list, id)
	e.mu.Unlock()

	e.notify()
	return nil
}

func (e *Engine) scheduleExpiryLocked(id string) {
	ttl := e.completedTTL
	time.AfterFunc(ttl, func() {
		e.mu.Lock()
		if e.findLocked(&e.completed, id) == nil {
			e.mu.Unlock()
			return
		}
		e.removeLocked(&e.completed, id)
		e.mu.Unlock()
		e.notify()
	})
}

// Tasks returns snapshots of the three sections in order.
func (e *Engine) Tasks() (pending, failed, completed []TaskView) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return viewsLocked(e.pending, models.SectionPending),
		viewsLocked(e.failed, models.SectionFailed),
		viewsLocked(e.completed, models.SectionCompleted)
}

// Close aborts any in-flight transfer and waits for the worker to exit.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()
	e.cancelBase()
	e.wg.Wait()
}

func (e *Engine) findLocked(list *[]*task, id string) *task {
	for _, t := range *list {
		if t.id == id {
			return t
		}
	}
	return nil
}

func (e *Engine) removeLocked(list *[]*task, id string) {
	for i, t := range *list {
		if t.id == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

func viewsLocked(list []*task, section models.TaskSection) []TaskView {
	out := make([]TaskView, len(list))
	for i, t := range list {
		out[i] = TaskView{
			ID:        t.id,
			Name:      t.file.Name,
			Size:      t.file.Size,
			Progress:  t.progress,
			Status:    t.status,
			Error:     t.errMsg,
			CreatedAt: t.createdAt,
			Section:   section,
		}
	}
	return out
}

// failureMessage prefers the server-provided message, then the transport
// error text, then a generic fallback.
func failureMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallbackErrorMessage
}
