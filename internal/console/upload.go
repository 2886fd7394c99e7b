package console

import (
	"context"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

// UploadState is the observable state of a menu image upload.
type UploadState int

const (
	UploadIdle UploadState = iota
	UploadInFlight
	UploadCompleted
	UploadFailed
)

func (s UploadState) String() string {
	switch s {
	case UploadIdle:
		return "idle"
	case UploadInFlight:
		return "in-flight"
	case UploadCompleted:
		return "completed"
	case UploadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UploadTask is a snapshot of one upload.
type UploadTask struct {
	ID         string
	Owner      string
	Label      string
	State      UploadState
	URL        string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Done reports whether the task left the in-flight state.
func (t UploadTask) Done() bool {
	return t.State == UploadCompleted || t.State == UploadFailed
}

// UploadFunc performs the upload and returns the stored image URL.
type UploadFunc func(ctx context.Context) (string, error)

// UploadTracker runs uploads outside the request that started them and keeps
// their state for polling.
type UploadTracker struct {
	mu      sync.RWMutex
	tasks   map[string]*UploadTask
	timeout time.Duration
	retain  time.Duration
	logger  aqm.Logger
	wg      sync.WaitGroup
	now     func() time.Time
}

func NewUploadTracker(timeout time.Duration, logger aqm.Logger) *UploadTracker {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &UploadTracker{
		tasks:   make(map[string]*UploadTask),
		timeout: timeout,
		retain:  15 * time.Minute,
		logger:  logger,
		now:     time.Now,
	}
}

// Start registers a task for owner and runs fn in its own goroutine. The
// request context only contributes its values; cancellation is dropped so the
// upload outlives the request.
func (t *UploadTracker) Start(ctx context.Context, owner, label string, fn UploadFunc) string {
	task := &UploadTask{
		ID:    uuid.NewString(),
		Owner: owner,
		Label: label,
		State: UploadIdle,
	}

	t.mu.Lock()
	t.prune()
	t.tasks[task.ID] = task
	task.State = UploadInFlight
	task.StartedAt = t.now()
	t.mu.Unlock()

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer cancel()

		url, err := fn(runCtx)
		t.finish(task.ID, url, err)
	}()

	return task.ID
}

func (t *UploadTracker) finish(id, url string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[id]
	if !ok {
		return
	}

	task.FinishedAt = t.now()
	if err != nil {
		task.State = UploadFailed
		task.Err = err
		t.logger.Info("menu upload failed", "task_id", id, "error", err)
		return
	}

	task.State = UploadCompleted
	task.URL = url
	t.logger.Debug("menu upload completed", "task_id", id)
}

// Get returns the task with id when it belongs to owner. Unknown tasks report
// UploadIdle.
func (t *UploadTracker) Get(id, owner string) (UploadTask, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	task, ok := t.tasks[id]
	if !ok || task.Owner != owner {
		return UploadTask{ID: id, State: UploadIdle}, false
	}
	return *task, true
}

// prune drops finished tasks older than the retention window. Callers hold mu.
func (t *UploadTracker) prune() {
	cutoff := t.now().Add(-t.retain)
	for id, task := range t.tasks {
		if task.Done() && task.FinishedAt.Before(cutoff) {
			delete(t.tasks, id)
		}
	}
}

// Wait blocks until every started task finished.
func (t *UploadTracker) Wait() {
	t.wg.Wait()
}

// Stop waits for in-flight uploads or until ctx is done.
func (t *UploadTracker) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
