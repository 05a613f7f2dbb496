package gui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Task is one background CREATE or SEARCH action of the form.
type Task struct {
	ID          int
	Name        string
	Status      TaskStatus
	Error       error
	StartedAt   time.Time
	CompletedAt time.Time

	cancel context.CancelFunc
}

// TaskStatus represents the current state of a task
type TaskStatus int

const (
	StatusQueued TaskStatus = iota
	StatusProcessing
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s TaskStatus) String() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusProcessing:
		return "Processing"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// TaskQueue runs background tasks with bounded parallelism. Callbacks run
// on the task goroutine; UI code must hop back with fyne.Do.
type TaskQueue struct {
	mu      sync.Mutex
	tasks   map[int]*Task
	nextID  int
	sem     *semaphore.Weighted
	stopped bool

	onStatusUpdate func(task *Task)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTaskQueue creates a queue running at most parallel tasks at once.
func NewTaskQueue(ctx context.Context, parallel int64) *TaskQueue {
	queueCtx, cancel := context.WithCancel(ctx)
	return &TaskQueue{
		tasks:  make(map[int]*Task),
		nextID: 1,
		sem:    semaphore.NewWeighted(max(parallel, 1)),
		ctx:    queueCtx,
		cancel: cancel,
	}
}

// SetCallback sets the function told about every status change.
func (q *TaskQueue) SetCallback(onStatusUpdate func(*Task)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onStatusUpdate = onStatusUpdate
}

// Add queues fn under name and returns its task. fn receives a context
// cancelled by CancelAll or Stop.
func (q *TaskQueue) Add(name string, fn func(ctx context.Context) error) *Task {
	q.mu.Lock()
	ctx, cancel := context.WithCancel(q.ctx)
	task := &Task{ID: q.nextID, Name: name, Status: StatusQueued, cancel: cancel}
	q.nextID++
	if q.stopped {
		cancel()
		task.Status = StatusFailed
		task.Error = fmt.Errorf("queue is shutting down")
		q.mu.Unlock()
		return task
	}
	q.tasks[task.ID] = task
	q.wg.Add(1)
	q.mu.Unlock()

	q.notify(task)
	go q.run(ctx, task, fn)
	return task
}

func (q *TaskQueue) run(ctx context.Context, task *Task, fn func(context.Context) error) {
	defer q.wg.Done()
	defer task.cancel()

	if err := q.sem.Acquire(ctx, 1); err != nil {
		q.finish(task, err)
		return
	}
	defer q.sem.Release(1)

	q.setStatus(task, StatusProcessing)
	q.finish(task, fn(ctx))
}

func (q *TaskQueue) setStatus(task *Task, status TaskStatus) {
	q.mu.Lock()
	task.Status = status
	if status == StatusProcessing {
		task.StartedAt = time.Now()
	}
	q.mu.Unlock()
	q.notify(task)
}

func (q *TaskQueue) finish(task *Task, err error) {
	q.mu.Lock()
	task.CompletedAt = time.Now()
	switch {
	case err == nil:
		task.Status = StatusCompleted
	case errors.Is(err, context.Canceled):
		task.Status = StatusCancelled
		task.Error = err
	default:
		task.Status = StatusFailed
		task.Error = err
	}
	delete(q.tasks, task.ID)
	q.mu.Unlock()
	q.notify(task)
}

func (q *TaskQueue) notify(task *Task) {
	q.mu.Lock()
	cb := q.onStatusUpdate
	snapshot := *task
	q.mu.Unlock()
	if cb != nil {
		cb(&snapshot)
	}
}

// Active returns the number of queued and processing tasks.
func (q *TaskQueue) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// CancelAll cancels every queued and running task.
func (q *TaskQueue) CancelAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tasks {
		t.cancel()
	}
}

// Stop cancels every task and waits for them to return.
func (q *TaskQueue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cancel()
	q.wg.Wait()
}
