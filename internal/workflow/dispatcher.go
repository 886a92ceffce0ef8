package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"podcastforge/internal/logging"
)

var (
	// ErrAlreadyQueued is returned when a task id is already waiting or running.
	ErrAlreadyQueued = errors.New("task already queued")
	// ErrDispatcherStopped is returned by Enqueue before Start or after Stop.
	ErrDispatcherStopped = errors.New("dispatcher not running")
)

// RunFunc executes one job.
type RunFunc func(ctx context.Context, job Job)

// Dispatcher runs jobs on a bounded pool with at most one worker per task id.
type Dispatcher struct {
	run     RunFunc
	slots   chan struct{}
	logger  *slog.Logger
	workers int

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	queued  map[string]struct{}
	active  map[string]struct{}
	wg      sync.WaitGroup
}

// NewDispatcher builds a dispatcher with the given pool size (minimum 1).
func NewDispatcher(workers int, run RunFunc, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		run:     run,
		slots:   make(chan struct{}, workers),
		workers: workers,
		logger:  logging.NewComponentLogger(logger, "dispatcher"),
		queued:  make(map[string]struct{}),
		active:  make(map[string]struct{}),
	}
}

// Start accepts jobs until Stop or ctx cancellation.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("dispatcher already running")
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.running = true
	return nil
}

// Enqueue schedules job. A second Enqueue for a task id that is still
// waiting or running returns ErrAlreadyQueued.
func (d *Dispatcher) Enqueue(job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return ErrDispatcherStopped
	}
	if _, ok := d.queued[job.TaskID]; ok {
		return ErrAlreadyQueued
	}
	if _, ok := d.active[job.TaskID]; ok {
		return ErrAlreadyQueued
	}
	d.queued[job.TaskID] = struct{}{}
	d.wg.Add(1)
	go d.work(d.ctx, job)
	return nil
}

func (d *Dispatcher) work(ctx context.Context, job Job) {
	defer d.wg.Done()
	select {
	case d.slots <- struct{}{}:
	case <-ctx.Done():
		d.mu.Lock()
		delete(d.queued, job.TaskID)
		d.mu.Unlock()
		return
	}
	defer func() { <-d.slots }()

	d.mu.Lock()
	delete(d.queued, job.TaskID)
	d.active[job.TaskID] = struct{}{}
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.active, job.TaskID)
		d.mu.Unlock()
	}()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("task run panicked",
				logging.String(logging.FieldTaskID, job.TaskID),
				logging.Any("panic", r),
				logging.Alert("worker_panic"),
				logging.String(logging.FieldEventType, "worker_panic"),
			)
		}
	}()
	d.run(ctx, job)
}

// Stop cancels running jobs and waits for every worker to return.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	d.wg.Wait()
}

// Wait blocks until every enqueued job has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Counts reports waiting and running jobs.
func (d *Dispatcher) Counts() (queued, active int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queued), len(d.active)
}

// Workers returns the pool size.
func (d *Dispatcher) Workers() int {
	return d.workers
}
