package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"weather_balance/internal/logger"
	"weather_balance/internal/metrics"
	"weather_balance/internal/models"
)

var (
	ErrQueueFull        = errors.New("update queue is full")
	ErrDispatcherClosed = errors.New("update dispatcher is stopped")
)

// Runner performs one update.
type Runner interface {
	RunUpdate(ctx context.Context, taskID string, req models.UpdateRequest) models.UpdateResult
}

// ResultSink receives queued and finished results.
type ResultSink interface {
	Track(res models.UpdateResult)
	Record(res models.UpdateResult)
}

// Task is a submitted update. Its result becomes available once Done is closed.
type Task struct {
	ID       string
	Request  models.UpdateRequest
	queuedAt time.Time

	done   chan struct{}
	result models.UpdateResult
}

func newTask(req models.UpdateRequest) *Task {
	return &Task{
		ID:       uuid.NewString(),
		Request:  req,
		queuedAt: time.Now().UTC(),
		done:     make(chan struct{}),
	}
}

func (t *Task) Done() <-chan struct{} { return t.done }

// Result returns the finished result, or false while the task is pending.
func (t *Task) Result() (models.UpdateResult, bool) {
	select {
	case <-t.done:
		return t.result, true
	default:
		return models.UpdateResult{}, false
	}
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (models.UpdateResult, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return models.UpdateResult{}, ctx.Err()
	}
}

func (t *Task) queued() models.UpdateResult {
	return models.UpdateResult{
		TaskID:   t.ID,
		UserID:   t.Request.UserID,
		City:     t.Request.City,
		Status:   models.StatusQueued,
		QueuedAt: t.queuedAt,
	}
}

// Dispatcher runs updates on a fixed number of workers fed by a bounded queue.
type Dispatcher struct {
	runner  Runner
	sink    ResultSink
	log     *logger.Logger
	workers int

	queue chan *Task
	stop  chan struct{}

	mu        sync.RWMutex // guards closed, cancelRun and sends on queue
	closed    bool
	cancelRun context.CancelFunc

	wg        *conc.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewDispatcher(runner Runner, sink ResultSink, workers, queueSize int, log *logger.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		runner:  runner,
		sink:    sink,
		log:     log,
		workers: workers,
		queue:   make(chan *Task, queueSize),
		stop:    make(chan struct{}),
		wg:      conc.NewWaitGroup(),
	}
}

// Start launches the workers. Every update runs under a child of ctx; cancelling
// it (or a ShutdownContext deadline) makes in-flight fetches fall back and storage
// calls fail fast.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		d.mu.Lock()
		d.cancelRun = cancel
		d.mu.Unlock()

		for i := 0; i < d.workers; i++ {
			d.wg.Go(func() { d.work(ctx) })
		}
		d.log.Infow("update_workers_started", "workers", d.workers, "queue_size", cap(d.queue))
	})
}

func (d *Dispatcher) work(ctx context.Context) {
	for t := range d.queue {
		metrics.SetQueueDepth(len(d.queue))
		d.execute(ctx, t)
	}
}

func (d *Dispatcher) execute(ctx context.Context, t *Task) {
	var res models.UpdateResult
	var pc panics.Catcher
	pc.Try(func() { res = d.runner.RunUpdate(ctx, t.ID, t.Request) })
	if r := pc.Recovered(); r != nil {
		res = t.queued()
		res.Status = models.StatusDone
		res.Outcome = models.OutcomeFailed
		res.Error = r.AsError().Error()
	}
	d.complete(t, res)
}

func (d *Dispatcher) complete(t *Task, res models.UpdateResult) {
	res.TaskID = t.ID
	res.QueuedAt = t.queuedAt
	if res.FinishedAt.IsZero() {
		res.FinishedAt = time.Now().UTC()
	}
	d.sink.Record(res)
	t.result = res
	close(t.done)
}

// Submit enqueues without blocking. It fails with ErrQueueFull when the queue
// has no room and with ErrDispatcherClosed after Shutdown.
func (d *Dispatcher) Submit(req models.UpdateRequest) (*Task, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.RecordSubmissionRejected("closed")
		return nil, ErrDispatcherClosed
	}

	t := newTask(req)
	select {
	case d.queue <- t:
		d.accepted(t)
		return t, nil
	default:
		metrics.RecordSubmissionRejected("queue_full")
		return nil, ErrQueueFull
	}
}

// SubmitWait enqueues, waiting for room until ctx is done or the dispatcher stops.
func (d *Dispatcher) SubmitWait(ctx context.Context, req models.UpdateRequest) (*Task, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrDispatcherClosed
	}

	t := newTask(req)
	select {
	case d.queue <- t:
		d.accepted(t)
		return t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.stop:
		return nil, ErrDispatcherClosed
	}
}

// Enqueue submits without blocking and returns the task id.
func (d *Dispatcher) Enqueue(req models.UpdateRequest) (string, error) {
	t, err := d.Submit(req)
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

func (d *Dispatcher) accepted(t *Task) {
	d.sink.Track(t.queued())
	metrics.SetQueueDepth(len(d.queue))
}

// Shutdown refuses new submissions, lets the workers drain the queue and
// waits for them however long that takes.
func (d *Dispatcher) Shutdown() {
	_ = d.ShutdownContext(context.Background())
}

// ShutdownContext refuses new submissions and lets the workers drain the queue
// with a live context. When ctx ends first, the remaining updates run with a
// cancelled context (and finish as failed) and ctx.Err() is returned. Tasks left
// behind by a dispatcher that never started are completed as failed so their
// waiters are released.
func (d *Dispatcher) ShutdownContext(ctx context.Context) error {
	var err error
	d.stopOnce.Do(func() {
		close(d.stop) // unblocks SubmitWait callers holding the read lock

		d.mu.Lock()
		d.closed = true
		close(d.queue)
		cancelRun := d.cancelRun
		d.mu.Unlock()

		drained := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			err = ctx.Err()
			d.log.Warnw("update_drain_deadline_exceeded", "pending", len(d.queue), "err", err)
			if cancelRun != nil {
				cancelRun()
			}
			<-drained
		}
		if cancelRun != nil {
			cancelRun()
		}

		abandoned := 0
		for t := range d.queue {
			res := t.queued()
			res.Status = models.StatusDone
			res.Outcome = models.OutcomeFailed
			res.Error = fmt.Sprintf("%v before the update ran", ErrDispatcherClosed)
			d.complete(t, res)
			abandoned++
		}
		metrics.SetQueueDepth(0)
		d.log.Infow("update_workers_stopped", "abandoned", abandoned)
	})
	return err
}
