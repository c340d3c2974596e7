package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"weather_balance/internal/models"
)

func waitTask(t *testing.T, task *Task) models.UpdateResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := task.Wait(ctx)
	if err != nil {
		t.Fatalf("task %s did not finish: %v", task.ID, err)
	}
	return res
}

func TestDispatcher_SubmitRunsAndRecords(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d := NewDispatcher(appliedRunner(), sink, 2, 4, nil)
	d.Start(context.Background())
	defer d.Shutdown()

	task, err := d.Submit(models.UpdateRequest{UserID: 7, City: "Moscow"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if task.ID == "" {
		t.Fatalf("empty task id")
	}

	res := waitTask(t, task)
	if res.TaskID != task.ID || res.Outcome != models.OutcomeApplied || res.UserID != 7 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.QueuedAt.IsZero() || res.FinishedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", res)
	}
	if got, ok := task.Result(); !ok || got.TaskID != task.ID {
		t.Fatalf("Result() = %+v, %v", got, ok)
	}

	recs := sink.recorded()
	if len(recs) != 1 || recs[0].TaskID != task.ID {
		t.Fatalf("sink records = %+v", recs)
	}
}

func TestDispatcher_ResultPendingBeforeRun(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(appliedRunner(), &recordingSink{}, 1, 1, nil)
	task, err := d.Submit(models.UpdateRequest{UserID: 1})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, ok := task.Result(); ok {
		t.Fatalf("result available before any worker ran")
	}
	d.Start(context.Background())
	waitTask(t, task)
	d.Shutdown()
}

func TestDispatcher_QueueFull(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(appliedRunner(), &recordingSink{}, 1, 1, nil)
	// not started: nothing drains the queue
	if _, err := d.Submit(models.UpdateRequest{UserID: 1}); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if _, err := d.Enqueue(models.UpdateRequest{UserID: 2}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second Submit err = %v, want ErrQueueFull", err)
	}
	d.Shutdown()
}

func TestDispatcher_SubmitAfterShutdown(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(appliedRunner(), &recordingSink{}, 1, 1, nil)
	d.Start(context.Background())
	d.Shutdown()
	d.Shutdown() // idempotent

	if _, err := d.Submit(models.UpdateRequest{UserID: 1}); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("Submit err = %v, want ErrDispatcherClosed", err)
	}
	if _, err := d.SubmitWait(context.Background(), models.UpdateRequest{UserID: 1}); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("SubmitWait err = %v, want ErrDispatcherClosed", err)
	}
}

func TestDispatcher_ShutdownDrainsQueue(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d := NewDispatcher(appliedRunner(), sink, 3, 50, nil)

	tasks := make([]*Task, 0, 50)
	for i := 0; i < 50; i++ {
		task, err := d.Submit(models.UpdateRequest{UserID: int64(i)})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		tasks = append(tasks, task)
	}
	d.Start(context.Background())
	d.Shutdown()

	for _, task := range tasks {
		res, ok := task.Result()
		if !ok || res.Outcome != models.OutcomeApplied {
			t.Fatalf("task %s: %+v, %v", task.ID, res, ok)
		}
	}
	if n := len(sink.recorded()); n != 50 {
		t.Fatalf("recorded %d results, want 50", n)
	}
}

func TestDispatcher_ShutdownWithoutStartFailsPending(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(appliedRunner(), &recordingSink{}, 1, 2, nil)
	task, err := d.Submit(models.UpdateRequest{UserID: 1})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	d.Shutdown()

	res := waitTask(t, task)
	if res.Outcome != models.OutcomeFailed || !strings.Contains(res.Error, "stopped") {
		t.Fatalf("pending task after shutdown: %+v", res)
	}
}

func TestDispatcher_PanicBecomesFailedResult(t *testing.T) {
	t.Parallel()

	runner := runnerFunc(func(ctx context.Context, taskID string, req models.UpdateRequest) models.UpdateResult {
		if req.UserID == 1 {
			panic("storage exploded")
		}
		return appliedRunner()(ctx, taskID, req)
	})
	d := NewDispatcher(runner, &recordingSink{}, 1, 2, nil)
	d.Start(context.Background())
	defer d.Shutdown()

	bad, _ := d.Submit(models.UpdateRequest{UserID: 1})
	good, _ := d.Submit(models.UpdateRequest{UserID: 2})

	res := waitTask(t, bad)
	if res.Outcome != models.OutcomeFailed || !strings.Contains(res.Error, "storage exploded") {
		t.Fatalf("panicking task: %+v", res)
	}
	if res.UserID != 1 || res.Status != models.StatusDone {
		t.Fatalf("panicking task lost request fields: %+v", res)
	}
	// the worker survives
	if res := waitTask(t, good); res.Outcome != models.OutcomeApplied {
		t.Fatalf("task after panic: %+v", res)
	}
}

func TestDispatcher_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	const workers = 3
	var running, peak int32
	runner := runnerFunc(func(ctx context.Context, taskID string, req models.UpdateRequest) models.UpdateResult {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return models.UpdateResult{Outcome: models.OutcomeApplied}
	})

	d := NewDispatcher(runner, &recordingSink{}, workers, 30, nil)
	d.Start(context.Background())
	for i := 0; i < 30; i++ {
		if _, err := d.Submit(models.UpdateRequest{UserID: int64(i)}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	d.Shutdown()

	if p := atomic.LoadInt32(&peak); p > workers || p == 0 {
		t.Fatalf("peak concurrency = %d, want 1..%d", p, workers)
	}
}

func TestDispatcher_SubmitWaitBlocksUntilRoom(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	runner := runnerFunc(func(ctx context.Context, taskID string, req models.UpdateRequest) models.UpdateResult {
		<-release
		return models.UpdateResult{Outcome: models.OutcomeApplied}
	})
	d := NewDispatcher(runner, &recordingSink{}, 1, 1, nil)
	d.Start(context.Background())
	defer d.Shutdown()

	first, _ := d.Submit(models.UpdateRequest{UserID: 1})
	// wait until the worker picked the first task so the queue slot is free
	deadline := time.Now().Add(2 * time.Second)
	for len(d.queue) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if _, err := d.Submit(models.UpdateRequest{UserID: 2}); err != nil {
		t.Fatalf("fill queue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := d.SubmitWait(ctx, models.UpdateRequest{UserID: 3}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("SubmitWait on full queue err = %v, want deadline exceeded", err)
	}

	var wg sync.WaitGroup
	var third *Task
	var thirdErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		third, thirdErr = d.SubmitWait(context.Background(), models.UpdateRequest{UserID: 3})
	}()
	close(release)
	wg.Wait()

	if thirdErr != nil {
		t.Fatalf("SubmitWait after room freed: %v", thirdErr)
	}
	waitTask(t, first)
	waitTask(t, third)
}

func TestDispatcher_ShutdownReleasesBlockedSubmitters(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(appliedRunner(), &recordingSink{}, 1, 0, nil)
	// unbuffered queue and no workers: SubmitWait can only return through Shutdown

	errc := make(chan error, 1)
	go func() {
		_, err := d.SubmitWait(context.Background(), models.UpdateRequest{UserID: 1})
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	d.Shutdown()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrDispatcherClosed) {
			t.Fatalf("err = %v, want ErrDispatcherClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("SubmitWait still blocked after Shutdown")
	}
}

func TestDispatcher_TracksQueuedResult(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d := NewDispatcher(appliedRunner(), sink, 1, 1, nil)
	task, _ := d.Submit(models.UpdateRequest{UserID: 9, City: "Paris"})

	sink.mu.Lock()
	tracked := append([]models.UpdateResult(nil), sink.tracked...)
	sink.mu.Unlock()
	if len(tracked) != 1 {
		t.Fatalf("tracked %d, want 1", len(tracked))
	}
	if tracked[0].TaskID != task.ID || tracked[0].Status != models.StatusQueued || tracked[0].City != "Paris" {
		t.Fatalf("tracked = %+v", tracked[0])
	}
	d.Shutdown()
}

// ctxAwareRunner fails updates whose context was cancelled, like the real
// updater does when storage calls are interrupted.
func ctxAwareRunner(delay time.Duration) runnerFunc {
	return func(ctx context.Context, taskID string, req models.UpdateRequest) models.UpdateResult {
		select {
		case <-time.After(delay):
			return models.UpdateResult{Status: models.StatusDone, Outcome: models.OutcomeApplied}
		case <-ctx.Done():
			return models.UpdateResult{Status: models.StatusDone, Outcome: models.OutcomeFailed, Error: ctx.Err().Error()}
		}
	}
}

func TestDispatcher_ShutdownContextDrainsWithLiveContext(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(ctxAwareRunner(2*time.Millisecond), &recordingSink{}, 2, 20, nil)
	tasks := make([]*Task, 0, 20)
	for i := 0; i < 20; i++ {
		task, err := d.Submit(models.UpdateRequest{UserID: int64(i)})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		tasks = append(tasks, task)
	}
	d.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.ShutdownContext(ctx); err != nil {
		t.Fatalf("ShutdownContext: %v", err)
	}

	// queued work is applied, not failed
	for _, task := range tasks {
		if res, ok := task.Result(); !ok || res.Outcome != models.OutcomeApplied {
			t.Fatalf("task %s after drain: %+v, %v", task.ID, res, ok)
		}
	}
}

func TestDispatcher_ShutdownContextDeadlineCancelsRemaining(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(ctxAwareRunner(time.Hour), &recordingSink{}, 1, 5, nil)
	tasks := make([]*Task, 0, 5)
	for i := 0; i < 5; i++ {
		task, _ := d.Submit(models.UpdateRequest{UserID: int64(i)})
		tasks = append(tasks, task)
	}
	d.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.ShutdownContext(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("ShutdownContext err = %v, want deadline exceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("ShutdownContext did not give up after its deadline")
	}

	for _, task := range tasks {
		res, ok := task.Result()
		if !ok || res.Outcome != models.OutcomeFailed {
			t.Fatalf("task %s after forced stop: %+v, %v", task.ID, res, ok)
		}
	}
}
