package service

import (
	"fmt"
	"testing"
	"time"

	"weather_balance/internal/models"
)

func queuedResult(id string) models.UpdateResult {
	return models.UpdateResult{TaskID: id, Status: models.StatusQueued}
}

func doneResult(id, outcome string) models.UpdateResult {
	return models.UpdateResult{TaskID: id, Status: models.StatusDone, Outcome: outcome}
}

func TestResultLog_TrackThenRecord(t *testing.T) {
	t.Parallel()

	l := NewResultLog(10, nil)
	l.Track(queuedResult("a"))

	got, ok := l.Status("a")
	if !ok || got.Status != models.StatusQueued {
		t.Fatalf("after Track: %+v, %v", got, ok)
	}

	l.Record(doneResult("a", models.OutcomeApplied))
	got, ok = l.Status("a")
	if !ok || got.Status != models.StatusDone || got.Outcome != models.OutcomeApplied {
		t.Fatalf("after Record: %+v, %v", got, ok)
	}
	if n := len(l.Recent(0)); n != 1 {
		t.Fatalf("Recent len = %d, want 1 (Record must not duplicate)", n)
	}
}

func TestResultLog_LateTrackKeepsFinished(t *testing.T) {
	t.Parallel()

	l := NewResultLog(10, nil)
	l.Record(doneResult("a", models.OutcomeRejected))
	l.Track(queuedResult("a"))

	got, _ := l.Status("a")
	if got.Status != models.StatusDone {
		t.Fatalf("Track overwrote a finished result: %+v", got)
	}
}

func TestResultLog_UnknownTask(t *testing.T) {
	t.Parallel()

	if _, ok := NewResultLog(1, nil).Status("missing"); ok {
		t.Fatalf("unknown task reported as present")
	}
}

func TestResultLog_EvictsOldest(t *testing.T) {
	t.Parallel()

	l := NewResultLog(3, nil)
	for i := 0; i < 5; i++ {
		l.Record(doneResult(fmt.Sprintf("t%d", i), models.OutcomeApplied))
	}

	for _, id := range []string{"t0", "t1"} {
		if _, ok := l.Status(id); ok {
			t.Fatalf("%s should have been evicted", id)
		}
	}
	recent := l.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("Recent len = %d, want 3", len(recent))
	}
	want := []string{"t4", "t3", "t2"}
	for i, id := range want {
		if recent[i].TaskID != id {
			t.Fatalf("Recent[%d] = %s, want %s", i, recent[i].TaskID, id)
		}
	}
}

func TestResultLog_RecentLimit(t *testing.T) {
	t.Parallel()

	l := NewResultLog(10, nil)
	for i := 0; i < 4; i++ {
		l.Track(queuedResult(fmt.Sprintf("t%d", i)))
	}
	recent := l.Recent(2)
	if len(recent) != 2 || recent[0].TaskID != "t3" || recent[1].TaskID != "t2" {
		t.Fatalf("Recent(2) = %+v", recent)
	}
	if n := len(l.Recent(100)); n != 4 {
		t.Fatalf("Recent(100) len = %d, want 4", n)
	}
}

func TestResultLog_Subscribe(t *testing.T) {
	t.Parallel()

	l := NewResultLog(10, nil)
	ch, cancel := l.Subscribe()

	l.Track(queuedResult("q")) // queued results are not broadcast
	l.Record(doneResult("a", models.OutcomeApplied))

	select {
	case res := <-ch:
		if res.TaskID != "a" {
			t.Fatalf("received %+v, want task a", res)
		}
	case <-time.After(time.Second):
		t.Fatalf("no result delivered")
	}

	cancel()
	cancel() // idempotent
	if _, open := <-ch; open {
		t.Fatalf("channel still open after cancel")
	}

	// recording after unsubscribe must not panic on the closed channel
	l.Record(doneResult("b", models.OutcomeApplied))
}

func TestResultLog_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	l := NewResultLog(1000, nil)
	_, cancel := l.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			l.Record(doneResult(fmt.Sprintf("t%d", i), models.OutcomeApplied))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Record blocked on a subscriber that never reads")
	}
}
