package service

import (
	"sync"

	"weather_balance/internal/logger"
	"weather_balance/internal/metrics"
	"weather_balance/internal/models"
)

const subscriberBuffer = 64

// ResultLog keeps a bounded, insertion-ordered history of update results
// and fans finished results out to subscribers.
type ResultLog struct {
	mu       sync.RWMutex
	byID     map[string]models.UpdateResult
	order    []string // oldest first
	capacity int

	subs    map[int]chan models.UpdateResult
	nextSub int

	log *logger.Logger
}

func NewResultLog(capacity int, log *logger.Logger) *ResultLog {
	if capacity <= 0 {
		capacity = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ResultLog{
		byID:     make(map[string]models.UpdateResult, capacity),
		capacity: capacity,
		subs:     make(map[int]chan models.UpdateResult),
		log:      log,
	}
}

// Track registers a queued task. A task that already finished is left untouched.
func (l *ResultLog) Track(res models.UpdateResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byID[res.TaskID]; ok {
		return
	}
	l.insertLocked(res)
}

// Record stores a finished result, logs it, counts it and notifies subscribers.
func (l *ResultLog) Record(res models.UpdateResult) {
	metrics.RecordUpdate(res.Outcome)

	fields := []interface{}{
		"task_id", res.TaskID,
		"user_id", res.UserID,
		"city", res.City,
		"outcome", res.Outcome,
		"temperature", res.Temperature,
		"temperature_source", res.TemperatureSource,
		"delta", res.Delta,
		"balance_before", res.BalanceBefore,
	}
	switch res.Outcome {
	case models.OutcomeFailed, models.OutcomeUserNotFound:
		l.log.Errorw("balance_update_failed", append(fields, "error", res.Error)...)
	default:
		l.log.Infow("balance_update_finished", fields...)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byID[res.TaskID]; ok {
		l.byID[res.TaskID] = res
	} else {
		l.insertLocked(res)
	}
	for _, ch := range l.subs {
		select {
		case ch <- res:
		default:
			// slow subscriber, drop
		}
	}
}

func (l *ResultLog) insertLocked(res models.UpdateResult) {
	l.byID[res.TaskID] = res
	l.order = append(l.order, res.TaskID)
	for len(l.order) > l.capacity {
		delete(l.byID, l.order[0])
		l.order = l.order[1:]
	}
}

func (l *ResultLog) Status(taskID string) (models.UpdateResult, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	res, ok := l.byID[taskID]
	return res, ok
}

// Recent returns up to limit results, newest first. limit <= 0 returns everything kept.
func (l *ResultLog) Recent(limit int) []models.UpdateResult {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := len(l.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.UpdateResult, 0, n)
	for i := len(l.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.byID[l.order[i]])
	}
	return out
}

// Subscribe returns a channel of finished results and a func that unsubscribes and closes it.
func (l *ResultLog) Subscribe() (<-chan models.UpdateResult, func()) {
	ch := make(chan models.UpdateResult, subscriberBuffer)

	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = ch
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
			close(ch)
		})
	}
}
