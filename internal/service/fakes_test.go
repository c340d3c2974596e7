package service

import (
	"context"
	"sync"

	"weather_balance/internal/models"
	"weather_balance/internal/repository"
)

// fakeUserStore is an in-memory repository.UserStore.
type fakeUserStore struct {
	mu       sync.Mutex
	balances map[int64]int64
	nextID   int64

	getErr    error
	adjustErr error
	refuse    bool // AdjustBalanceGuarded reports no row updated

	guardedCalls int
	plainCalls   int
}

func newFakeUserStore(balances map[int64]int64) *fakeUserStore {
	if balances == nil {
		balances = map[int64]int64{}
	}
	return &fakeUserStore{balances: balances}
}

func (f *fakeUserStore) CreateSchema(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances = map[int64]int64{}
	f.nextID = 0
	return nil
}

func (f *fakeUserStore) AddUser(ctx context.Context, username string, balance int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.balances[f.nextID] = balance
	return f.nextID, nil
}

func (f *fakeUserStore) GetBalance(ctx context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return 0, f.getErr
	}
	b, ok := f.balances[userID]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	return b, nil
}

func (f *fakeUserStore) AdjustBalance(ctx context.Context, userID int64, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plainCalls++
	if f.adjustErr != nil {
		return f.adjustErr
	}
	if _, ok := f.balances[userID]; ok {
		f.balances[userID] += delta
	}
	return nil
}

func (f *fakeUserStore) AdjustBalanceGuarded(ctx context.Context, userID int64, delta, floor int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guardedCalls++
	if f.adjustErr != nil {
		return false, f.adjustErr
	}
	b, ok := f.balances[userID]
	if !ok || f.refuse || b-floor < 0 {
		return false, nil
	}
	f.balances[userID] = b + delta
	return true, nil
}

func (f *fakeUserStore) ListUsers(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.balances))
	for id, b := range f.balances {
		out = append(out, models.User{ID: id, Balance: b})
	}
	return out, nil
}

func (f *fakeUserStore) Ping(ctx context.Context) error { return nil }

func (f *fakeUserStore) balance(id int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[id]
}

// stubFetcher always returns the same reading.
type stubFetcher struct {
	reading models.TemperatureReading
}

func (s stubFetcher) FetchTemperature(ctx context.Context, city string) models.TemperatureReading {
	return s.reading
}

func live(v float64) stubFetcher {
	return stubFetcher{reading: models.TemperatureReading{Value: v, Source: models.SourceLive}}
}

// runnerFunc adapts a function to Runner.
type runnerFunc func(ctx context.Context, taskID string, req models.UpdateRequest) models.UpdateResult

func (f runnerFunc) RunUpdate(ctx context.Context, taskID string, req models.UpdateRequest) models.UpdateResult {
	return f(ctx, taskID, req)
}

func appliedRunner() runnerFunc {
	return func(ctx context.Context, taskID string, req models.UpdateRequest) models.UpdateResult {
		return models.UpdateResult{TaskID: taskID, UserID: req.UserID, City: req.City, Status: models.StatusDone, Outcome: models.OutcomeApplied}
	}
}

// recordingSink is a ResultSink that remembers every call.
type recordingSink struct {
	mu      sync.Mutex
	tracked []models.UpdateResult
	records []models.UpdateResult
}

func (s *recordingSink) Track(res models.UpdateResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked = append(s.tracked, res)
}

func (s *recordingSink) Record(res models.UpdateResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, res)
}

func (s *recordingSink) recorded() []models.UpdateResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.UpdateResult(nil), s.records...)
}
