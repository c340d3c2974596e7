package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"weather_balance/internal/logger"
	"weather_balance/internal/models"
	"weather_balance/internal/repository"
	"weather_balance/internal/weather"
)

// maxDelta bounds the float→int64 conversion of a temperature.
const maxDelta = 1e15

var errTemperatureOutOfRange = errors.New("temperature out of range")

// BalanceUpdater applies one weather-driven adjustment: balance += trunc(temperature),
// refused when balance - trunc(temperature) would be negative.
type BalanceUpdater struct {
	users   repository.UserStore
	fetcher weather.Fetcher
	atomic  bool
	log     *logger.Logger
}

// NewBalanceUpdater returns an updater. With atomic set the guard and the write run
// as a single conditional UPDATE; otherwise the balance read earlier is trusted.
func NewBalanceUpdater(users repository.UserStore, fetcher weather.Fetcher, atomic bool, log *logger.Logger) *BalanceUpdater {
	if log == nil {
		log = logger.Nop()
	}
	return &BalanceUpdater{users: users, fetcher: fetcher, atomic: atomic, log: log}
}

// RunUpdate never returns an error: every failure is folded into the result outcome.
func (u *BalanceUpdater) RunUpdate(ctx context.Context, taskID string, req models.UpdateRequest) models.UpdateResult {
	res := models.UpdateResult{
		TaskID: taskID,
		UserID: req.UserID,
		City:   req.City,
		Status: models.StatusDone,
	}

	balance, err := u.users.GetBalance(ctx, req.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return finish(res, models.OutcomeUserNotFound, err)
	}
	if err != nil {
		return finish(res, models.OutcomeFailed, fmt.Errorf("read balance: %w", err))
	}
	res.BalanceBefore = balance

	reading := u.fetcher.FetchTemperature(ctx, req.City)
	res.Temperature = reading.Value
	res.TemperatureSource = reading.Source

	delta, err := temperatureDelta(reading.Value)
	if err != nil {
		return finish(res, models.OutcomeFailed, err)
	}
	res.Delta = delta

	if balance-delta < 0 {
		return finish(res, models.OutcomeRejected, nil)
	}

	if u.atomic {
		applied, err := u.users.AdjustBalanceGuarded(ctx, req.UserID, delta, delta)
		if err != nil {
			return finish(res, models.OutcomeFailed, fmt.Errorf("adjust balance: %w", err))
		}
		if !applied {
			// the row changed (or vanished) between the read and the write
			u.log.Debugw("guarded_update_refused", "task_id", taskID, "user_id", req.UserID, "delta", delta)
			return finish(res, models.OutcomeRejected, nil)
		}
		return finish(res, models.OutcomeApplied, nil)
	}

	if err := u.users.AdjustBalance(ctx, req.UserID, delta); err != nil {
		return finish(res, models.OutcomeFailed, fmt.Errorf("adjust balance: %w", err))
	}
	return finish(res, models.OutcomeApplied, nil)
}

// temperatureDelta truncates toward zero: 23.9 → 23, -4.6 → -4.
func temperatureDelta(t float64) (int64, error) {
	if math.IsNaN(t) || math.Abs(t) > maxDelta {
		return 0, errTemperatureOutOfRange
	}
	return int64(math.Trunc(t)), nil
}

func finish(res models.UpdateResult, outcome string, err error) models.UpdateResult {
	res.Outcome = outcome
	if err != nil {
		res.Error = err.Error()
	}
	res.FinishedAt = time.Now().UTC()
	return res
}
