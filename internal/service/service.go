package service

import (
	"context"

	"weather_balance/internal/logger"
	"weather_balance/internal/models"
	"weather_balance/internal/repository"
	"weather_balance/internal/weather"
)

// Users exposes read/insert access to the users table.
type Users interface {
	AddUser(ctx context.Context, username string, balance int64) (int64, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	Ping(ctx context.Context) error
}

// Updates accepts balance update requests for background execution.
type Updates interface {
	Enqueue(req models.UpdateRequest) (string, error)
}

// Workers controls the background update workers.
// Stop via ShutdownContext in main() for graceful shutdown.
type Workers interface {
	Start(ctx context.Context)
	Shutdown()
	ShutdownContext(ctx context.Context) error
}

// Results exposes the outcome of queued and finished updates.
type Results interface {
	Status(taskID string) (models.UpdateResult, bool)
	Recent(limit int) []models.UpdateResult
	Subscribe() (<-chan models.UpdateResult, func())
}

// Seeder recreates the users table and fills it with starting users.
type Seeder interface {
	Seed(ctx context.Context, p SeedParams) ([]int64, error)
}

// Load replays a burst of update requests against seeded users.
type Load interface {
	Generate(ctx context.Context, userIDs []int64, p LoadParams) (int, error)
}

// Service aggregates all sub-services.
type Service struct {
	Users
	Updates
	Workers
	Results
	Seeder
	Load
}

// NewService wires the repository layer and the temperature fetcher into concrete services.
func NewService(repos *repository.Repository, fetcher weather.Fetcher, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	results := NewResultLog(opts.HistorySize, log)
	updater := NewBalanceUpdater(repos.Users, fetcher, opts.AtomicGuard, log)
	dispatcher := NewDispatcher(updater, results, opts.Workers, opts.QueueSize, log)

	return &Service{
		Users:   NewUserService(repos.Users),
		Updates: dispatcher,
		Workers: dispatcher,
		Results: results,
		Seeder:  NewSeedService(repos.Users, log),
		Load:    NewLoadGenerator(dispatcher, log),
	}
}
