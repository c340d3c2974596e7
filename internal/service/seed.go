package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"golang.org/x/time/rate"

	"weather_balance/internal/logger"
	"weather_balance/internal/models"
	"weather_balance/internal/repository"
)

var (
	errNoUsers  = errors.New("load generator: no user ids")
	errNoCities = errors.New("load generator: no cities")
)

type SeedService struct {
	users repository.UserStore
	log   *logger.Logger
}

func NewSeedService(users repository.UserStore, log *logger.Logger) *SeedService {
	if log == nil {
		log = logger.Nop()
	}
	return &SeedService{users: users, log: log}
}

// Seed recreates the schema and inserts user1..userN, user i holding
// BaseBalance + i*BalanceStep. Ids are returned in insertion order.
func (s *SeedService) Seed(ctx context.Context, p SeedParams) ([]int64, error) {
	if err := s.users.CreateSchema(ctx); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	ids := make([]int64, 0, p.Users)
	for i := 1; i <= p.Users; i++ {
		name := fmt.Sprintf("user%d", i)
		balance := p.BaseBalance + int64(i)*p.BalanceStep
		id, err := s.users.AddUser(ctx, name, balance)
		if err != nil {
			return ids, fmt.Errorf("add %s: %w", name, err)
		}
		ids = append(ids, id)
	}
	s.log.Infow("users_seeded", "count", len(ids))
	return ids, nil
}

// Submitter is the part of Dispatcher the load generator needs.
type Submitter interface {
	SubmitWait(ctx context.Context, req models.UpdateRequest) (*Task, error)
}

// LoadGenerator submits a paced stream of updates, cycling through user ids.
type LoadGenerator struct {
	dispatch Submitter
	pick     func(n int) int
	log      *logger.Logger
}

func NewLoadGenerator(dispatch Submitter, log *logger.Logger) *LoadGenerator {
	if log == nil {
		log = logger.Nop()
	}
	return &LoadGenerator{dispatch: dispatch, pick: rand.Intn, log: log}
}

// Generate returns how many requests were accepted before it finished or stopped.
func (g *LoadGenerator) Generate(ctx context.Context, userIDs []int64, p LoadParams) (int, error) {
	if p.Requests <= 0 {
		return 0, nil
	}
	if len(userIDs) == 0 {
		return 0, errNoUsers
	}
	if len(p.Cities) == 0 {
		return 0, errNoCities
	}

	limit := rate.Inf
	if p.Interval > 0 {
		limit = rate.Every(p.Interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	g.log.Infow("load_started", "requests", p.Requests, "interval", p.Interval.String(), "users", len(userIDs))
	for i := 0; i < p.Requests; i++ {
		if err := limiter.Wait(ctx); err != nil {
			g.log.Warnw("load_interrupted", "submitted", i, "error", err)
			return i, err
		}
		req := models.UpdateRequest{
			UserID: userIDs[i%len(userIDs)],
			City:   p.Cities[g.pick(len(p.Cities))],
		}
		if _, err := g.dispatch.SubmitWait(ctx, req); err != nil {
			g.log.Warnw("load_interrupted", "submitted", i, "error", err)
			return i, err
		}
	}
	g.log.Infow("load_finished", "submitted", p.Requests)
	return p.Requests, nil
}
