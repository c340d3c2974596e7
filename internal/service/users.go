package service

import (
	"context"

	"weather_balance/internal/models"
	"weather_balance/internal/repository"
)

type UserService struct {
	store repository.UserStore
}

func NewUserService(store repository.UserStore) *UserService {
	return &UserService{store: store}
}

func (s *UserService) AddUser(ctx context.Context, username string, balance int64) (int64, error) {
	return s.store.AddUser(ctx, username, balance)
}

// GetBalance returns repository.ErrUserNotFound for unknown ids.
func (s *UserService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return s.store.GetBalance(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *UserService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
