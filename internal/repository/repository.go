package repository

import (
	"context"
	"database/sql"
	"errors"

	"weather_balance/internal/models"
	"weather_balance/internal/repository/db"

	"github.com/jmoiron/sqlx"
)

// ErrUserNotFound is returned by reads for an id with no row.
var ErrUserNotFound = errors.New("user not found")

// UserStore is the persistence contract for users and their balances.
type UserStore interface {
	CreateSchema(ctx context.Context) error
	AddUser(ctx context.Context, username string, balance int64) (int64, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)
	AdjustBalance(ctx context.Context, userID int64, delta int64) error
	AdjustBalanceGuarded(ctx context.Context, userID int64, delta, floor int64) (bool, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	Ping(ctx context.Context) error
}

type Repository struct {
	Users UserStore
}

func NewRepository(conn *sql.DB) *Repository {
	return &Repository{
		Users: NewUserSQLite(sqlx.NewDb(conn, db.DriverName)),
	}
}
