package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"weather_balance/internal/models"
	"weather_balance/internal/repository/db"

	"github.com/jmoiron/sqlx"
)

type UserSQLite struct {
	db *sqlx.DB
}

func NewUserSQLite(db *sqlx.DB) *UserSQLite {
	return &UserSQLite{db: db}
}

// Ensure implementation of UserStore interface at compile time.
var _ UserStore = (*UserSQLite)(nil)

const (
	insertUserSQL    = `INSERT INTO users (username, balance) VALUES (?, ?)`
	selectBalanceSQL = `SELECT balance FROM users WHERE id = ?`
	adjustBalanceSQL = `UPDATE users SET balance = balance + ? WHERE id = ?`
	selectUsersSQL   = `SELECT id, username, balance FROM users ORDER BY id`

	// The guard subtracts floor while the write adds delta.
	adjustBalanceGuardedSQL = `UPDATE users SET balance = balance + ? WHERE id = ? AND balance - ? >= 0`
)

// CreateSchema drops and recreates the users table.
func (r *UserSQLite) CreateSchema(ctx context.Context) error {
	return db.ResetSchema(ctx, r.db.DB)
}

// AddUser inserts a new user and returns the id assigned by the store.
func (r *UserSQLite) AddUser(ctx context.Context, username string, balance int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertUserSQL, username, balance)
	if err != nil {
		return 0, fmt.Errorf("insert user %q: %w", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for user %q: %w", username, err)
	}
	return id, nil
}

// GetBalance returns the current balance or ErrUserNotFound.
func (r *UserSQLite) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	if err := r.db.GetContext(ctx, &balance, selectBalanceSQL, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("select balance of user %d: %w", userID, err)
	}
	return balance, nil
}

// AdjustBalance adds delta to the balance. Unknown ids are silently ignored.
func (r *UserSQLite) AdjustBalance(ctx context.Context, userID int64, delta int64) error {
	if _, err := r.db.ExecContext(ctx, adjustBalanceSQL, delta, userID); err != nil {
		return fmt.Errorf("adjust balance of user %d: %w", userID, err)
	}
	return nil
}

// AdjustBalanceGuarded adds delta only if balance - floor >= 0 at the moment of the write.
// It reports whether the row was updated.
func (r *UserSQLite) AdjustBalanceGuarded(ctx context.Context, userID int64, delta, floor int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, adjustBalanceGuardedSQL, delta, userID, floor)
	if err != nil {
		return false, fmt.Errorf("guarded adjust balance of user %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for user %d: %w", userID, err)
	}
	return n == 1, nil
}

// ListUsers returns all users ordered by id.
func (r *UserSQLite) ListUsers(ctx context.Context) ([]models.User, error) {
	users := make([]models.User, 0, 16)
	if err := r.db.SelectContext(ctx, &users, selectUsersSQL); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	return users, nil
}

func (r *UserSQLite) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
