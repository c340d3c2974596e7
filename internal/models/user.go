package models

// User is a single row of the users table.
type User struct {
	ID       int64  `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	Balance  int64  `json:"balance" db:"balance"`
}
