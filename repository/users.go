package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"notejournal/db"
	"notejournal/models"
)

type Users struct {
	db *sql.DB
}

func NewUsers(conn *sql.DB) *Users {
	return &Users{db: conn}
}

// Create inserts a user. A taken username is reported as a ValidationError on
// the username field.
func (u *Users) Create(ctx context.Context, username, email, passwordHash string) (models.User, error) {
	createdAt := time.Now().UTC().Truncate(time.Second)
	var emailArg any
	if email != "" {
		emailArg = email
	}
	res, err := u.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		username, emailArg, passwordHash, createdAt)
	if db.IsUniqueViolation(err) {
		return models.User{}, models.NewValidationError("username", "username already exists")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return models.User{ID: id, Username: username, Email: email, PasswordHash: passwordHash, CreatedAt: createdAt}, nil
}

func (u *Users) Exists(ctx context.Context, username string) (bool, error) {
	var count int
	if err := u.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return count > 0, nil
}

func (u *Users) GetByUsername(ctx context.Context, username string) (models.User, error) {
	return u.getOne(ctx, "username = ?", username)
}

func (u *Users) GetByID(ctx context.Context, id int64) (models.User, error) {
	return u.getOne(ctx, "id = ?", id)
}

func (u *Users) getOne(ctx context.Context, where string, arg any) (models.User, error) {
	var (
		user  models.User
		email sql.NullString
	)
	err := u.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE "+where, arg).
		Scan(&user.ID, &user.Username, &email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user: %w", models.ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	user.Email = email.String
	return user, nil
}
