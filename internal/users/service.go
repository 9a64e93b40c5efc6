package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/db"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var (
	// ErrUserNotFound is returned when no user matches the lookup
	ErrUserNotFound = apperrors.NotFound("User not found")

	// ErrUserTaken is returned when the email or nick is already registered
	ErrUserTaken = apperrors.BadRequest("Email or nick is already taken")
)

// Service provides user-related operations
type Service struct {
	db *sql.DB
}

// NewService creates a new user service
func NewService(sqlDB *sql.DB) *Service {
	return &Service{db: sqlDB}
}

// Create inserts a new user and returns the caller view of it
func (s *Service) Create(ctx context.Context, u NewUser) (*Me, error) {
	var me Me
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, nick, password_hash, name, surname)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING user_id, name, surname, nick, email, created_at
	`, u.Email, u.Nick, u.PasswordHash, u.Name, u.Surname).Scan(
		&me.ID,
		&me.Name,
		&me.Surname,
		&me.Nick,
		&me.Email,
		&me.CreatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrUserTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &me, nil
}

// FindCredentials looks a user up by email when login contains '@', by nick otherwise
func (s *Service) FindCredentials(ctx context.Context, login string) (*Credentials, error) {
	column := "nick"
	if strings.Contains(login, "@") {
		column = "email"
	}

	var c Credentials
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, name, surname, nick, email, created_at, password_hash
		FROM users
		WHERE `+column+` = $1
	`, login).Scan(
		&c.ID,
		&c.Name,
		&c.Surname,
		&c.Nick,
		&c.Email,
		&c.CreatedAt,
		&c.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return &c, nil
}

// GetMe returns the full profile of userID
func (s *Service) GetMe(ctx context.Context, userID int64) (*Me, error) {
	var me Me
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, name, surname, nick, email, created_at
		FROM users
		WHERE user_id = $1
	`, userID).Scan(&me.ID, &me.Name, &me.Surname, &me.Nick, &me.Email, &me.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &me, nil
}

// Get returns the public profile of userID
func (s *Service) Get(ctx context.Context, userID int64) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, name, surname, nick
		FROM users
		WHERE user_id = $1
	`, userID).Scan(&u.ID, &u.Name, &u.Surname, &u.Nick)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// List pages through public profiles ordered by id
func (s *Service) List(ctx context.Context, limit, offset int) ([]User, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, name, surname, nick
		FROM users
		ORDER BY user_id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return ScanUsers(rows)
}

// SetPasswordHash replaces the stored hash for the user with email
func (s *Service) SetPasswordHash(ctx context.Context, email, hash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2 WHERE email = $1
	`, email, hash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ScanUsers reads (user_id, name, surname, nick) rows and closes rows.
func ScanUsers(rows *sql.Rows) ([]User, error) {
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Surname, &u.Nick); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return out, nil
}
