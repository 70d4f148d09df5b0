// Package users is the account store backing the login gate. Passwords are
// bcrypt hashes; the table is the only relational state this service owns.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the cost the account base was created with.
const bcryptCost = 12

// ErrNotFound is returned when no user matches the query.
var ErrNotFound = errors.New("users: not found")

// ErrInvalidCredentials is returned when the password does not match.
var ErrInvalidCredentials = errors.New("users: invalid credentials")

// ErrUsernameTaken is returned when creating a duplicate username.
var ErrUsernameTaken = errors.New("users: username already exists")

// User is one account row, password hash excluded.
type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store performs user table queries.
type Store struct {
	db DB
}

// DB is the subset of pgx the store needs; satisfied by *pgxpool.Pool.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NewStore wraps a pgx pool (or anything with the same query surface).
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Authenticate verifies a username/password pair and returns the account.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, username, password, COALESCE(email, ''), created_at FROM users WHERE username = $1`,
		username)
	var u User
	var hash string
	if err := row.Scan(&u.ID, &u.Username, &hash, &u.Email, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("users: lookup: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// Create inserts a new account with a freshly hashed password.
func (s *Store) Create(ctx context.Context, username, password, email string) (*User, error) {
	var exists int
	row := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE username = $1`, username)
	if err := row.Scan(&exists); err != nil {
		return nil, fmt.Errorf("users: check username: %w", err)
	}
	if exists > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}

	var emailArg any
	if email != "" {
		emailArg = email
	}
	row = s.db.QueryRow(ctx,
		`INSERT INTO users (username, password, email) VALUES ($1, $2, $3)
		 RETURNING id, username, COALESCE(email, ''), created_at`,
		username, string(hash), emailArg)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("users: insert: %w", err)
	}
	return &u, nil
}

// List returns all accounts, newest first.
func (s *Store) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, username, COALESCE(email, ''), created_at FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("users: scan: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Delete removes an account by id.
func (s *Store) Delete(ctx context.Context, id int) (*User, error) {
	row := s.db.QueryRow(ctx,
		`DELETE FROM users WHERE id = $1 RETURNING id, username, COALESCE(email, ''), created_at`, id)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: delete: %w", err)
	}
	return &u, nil
}
