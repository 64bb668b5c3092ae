package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepository implements port.UserRepository.
type UserRepository struct {
	db dbtx
}

func (r *UserRepository) Add(ctx context.Context, u domain.User) (*domain.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.one(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.one(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return ok, nil
}

func (r *UserRepository) one(ctx context.Context, sql string, args ...any) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, sql, args...).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}
