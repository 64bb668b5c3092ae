package memory

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"

	"github.com/google/uuid"
)

// UserRepository implements port.UserRepository.
type UserRepository struct {
	rows *table[domain.User]
}

func NewUserRepository() *UserRepository {
	return &UserRepository{rows: newTable[domain.User]()}
}

func (r *UserRepository) Add(_ context.Context, user domain.User) (*domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.rows.put(user.ID, user)
	return &user, nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.rows.get(id)
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := r.rows.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepository) Exists(_ context.Context, id string) (bool, error) {
	_, ok := r.rows.get(id)
	return ok, nil
}
