package ports

import (
	"context"

	"github.com/littlesprouts/center-api/internal/core/domain"
)

// UserRepository defines the persistence interface for user accounts.
// Backends must return domain.ErrUserNotFound for missing records and
// domain.ErrUsernameTaken / domain.ErrEmailTaken on uniqueness violations.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}
