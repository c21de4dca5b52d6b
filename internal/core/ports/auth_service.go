package ports

import (
	"context"

	"github.com/littlesprouts/center-api/internal/core/domain"
)

// RegisterInput carries the fields accepted at signup. Any role supplied by
// the caller is ignored: new accounts are always created as parents.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
}

// UpdateProfileInput carries the self-editable profile fields. Empty fields
// are left unchanged.
type UpdateProfileInput struct {
	Email     string
	FirstName string
	LastName  string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, *domain.Session, error)
	Login(ctx context.Context, identifier, password string) (*domain.User, *domain.Session, error)
	Logout(ctx context.Context, sessionID string) error
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error)
	GenerateQR(ctx context.Context, userID string) (string, error)
	DisableQR(ctx context.Context, userID string) error
	QRLogin(ctx context.Context, userID, token string) (*domain.User, *domain.Session, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	ChangeRole(ctx context.Context, userID, role string) (*domain.User, error)
}
