package ports

import (
	"context"

	"github.com/littlesprouts/center-api/internal/core/domain"
)

// SessionStore persists server-side sessions keyed by their opaque id.
// Get must not return expired sessions; Delete is idempotent.
type SessionStore interface {
	Create(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}
