package ports

import (
	"context"

	"github.com/littlesprouts/center-api/internal/core/domain"
)

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Record(ctx context.Context, event *domain.AuditEvent) error
}

// AuditSink accepts audit events for asynchronous recording. Enqueue must
// never block the calling request; implementations may drop events under
// backpressure.
type AuditSink interface {
	Enqueue(event domain.AuditEvent)
}
