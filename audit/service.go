// audit/service.go
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	logger "github.com/accesskit/gatekeeper/api/logging"
)

type Service interface {
	// Log writes an entry and reports indexing failures to the caller.
	Log(ctx context.Context, entry Entry) error

	// Record is the fire-and-forget variant used on the decision path. A
	// failed write is logged and discarded so that the authorization
	// decision never depends on audit durability.
	Record(ctx context.Context, entry Entry)

	Query(ctx context.Context, filter Filter, page Pagination) ([]Entry, error)

	// FindSuspiciousActivity returns actors whose denied attempts within
	// the window exceed the threshold, grouped by resource type.
	FindSuspiciousActivity(ctx context.Context, windowDays, denialThreshold int) ([]ActorActivity, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Log(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Severity == "" {
		entry.Severity = SeverityInfo
	}
	return s.repo.Index(ctx, entry)
}

func (s *service) Record(ctx context.Context, entry Entry) {
	if err := s.Log(ctx, entry); err != nil {
		logger.Error("Failed to persist audit entry",
			zap.Error(err),
			zap.String("kind", entry.Kind),
			zap.String("actorID", entry.ActorID))
	}
}

func (s *service) Query(ctx context.Context, filter Filter, page Pagination) ([]Entry, error) {
	return s.repo.Search(ctx, filter, page)
}

func (s *service) FindSuspiciousActivity(ctx context.Context, windowDays, denialThreshold int) ([]ActorActivity, error) {
	return s.repo.AggregateDenials(ctx, windowDays, denialThreshold)
}
