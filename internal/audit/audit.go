// Package audit writes the claim audit trail. Every phase transition and the
// terminal decision must produce a durable event; it is the only record a
// reviewer has when a claim is escalated.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/openclaims/kite/internal/domain"
)

// Sink appends audit events. Events are published to the bus best-effort and
// persisted to the repository; persistence failures for CRITICAL events
// propagate instead of being swallowed.
type Sink struct {
	repo   domain.Repository
	bus    domain.EventBus
	logger *slog.Logger
}

// NewSink creates an audit sink. The bus may be nil.
func NewSink(repo domain.Repository, bus domain.EventBus, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
}

// Record appends one event. Returns an error only when a CRITICAL event could
// not be durably persisted.
func (s *Sink) Record(ctx context.Context, event *domain.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	s.publish(ctx, event)

	if s.repo == nil {
		if event.Severity == string(domain.SeverityCritical) {
			return fmt.Errorf("no repository to persist critical audit event %s", event.ID)
		}
		return nil
	}

	if err := s.repo.SaveAuditEvent(ctx, event.TenantID, event); err != nil {
		if event.Severity == string(domain.SeverityCritical) {
			return fmt.Errorf("failed to persist critical audit event: %w", err)
		}
		s.logger.Error("failed to persist audit event",
			"event_id", event.ID, "claim_id", event.ClaimID, "error", err)
	}
	return nil
}

// Trail returns the persisted audit trail for a claim.
func (s *Sink) Trail(ctx context.Context, tenantID, claimID string) ([]*domain.AuditEvent, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("no repository configured")
	}
	return s.repo.ListAuditEvents(ctx, tenantID, claimID)
}

func (s *Sink) publish(ctx context.Context, event *domain.AuditEvent) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal audit event", "event_id", event.ID, "error", err)
		return
	}
	if err := s.bus.Publish(ctx, event.TenantID, domain.TopicAudit, payload); err != nil {
		s.logger.Warn("failed to publish audit event", "event_id", event.ID, "error", err)
	}
}
