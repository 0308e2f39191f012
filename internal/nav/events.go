package nav

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Isaac25-lgtm/navcore-platform/pkg/logger"
)

// EventType names an audit-worthy occurrence
type EventType string

const (
	EventPeriodOpened         EventType = "period.opened"
	EventSubmittedForReview   EventType = "period.submitted_for_review"
	EventReturnedToDraft      EventType = "period.returned_to_draft"
	EventPeriodClosed         EventType = "period.closed"
	EventCloseBlockedMismatch EventType = "close.blocked_by_mismatch"
	EventEntryPosted          EventType = "ledger.entry_posted"
	EventEntryUpdated         EventType = "ledger.entry_updated"
	EventEntryDeleted         EventType = "ledger.entry_deleted"
)

// Event is emitted for an external audit collaborator to persist
type Event struct {
	Type       EventType
	TenantID   uuid.UUID
	ClubID     uuid.UUID
	PeriodID   uuid.UUID
	ActorID    uuid.UUID
	EntityID   *uuid.UUID
	OccurredAt time.Time
	Data       map[string]string
}

// LogSink writes events to the structured log
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink creates an event sink backed by the logger
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log.WithField("component", "audit")}
}

// Emit logs the event at info level
func (s *LogSink) Emit(ctx context.Context, event Event) error {
	args := []any{
		"event", string(event.Type),
		"tenant_id", event.TenantID.String(),
		"club_id", event.ClubID.String(),
		"period_id", event.PeriodID.String(),
		"actor_id", event.ActorID.String(),
	}
	if event.EntityID != nil {
		args = append(args, "entity_id", event.EntityID.String())
	}
	for k, v := range event.Data {
		args = append(args, k, v)
	}
	s.logger.WithContext(ctx).Info("audit event", args...)
	return nil
}

// MultiSink fans an event out to several sinks and returns the first error
type MultiSink []EventSink

// Emit delivers the event to every sink even when one fails
func (m MultiSink) Emit(ctx context.Context, event Event) error {
	var firstErr error
	for _, sink := range m {
		if err := sink.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
