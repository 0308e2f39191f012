package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Isaac25-lgtm/navcore-platform/internal/nav"
)

// DefaultStreamMaxLen caps the audit stream; trimming is approximate
const DefaultStreamMaxLen = 100_000

// EventStream appends audit events to a Redis stream with XADD
type EventStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

var _ nav.EventSink = (*EventStream)(nil)

// NewEventStream creates a sink writing to the named stream
func NewEventStream(client *redis.Client, stream string) *EventStream {
	return &EventStream{
		client: client,
		stream: stream,
		maxLen: DefaultStreamMaxLen,
	}
}

// Emit appends one event as a stream entry
func (s *EventStream) Emit(ctx context.Context, event nav.Event) error {
	values := map[string]any{
		"type":        string(event.Type),
		"tenant_id":   event.TenantID.String(),
		"club_id":     event.ClubID.String(),
		"period_id":   event.PeriodID.String(),
		"actor_id":    event.ActorID.String(),
		"occurred_at": event.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if event.EntityID != nil {
		values["entity_id"] = event.EntityID.String()
	}
	if len(event.Data) > 0 {
		data, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal event data: %w", err)
		}
		values["data"] = string(data)
	}

	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append %s event: %w", event.Type, err)
	}

	return nil
}
