package consumer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EventLogHandler appends every consumed event to the event_log audit table.
// Redelivered records are ignored through the (topic, partition, record_offset) key.
type EventLogHandler struct {
	db execer
}

// NewEventLogHandler constructs a handler backed by the provided pool.
func NewEventLogHandler(pool *pgxpool.Pool) *EventLogHandler {
	return &EventLogHandler{db: pool}
}

// Handle stores the event payload.
func (h *EventLogHandler) Handle(ctx context.Context, msg Message) error {
	var producedAt *time.Time
	if !msg.Timestamp.IsZero() {
		ts := msg.Timestamp.UTC()
		producedAt = &ts
	}
	_, err := h.db.Exec(ctx,
		`INSERT INTO event_log (event_type, event_key, topic, partition, record_offset, payload, produced_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		msg.EventType,
		msg.Key,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		[]byte(msg.Payload),
		producedAt,
	)
	return err
}
