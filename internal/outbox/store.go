package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const maxErrorLength = 1024

// PostgresStore reads the outbox table written by the habits repository.
type PostgresStore struct {
	pool         *pgxpool.Pool
	claimTimeout time.Duration
}

// NewPostgresStore constructs a PostgresStore. Claimed rows that are neither published nor
// failed within claimTimeout become claimable again.
func NewPostgresStore(pool *pgxpool.Pool, claimTimeout time.Duration) *PostgresStore {
	if claimTimeout <= 0 {
		claimTimeout = time.Minute
	}
	return &PostgresStore{pool: pool, claimTimeout: claimTimeout}
}

// Claim locks up to limit unpublished rows with FOR UPDATE SKIP LOCKED and stamps claimed_at.
func (s *PostgresStore) Claim(ctx context.Context, limit int) (msgs []Message, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const query = `SELECT event_id, aggregate_type, aggregate_id, event_type, topic, partition_key, payload, attempts
        FROM outbox
        WHERE published_at IS NULL
          AND (claimed_at IS NULL OR claimed_at < NOW() - make_interval(secs => $2))
        ORDER BY event_id
        LIMIT $1
        FOR UPDATE SKIP LOCKED`

	rows, err := tx.Query(ctx, query, limit, s.claimTimeout.Seconds())
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, limit)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.EventID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.Topic, &msg.PartitionKey, &msg.Payload, &msg.Attempts); err != nil {
			rows.Close()
			return nil, err
		}
		msgs = append(msgs, msg)
		ids = append(ids, msg.EventID)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		tx.Rollback(ctx)
		return nil, nil
	}
	if _, err = tx.Exec(ctx, `UPDATE outbox SET claimed_at = NOW() WHERE event_id = ANY($1)`, ids); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkPublished stamps published_at.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET published_at = NOW(), last_error = NULL WHERE event_id = ANY($1)`, ids)
	return err
}

// MarkFailed counts the attempt, stores the error and releases the claim for the next poll.
func (s *PostgresStore) MarkFailed(ctx context.Context, ids []int64, reason string) error {
	if len(reason) > maxErrorLength {
		reason = reason[:maxErrorLength]
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE outbox SET attempts = attempts + 1, last_error = $2, claimed_at = NULL WHERE event_id = ANY($1)`,
		ids, reason,
	)
	return err
}
