// Package postgres provides the Postgres (Supabase) persistence for habits, entries and the outbox.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"example.com/habitboard/internal/events"
	"example.com/habitboard/internal/habits"
	"example.com/habitboard/internal/observability"
)

const (
	habitColumns = `habit_id, user_id, name, description, frequency, goal, unit, archived, created_at, updated_at`
	entryColumns = `entry_id, habit_id, user_id, value, note, logged_at, created_at`

	uniqueViolation = "23505"
)

// Repository provides Postgres-backed persistence for habits and outbox events.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger}
}

// inUserTx runs fn in a transaction with app.user_id set for the row-level security policies.
func (r *Repository) inUserTx(ctx context.Context, userID string, fn func(pgx.Tx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.user_id', $1, true)", userID); err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreateHabit implements habits.Repository.
func (r *Repository) CreateHabit(ctx context.Context, h habits.Habit) error {
	err := r.inUserTx(ctx, h.UserID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO habits (`+habitColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			h.ID, h.UserID, h.Name, h.Description, string(h.Frequency), h.Goal, h.Unit, h.Archived, h.CreatedAt, h.UpdatedAt,
		)
		return err
	})
	if isUniqueViolation(err) {
		return habits.ErrDuplicateHabit
	}
	if err != nil {
		r.logger.Error("insert habit failed", zap.String("user_id", h.UserID), zap.Error(err))
		return err
	}
	return nil
}

// GetHabit implements habits.Repository. A missing habit yields (nil, nil).
func (r *Repository) GetHabit(ctx context.Context, userID, habitID string) (*habits.Habit, error) {
	var out *habits.Habit
	err := r.inUserTx(ctx, userID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+habitColumns+` FROM habits WHERE habit_id = $1 AND user_id = $2`, habitID, userID)
		h, err := scanHabit(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		out = &h
		return nil
	})
	return out, err
}

// ListHabits implements habits.Repository.
func (r *Repository) ListHabits(ctx context.Context, userID string, includeArchived bool) ([]habits.Habit, error) {
	out := make([]habits.Habit, 0)
	err := r.inUserTx(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+habitColumns+` FROM habits
            WHERE user_id = $1 AND ($2 OR NOT archived)
            ORDER BY created_at DESC, habit_id DESC`,
			userID, includeArchived,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			h, err := scanHabit(rows)
			if err != nil {
				return err
			}
			out = append(out, h)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateHabit implements habits.Repository.
func (r *Repository) UpdateHabit(ctx context.Context, h habits.Habit) error {
	err := r.inUserTx(ctx, h.UserID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE habits SET name = $3, description = $4, frequency = $5, goal = $6, unit = $7, archived = $8, updated_at = $9
            WHERE habit_id = $1 AND user_id = $2`,
			h.ID, h.UserID, h.Name, h.Description, string(h.Frequency), h.Goal, h.Unit, h.Archived, h.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return habits.ErrHabitNotFound
		}
		return nil
	})
	if isUniqueViolation(err) {
		return habits.ErrDuplicateHabit
	}
	return err
}

// DeleteHabit implements habits.Repository. Entries go with the habit through the foreign key cascade.
func (r *Repository) DeleteHabit(ctx context.Context, userID, habitID string, event habits.Event) error {
	return r.inUserTx(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM habits WHERE habit_id = $1 AND user_id = $2`, habitID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return habits.ErrHabitNotFound
		}
		return insertOutbox(ctx, tx, "habit", event)
	})
}

// CreateEntry persists the entry and records its outbox event inside a single transaction.
func (r *Repository) CreateEntry(ctx context.Context, e habits.Entry, event habits.Event) error {
	err := r.inUserTx(ctx, e.UserID, func(tx pgx.Tx) error {
		var one int
		err := tx.QueryRow(ctx,
			`SELECT 1 FROM habits WHERE habit_id = $1 AND user_id = $2 FOR SHARE`,
			e.HabitID, e.UserID,
		).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return habits.ErrHabitNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO habit_entries (`+entryColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			e.ID, e.HabitID, e.UserID, e.Value, e.Note, e.LoggedAt, e.CreatedAt,
		); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, "habit_entry", event)
	})
	if err != nil {
		return err
	}
	observability.RecordHabitEntryLogged(e.CreatedAt)
	return nil
}

// ListEntries returns entries newest first using (logged_at, entry_id) keyset pagination.
func (r *Repository) ListEntries(ctx context.Context, userID, habitID string, cursor *habits.Cursor, limit int) ([]habits.Entry, *habits.Cursor, error) {
	if limit <= 0 {
		limit = habits.DefaultPageSize
	}
	args := []interface{}{habitID, userID, limit + 1}
	query := `SELECT ` + entryColumns + ` FROM habit_entries WHERE habit_id = $1 AND user_id = $2`
	if cursor != nil {
		query += ` AND (logged_at, entry_id) < ($4, $5::uuid)`
		args = append(args, cursor.LoggedAt, cursor.ID)
	}
	query += ` ORDER BY logged_at DESC, entry_id DESC LIMIT $3`

	results := make([]habits.Entry, 0, limit)
	err := r.inUserTx(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var e habits.Entry
			if err := rows.Scan(&e.ID, &e.HabitID, &e.UserID, &e.Value, &e.Note, &e.LoggedAt, &e.CreatedAt); err != nil {
				return err
			}
			results = append(results, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	var next *habits.Cursor
	if len(results) > limit {
		results = results[:limit]
		last := results[len(results)-1]
		next = &habits.Cursor{LoggedAt: last.LoggedAt, ID: last.ID}
	}
	return results, next, nil
}

// DeleteEntry implements habits.Repository.
func (r *Repository) DeleteEntry(ctx context.Context, userID, habitID, entryID string) error {
	return r.inUserTx(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM habit_entries WHERE entry_id = $1 AND habit_id = $2 AND user_id = $3`,
			entryID, habitID, userID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM habits WHERE habit_id = $1 AND user_id = $2)`, habitID, userID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return habits.ErrHabitNotFound
		}
		return habits.ErrEntryNotFound
	})
}

// SumEntries implements habits.Repository over the half-open interval [from, to).
func (r *Repository) SumEntries(ctx context.Context, userID, habitID string, from, to time.Time) (float64, int, error) {
	var (
		total float64
		count int
	)
	err := r.inUserTx(ctx, userID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(value), 0), COUNT(*) FROM habit_entries
            WHERE habit_id = $1 AND user_id = $2 AND logged_at >= $3 AND logged_at < $4`,
			habitID, userID, from, to,
		).Scan(&total, &count)
	})
	return total, count, err
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func insertOutbox(ctx context.Context, tx pgx.Tx, aggregateType string, event habits.Event) error {
	topic := events.TopicFor(event.EventType)
	if topic == "" {
		return fmt.Errorf("unknown event type: %s", event.EventType)
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6)`,
		aggregateType, event.AggregateID, event.EventType, topic, event.PartitionKey, []byte(event.Payload),
	)
	return err
}

func scanHabit(row pgx.Row) (habits.Habit, error) {
	var (
		h    habits.Habit
		freq string
	)
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &freq, &h.Goal, &h.Unit, &h.Archived, &h.CreatedAt, &h.UpdatedAt)
	h.Frequency = habits.Frequency(freq)
	return h, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
