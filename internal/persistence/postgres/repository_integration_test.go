//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/habitboard/internal/events"
	"example.com/habitboard/internal/habits"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("habitboard"),
		postgrescontainer.WithUsername("habitboard"),
		postgrescontainer.WithPassword("habitboard"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applied, err := Migrate(ctx, pool, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"0001_init"}, applied)

	again, err := Migrate(ctx, pool, nil)
	require.NoError(t, err)
	require.Empty(t, again)

	return pool
}

func TestRepositoryHabitLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t)

	repo := NewRepository(pool, nil)
	svc := habits.NewService(repo)

	userID := uuid.NewString()
	habit, err := svc.CreateHabit(ctx, habits.CreateHabitInput{UserID: userID, Name: "Pushups", Frequency: "daily", Goal: 50, Unit: "reps"})
	require.NoError(t, err)

	_, err = svc.CreateHabit(ctx, habits.CreateHabitInput{UserID: userID, Name: "pushups", Goal: 10})
	require.ErrorIs(t, err, habits.ErrDuplicateHabit)

	stored, err := svc.GetHabit(ctx, userID, habit.ID)
	require.NoError(t, err)
	require.Equal(t, habits.FrequencyDaily, stored.Frequency)

	_, err = svc.GetHabit(ctx, uuid.NewString(), habit.ID)
	require.ErrorIs(t, err, habits.ErrHabitNotFound)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		_, err := svc.LogEntry(ctx, habits.LogEntryInput{
			UserID:   userID,
			HabitID:  habit.ID,
			Value:    10,
			LoggedAt: base.Add(-time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	page, next, err := svc.ListEntries(ctx, userID, habit.ID, nil, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.NotNil(t, next)
	require.True(t, page[0].LoggedAt.Equal(base))

	rest, next, err := svc.ListEntries(ctx, userID, habit.ID, next, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	require.Nil(t, next)

	total, count, err := repo.SumEntries(ctx, userID, habit.ID, base.Add(-2*time.Minute), base.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, 30.0, total)
	require.Equal(t, 3, count)

	require.NoError(t, svc.DeleteEntry(ctx, userID, habit.ID, rest[0].ID))
	require.ErrorIs(t, svc.DeleteEntry(ctx, userID, habit.ID, rest[0].ID), habits.ErrEntryNotFound)

	var pending int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox WHERE event_type = $1 AND topic = $2 AND published_at IS NULL`,
		events.TypeHabitEntryLogged, events.TopicHabitEvents,
	).Scan(&pending))
	require.Equal(t, 5, pending)

	require.NoError(t, svc.DeleteHabit(ctx, userID, habit.ID))
	require.ErrorIs(t, svc.DeleteHabit(ctx, userID, habit.ID), habits.ErrHabitNotFound)

	var remaining int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM habit_entries WHERE habit_id = $1`, habit.ID).Scan(&remaining))
	require.Zero(t, remaining)
}

func TestRepositoryArchivedHabitsFreeTheirName(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t)
	svc := habits.NewService(NewRepository(pool, nil))

	userID := uuid.NewString()
	first, err := svc.CreateHabit(ctx, habits.CreateHabitInput{UserID: userID, Name: "Read", Frequency: "weekly", Goal: 3})
	require.NoError(t, err)

	archived := true
	_, err = svc.UpdateHabit(ctx, userID, first.ID, habits.UpdateHabitInput{Archived: &archived})
	require.NoError(t, err)

	_, err = svc.CreateHabit(ctx, habits.CreateHabitInput{UserID: userID, Name: "Read", Frequency: "weekly", Goal: 5})
	require.NoError(t, err)

	active, err := svc.ListHabits(ctx, userID, false)
	require.NoError(t, err)
	require.Len(t, active, 1)

	all, err := svc.ListHabits(ctx, userID, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
