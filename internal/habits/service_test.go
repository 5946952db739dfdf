package habits_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/habitboard/internal/events"
	"example.com/habitboard/internal/habits"
	"example.com/habitboard/internal/persistence/memory"
)

func newService(t *testing.T, now time.Time) (*habits.Service, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	return habits.NewService(repo, habits.WithClock(func() time.Time { return now })), repo
}

func TestCreateHabitValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, time.Now())

	cases := []habits.CreateHabitInput{
		{UserID: "u1", Name: "  ", Goal: 1},
		{UserID: "u1", Name: strings.Repeat("x", 121), Goal: 1},
		{UserID: "u1", Name: "Run", Goal: 0},
		{UserID: "u1", Name: "Run", Goal: -5},
		{UserID: "u1", Name: "Run", Goal: 1, Frequency: "hourly"},
		{UserID: "u1", Name: "Run", Goal: 1, Unit: strings.Repeat("k", 33)},
	}
	for i, in := range cases {
		_, err := svc.CreateHabit(ctx, in)
		require.ErrorIs(t, err, habits.ErrValidation, "case %d", i)
	}

	h, err := svc.CreateHabit(ctx, habits.CreateHabitInput{UserID: "u1", Name: " Run ", Goal: 5, Unit: "km"})
	require.NoError(t, err)
	require.Equal(t, "Run", h.Name)
	require.Equal(t, habits.FrequencyDaily, h.Frequency)

	_, err = svc.CreateHabit(ctx, habits.CreateHabitInput{UserID: "u1", Name: "run", Goal: 1})
	require.ErrorIs(t, err, habits.ErrDuplicateHabit)

	_, err = svc.CreateHabit(ctx, habits.CreateHabitInput{UserID: "u2", Name: "Run", Goal: 1})
	require.NoError(t, err)
}

func TestHabitsAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, time.Now())

	h, err := svc.CreateHabit(ctx, habits.CreateHabitInput{UserID: "owner", Name: "Meditate", Goal: 10, Unit: "min"})
	require.NoError(t, err)

	_, err = svc.GetHabit(ctx, "intruder", h.ID)
	require.ErrorIs(t, err, habits.ErrHabitNotFound)
	_, err = svc.LogEntry(ctx, habits.LogEntryInput{UserID: "intruder", HabitID: h.ID, Value: 1})
	require.ErrorIs(t, err, habits.ErrHabitNotFound)
	require.ErrorIs(t, svc.DeleteHabit(ctx, "intruder", h.ID), habits.ErrHabitNotFound)

	_, err = svc.GetHabit(ctx, "owner", "not-a-uuid")
	require.ErrorIs(t, err, habits.ErrHabitNotFound)

	list, err := svc.ListHabits(ctx, "intruder", true)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestUpdateHabitPatch(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newService(t, now)

	h, err := svc.CreateHabit(ctx, habits.CreateHabitInput{UserID: "u1", Name: "Read", Description: "books", Goal: 20, Unit: "pages"})
	require.NoError(t, err)

	goal := 30.0
	freq := "weekly"
	archived := true
	updated, err := svc.UpdateHabit(ctx, "u1", h.ID, habits.UpdateHabitInput{Goal: &goal, Frequency: &freq, Archived: &archived})
	require.NoError(t, err)
	require.Equal(t, "Read", updated.Name)
	require.Equal(t, "books", updated.Description)
	require.Equal(t, 30.0, updated.Goal)
	require.Equal(t, habits.FrequencyWeekly, updated.Frequency)
	require.True(t, updated.Archived)

	active, err := svc.ListHabits(ctx, "u1", false)
	require.NoError(t, err)
	require.Empty(t, active)

	bad := 0.0
	_, err = svc.UpdateHabit(ctx, "u1", h.ID, habits.UpdateHabitInput{Goal: &bad})
	require.ErrorIs(t, err, habits.ErrValidation)

	_, err = svc.LogEntry(ctx, habits.LogEntryInput{UserID: "u1", HabitID: h.ID, Value: 3})
	require.ErrorIs(t, err, habits.ErrHabitArchived)
}

func TestLogEntryRecordsOutboxEvent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 6, 18, 30, 0, 0, time.UTC)
	svc, repo := newService(t, now)

	h, err := svc.CreateHabit(ctx, habits.CreateHabitInput{UserID: "u1", Name: "Pushups", Goal: 100, Unit: "reps"})
	require.NoError(t, err)

	_, err = svc.LogEntry(ctx, habits.LogEntryInput{UserID: "u1", HabitID: h.ID, Value: -1})
	require.ErrorIs(t, err, habits.ErrValidation)

	entry, err := svc.LogEntry(ctx, habits.LogEntryInput{UserID: "u1", HabitID: h.ID, Value: 25, Note: " morning "})
	require.NoError(t, err)
	require.Equal(t, now, entry.LoggedAt)
	require.Equal(t, "morning", entry.Note)

	recorded := repo.Events()
	require.Len(t, recorded, 1)
	require.Equal(t, events.TypeHabitEntryLogged, recorded[0].EventType)
	require.Equal(t, h.ID, recorded[0].PartitionKey)

	var payload events.HabitEntryLogged
	require.NoError(t, json.Unmarshal(recorded[0].Payload, &payload))
	require.Equal(t, entry.ID, payload.EntryID)
	require.Equal(t, "reps", payload.Unit)
	require.Equal(t, 25.0, payload.Value)
}

func TestListEntriesPaginates(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	svc, _ := newService(t, now)

	h, err := svc.CreateHabit(ctx, habits.CreateHabitInput{UserID: "u1", Name: "Water", Goal: 8, Unit: "glasses"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.LogEntry(ctx, habits.LogEntryInput{UserID: "u1", HabitID: h.ID, Value: 1, LoggedAt: now.Add(-time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	first, cursor, err := svc.ListEntries(ctx, "u1", h.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, cursor)
	require.Equal(t, now, first[0].LoggedAt)

	second, cursor, err := svc.ListEntries(ctx, "u1", h.ID, cursor, 2)
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.True(t, second[0].LoggedAt.Before(first[1].LoggedAt))

	third, cursor, err := svc.ListEntries(ctx, "u1", h.ID, cursor, 2)
	require.NoError(t, err)
	require.Len(t, third, 1)
	require.Nil(t, cursor)

	require.NoError(t, svc.DeleteEntry(ctx, "u1", h.ID, third[0].ID))
	require.ErrorIs(t, svc.DeleteEntry(ctx, "u1", h.ID, third[0].ID), habits.ErrEntryNotFound)
	require.ErrorIs(t, svc.DeleteEntry(ctx, "u1", h.ID, "bogus"), habits.ErrEntryNotFound)
}

func TestProgressPerFrequency(t *testing.T) {
	ctx := context.Background()
	// Wednesday.
	now := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	svc, _ := newService(t, now)

	daily, err := svc.CreateHabit(ctx, habits.CreateHabitInput{UserID: "u1", Name: "Daily", Goal: 10})
	require.NoError(t, err)
	weekly, err := svc.CreateHabit(ctx, habits.CreateHabitInput{UserID: "u1", Name: "Weekly", Frequency: "weekly", Goal: 10})
	require.NoError(t, err)
	monthly, err := svc.CreateHabit(ctx, habits.CreateHabitInput{UserID: "u1", Name: "Monthly", Frequency: "monthly", Goal: 10})
	require.NoError(t, err)

	logAt := func(habitID string, at time.Time, v float64) {
		_, err := svc.LogEntry(ctx, habits.LogEntryInput{UserID: "u1", HabitID: habitID, Value: v, LoggedAt: at})
		require.NoError(t, err)
	}
	for _, id := range []string{daily.ID, weekly.ID, monthly.ID} {
		logAt(id, now.Add(-time.Hour), 4)                        // today
		logAt(id, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), 3) // Monday this week
		logAt(id, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), 5) // earlier this month
		logAt(id, time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC), 9)
	}

	p, err := svc.Progress(ctx, "u1", daily.ID, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 4.0, p.Total)
	require.Equal(t, 1, p.Entries)
	require.Equal(t, 40.0, p.Percent)
	require.False(t, p.Completed)

	p, err = svc.Progress(ctx, "u1", weekly.ID, now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), p.PeriodStart)
	require.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), p.PeriodEnd)
	require.Equal(t, 7.0, p.Total)
	require.Equal(t, 70.0, p.Percent)

	p, err = svc.Progress(ctx, "u1", monthly.ID, now)
	require.NoError(t, err)
	require.Equal(t, 12.0, p.Total)
	require.Equal(t, 3, p.Entries)
	require.True(t, p.Completed)
	require.Equal(t, 100.0, p.Percent)
}

func TestPeriodBoundaries(t *testing.T) {
	sunday := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
	start, end := habits.Period(habits.FrequencyWeekly, sunday)
	require.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), end)

	start, end = habits.Period(habits.FrequencyMonthly, time.Date(2024, 12, 31, 10, 0, 0, 0, time.UTC))
	require.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), end)

	local := time.Date(2024, 3, 6, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	start, _ = habits.Period(habits.FrequencyDaily, local)
	require.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), start)

	require.Equal(t, habits.DefaultPageSize, habits.ClampLimit(0))
	require.Equal(t, habits.MaxPageSize, habits.ClampLimit(1000))
	require.Equal(t, 7, habits.ClampLimit(7))
}
