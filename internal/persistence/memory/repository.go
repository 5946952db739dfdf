// Package memory provides an in-process habits repository for local development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"example.com/habitboard/internal/habits"
)

// DefaultEventLimit is how many recent events a Repository keeps.
const DefaultEventLimit = 1000

// Repository stores habits and entries in memory. The most recent events are kept for inspection.
type Repository struct {
	mu         sync.RWMutex
	habits     map[string]habits.Habit
	entries    map[string][]habits.Entry
	events     []habits.Event
	eventLimit int
}

// Option configures a Repository.
type Option func(*Repository)

// WithEventLimit caps the number of recorded events. Zero disables recording.
func WithEventLimit(n int) Option {
	return func(r *Repository) {
		if n >= 0 {
			r.eventLimit = n
		}
	}
}

// NewRepository constructs an empty Repository.
func NewRepository(opts ...Option) *Repository {
	r := &Repository{
		habits:     make(map[string]habits.Habit),
		entries:    make(map[string][]habits.Entry),
		eventLimit: DefaultEventLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// record appends event, dropping the oldest beyond eventLimit. Callers hold r.mu.
func (r *Repository) record(event habits.Event) {
	if r.eventLimit == 0 {
		return
	}
	if len(r.events) >= r.eventLimit {
		n := copy(r.events, r.events[len(r.events)-r.eventLimit+1:])
		r.events = r.events[:n]
	}
	r.events = append(r.events, event)
}

// Events returns the most recent events, oldest first.
func (r *Repository) Events() []habits.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]habits.Event(nil), r.events...)
}

// CreateHabit implements habits.Repository.
func (r *Repository) CreateHabit(_ context.Context, habit habits.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nameTaken(habit) {
		return habits.ErrDuplicateHabit
	}
	r.habits[habit.ID] = habit
	return nil
}

// nameTaken mirrors the partial unique index on (user_id, lower(name)) among active habits.
func (r *Repository) nameTaken(habit habits.Habit) bool {
	if habit.Archived {
		return false
	}
	for _, h := range r.habits {
		if h.ID != habit.ID && h.UserID == habit.UserID && !h.Archived && strings.EqualFold(h.Name, habit.Name) {
			return true
		}
	}
	return false
}

// GetHabit implements habits.Repository.
func (r *Repository) GetHabit(_ context.Context, userID, habitID string) (*habits.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.habits[habitID]
	if !ok || h.UserID != userID {
		return nil, nil
	}
	return &h, nil
}

// ListHabits implements habits.Repository.
func (r *Repository) ListHabits(_ context.Context, userID string, includeArchived bool) ([]habits.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]habits.Habit, 0)
	for _, h := range r.habits {
		if h.UserID != userID || (h.Archived && !includeArchived) {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// UpdateHabit implements habits.Repository.
func (r *Repository) UpdateHabit(_ context.Context, habit habits.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.habits[habit.ID]
	if !ok || existing.UserID != habit.UserID {
		return habits.ErrHabitNotFound
	}
	if r.nameTaken(habit) {
		return habits.ErrDuplicateHabit
	}
	r.habits[habit.ID] = habit
	return nil
}

// DeleteHabit implements habits.Repository.
func (r *Repository) DeleteHabit(_ context.Context, userID, habitID string, event habits.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.habits[habitID]
	if !ok || h.UserID != userID {
		return habits.ErrHabitNotFound
	}
	delete(r.habits, habitID)
	delete(r.entries, habitID)
	r.record(event)
	return nil
}

// CreateEntry implements habits.Repository.
func (r *Repository) CreateEntry(_ context.Context, entry habits.Entry, event habits.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.habits[entry.HabitID]
	if !ok || h.UserID != entry.UserID {
		return habits.ErrHabitNotFound
	}
	r.entries[entry.HabitID] = append(r.entries[entry.HabitID], entry)
	r.record(event)
	return nil
}

// ListEntries implements habits.Repository with the same (logged_at, id) keyset ordering as Postgres.
func (r *Repository) ListEntries(_ context.Context, userID, habitID string, cursor *habits.Cursor, limit int) ([]habits.Entry, *habits.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.habits[habitID]
	if !ok || h.UserID != userID {
		return nil, nil, habits.ErrHabitNotFound
	}

	if limit <= 0 {
		limit = habits.DefaultPageSize
	}
	all := append([]habits.Entry(nil), r.entries[habitID]...)
	sort.Slice(all, func(i, j int) bool { return newer(all[i].LoggedAt, all[i].ID, all[j].LoggedAt, all[j].ID) })

	out := make([]habits.Entry, 0, limit)
	for _, e := range all {
		if cursor != nil && !newer(cursor.LoggedAt, cursor.ID, e.LoggedAt, e.ID) {
			continue
		}
		if len(out) == limit {
			last := out[len(out)-1]
			return out, &habits.Cursor{LoggedAt: last.LoggedAt, ID: last.ID}, nil
		}
		out = append(out, e)
	}
	return out, nil, nil
}

// newer orders by (logged_at, id) descending.
func newer(aAt time.Time, aID string, bAt time.Time, bID string) bool {
	if !aAt.Equal(bAt) {
		return aAt.After(bAt)
	}
	return aID > bID
}

// DeleteEntry implements habits.Repository.
func (r *Repository) DeleteEntry(_ context.Context, userID, habitID, entryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.habits[habitID]
	if !ok || h.UserID != userID {
		return habits.ErrHabitNotFound
	}
	list := r.entries[habitID]
	for i, e := range list {
		if e.ID == entryID {
			r.entries[habitID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return habits.ErrEntryNotFound
}

// SumEntries implements habits.Repository.
func (r *Repository) SumEntries(_ context.Context, userID, habitID string, from, to time.Time) (float64, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.habits[habitID]
	if !ok || h.UserID != userID {
		return 0, 0, habits.ErrHabitNotFound
	}
	var (
		total float64
		count int
	)
	for _, e := range r.entries[habitID] {
		if !e.LoggedAt.Before(from) && e.LoggedAt.Before(to) {
			total += e.Value
			count++
		}
	}
	return total, count, nil
}
