package habits

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/habitboard/internal/events"
)

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithLogger overrides the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service orchestrates habit workflows.
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateHabitInput captures the payload from the API layer.
type CreateHabitInput struct {
	UserID      string
	Name        string
	Description string
	Frequency   string
	Goal        float64
	Unit        string
}

// UpdateHabitInput is a partial update; nil fields are left unchanged.
type UpdateHabitInput struct {
	Name        *string
	Description *string
	Frequency   *string
	Goal        *float64
	Unit        *string
	Archived    *bool
}

// LogEntryInput captures a logged value. A zero LoggedAt means now.
type LogEntryInput struct {
	UserID   string
	HabitID  string
	Value    float64
	Note     string
	LoggedAt time.Time
}

// CreateHabit validates and stores a new habit.
func (s *Service) CreateHabit(ctx context.Context, in CreateHabitInput) (*Habit, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	freq, err := ParseFrequency(in.Frequency)
	if err != nil {
		return nil, err
	}
	if err := validateGoal(in.Goal); err != nil {
		return nil, err
	}
	unit, err := validateUnit(in.Unit)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	habit := Habit{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Frequency:   freq,
		Goal:        in.Goal,
		Unit:        unit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateHabit(ctx, habit); err != nil {
		return nil, err
	}
	s.logger.Info("habit created", zap.String("habit_id", habit.ID), zap.String("user_id", habit.UserID))
	return &habit, nil
}

// GetHabit fetches one of the user's habits.
func (s *Service) GetHabit(ctx context.Context, userID, habitID string) (*Habit, error) {
	if _, err := uuid.Parse(habitID); err != nil {
		return nil, ErrHabitNotFound
	}
	habit, err := s.repo.GetHabit(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	if habit == nil {
		return nil, ErrHabitNotFound
	}
	return habit, nil
}

// ListHabits lists the user's habits, newest first.
func (s *Service) ListHabits(ctx context.Context, userID string, includeArchived bool) ([]Habit, error) {
	return s.repo.ListHabits(ctx, userID, includeArchived)
}

// UpdateHabit applies a partial update.
func (s *Service) UpdateHabit(ctx context.Context, userID, habitID string, patch UpdateHabitInput) (*Habit, error) {
	habit, err := s.GetHabit(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if habit.Name, err = validateName(*patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		habit.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Frequency != nil {
		if habit.Frequency, err = ParseFrequency(*patch.Frequency); err != nil {
			return nil, err
		}
	}
	if patch.Goal != nil {
		if err := validateGoal(*patch.Goal); err != nil {
			return nil, err
		}
		habit.Goal = *patch.Goal
	}
	if patch.Unit != nil {
		if habit.Unit, err = validateUnit(*patch.Unit); err != nil {
			return nil, err
		}
	}
	if patch.Archived != nil {
		habit.Archived = *patch.Archived
	}
	habit.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateHabit(ctx, *habit); err != nil {
		return nil, err
	}
	return habit, nil
}

// DeleteHabit removes a habit and its entries.
func (s *Service) DeleteHabit(ctx context.Context, userID, habitID string) error {
	if _, err := uuid.Parse(habitID); err != nil {
		return ErrHabitNotFound
	}
	event, err := newEvent(events.TypeHabitDeleted, habitID, events.HabitDeleted{
		HabitID:   habitID,
		UserID:    userID,
		DeletedAt: s.now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := s.repo.DeleteHabit(ctx, userID, habitID, event); err != nil {
		return err
	}
	s.logger.Info("habit deleted", zap.String("habit_id", habitID), zap.String("user_id", userID))
	return nil
}

// LogEntry records a value against a habit and emits habit_entry.logged through the outbox.
func (s *Service) LogEntry(ctx context.Context, in LogEntryInput) (*Entry, error) {
	if err := validateValue(in.Value); err != nil {
		return nil, err
	}
	note, err := validateNote(in.Note)
	if err != nil {
		return nil, err
	}
	habit, err := s.GetHabit(ctx, in.UserID, in.HabitID)
	if err != nil {
		return nil, err
	}
	if habit.Archived {
		return nil, ErrHabitArchived
	}

	now := s.now().UTC()
	loggedAt := in.LoggedAt.UTC()
	if in.LoggedAt.IsZero() {
		loggedAt = now
	}
	entry := Entry{
		ID:        uuid.NewString(),
		HabitID:   habit.ID,
		UserID:    in.UserID,
		Value:     in.Value,
		Note:      note,
		LoggedAt:  loggedAt,
		CreatedAt: now,
	}
	event, err := newEvent(events.TypeHabitEntryLogged, habit.ID, events.HabitEntryLogged{
		EntryID:  entry.ID,
		HabitID:  habit.ID,
		UserID:   entry.UserID,
		Value:    entry.Value,
		Unit:     habit.Unit,
		LoggedAt: entry.LoggedAt,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateEntry(ctx, entry, event); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListEntries returns a page of entries, newest first.
func (s *Service) ListEntries(ctx context.Context, userID, habitID string, cursor *Cursor, limit int) ([]Entry, *Cursor, error) {
	if _, err := s.GetHabit(ctx, userID, habitID); err != nil {
		return nil, nil, err
	}
	return s.repo.ListEntries(ctx, userID, habitID, cursor, ClampLimit(limit))
}

// DeleteEntry removes one entry of a habit.
func (s *Service) DeleteEntry(ctx context.Context, userID, habitID, entryID string) error {
	if _, err := uuid.Parse(habitID); err != nil {
		return ErrHabitNotFound
	}
	if _, err := uuid.Parse(entryID); err != nil {
		return ErrEntryNotFound
	}
	return s.repo.DeleteEntry(ctx, userID, habitID, entryID)
}

// Progress sums the entries of the period containing now against the goal.
func (s *Service) Progress(ctx context.Context, userID, habitID string, now time.Time) (*Progress, error) {
	habit, err := s.GetHabit(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	if now.IsZero() {
		now = s.now()
	}
	start, end := Period(habit.Frequency, now)
	total, count, err := s.repo.SumEntries(ctx, userID, habitID, start, end)
	if err != nil {
		return nil, err
	}
	return newProgress(*habit, start, end, total, count), nil
}

func newEvent(eventType, aggregateID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s: %w", eventType, err)
	}
	return Event{
		EventType:    eventType,
		AggregateID:  aggregateID,
		PartitionKey: aggregateID,
		Payload:      raw,
	}, nil
}
