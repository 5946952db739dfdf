// Package habits defines the business logic for user habits and the entries logged against them.
package habits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrHabitNotFound is returned when a habit does not exist or belongs to another user.
	ErrHabitNotFound = errors.New("habit not found")
	// ErrEntryNotFound is returned when an entry cannot be located under the habit.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrDuplicateHabit is returned when the user already has an active habit with the same name.
	ErrDuplicateHabit = errors.New("habit with this name already exists")
	// ErrHabitArchived is returned when logging against an archived habit.
	ErrHabitArchived = errors.New("habit is archived")
	// ErrValidation marks rejected input. Wrapped errors carry the detail.
	ErrValidation = errors.New("validation failed")
)

const (
	maxNameLength = 120
	maxUnitLength = 32
	maxNoteLength = 500

	// DefaultPageSize is used when a list request names no limit.
	DefaultPageSize = 20
	// MaxPageSize caps list requests.
	MaxPageSize = 100
)

// Frequency is the period a habit goal applies to.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ParseFrequency validates a frequency. Empty means daily.
func ParseFrequency(raw string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FrequencyDaily, nil
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, nil
	default:
		return "", fmt.Errorf("%w: frequency must be one of daily, weekly, monthly", ErrValidation)
	}
}

// Habit is a user-defined recurring activity.
type Habit struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Frequency   Frequency `json:"frequency"`
	Goal        float64   `json:"goal"`
	Unit        string    `json:"unit"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Entry is a timestamped value logged against a habit.
type Entry struct {
	ID        string    `json:"id"`
	HabitID   string    `json:"habitId"`
	UserID    string    `json:"userId"`
	Value     float64   `json:"value"`
	Note      string    `json:"note,omitempty"`
	LoggedAt  time.Time `json:"loggedAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Progress measures the current period of a habit against its goal.
type Progress struct {
	HabitID     string    `json:"habitId"`
	Frequency   Frequency `json:"frequency"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	Total       float64   `json:"total"`
	Goal        float64   `json:"goal"`
	Entries     int       `json:"entries"`
	Completed   bool      `json:"completed"`
	Percent     float64   `json:"percent"`
}

// Cursor models the entry pagination token.
type Cursor struct {
	LoggedAt time.Time
	ID       string
}

// Event is a domain event recorded in the outbox together with the change that produced it.
type Event struct {
	EventType    string
	AggregateID  string
	PartitionKey string
	Payload      json.RawMessage
}

// Repository captures persistence operations. Every lookup is scoped to the owning user.
type Repository interface {
	CreateHabit(ctx context.Context, habit Habit) error
	GetHabit(ctx context.Context, userID, habitID string) (*Habit, error)
	ListHabits(ctx context.Context, userID string, includeArchived bool) ([]Habit, error)
	UpdateHabit(ctx context.Context, habit Habit) error
	DeleteHabit(ctx context.Context, userID, habitID string, event Event) error
	CreateEntry(ctx context.Context, entry Entry, event Event) error
	ListEntries(ctx context.Context, userID, habitID string, cursor *Cursor, limit int) ([]Entry, *Cursor, error)
	DeleteEntry(ctx context.Context, userID, habitID, entryID string) error
	SumEntries(ctx context.Context, userID, habitID string, from, to time.Time) (float64, int, error)
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: name must be at most %d characters", ErrValidation, maxNameLength)
	}
	return name, nil
}

func validateGoal(goal float64) error {
	if math.IsNaN(goal) || math.IsInf(goal, 0) || goal <= 0 {
		return fmt.Errorf("%w: goal must be greater than zero", ErrValidation)
	}
	return nil
}

func validateUnit(raw string) (string, error) {
	unit := strings.TrimSpace(raw)
	if utf8.RuneCountInString(unit) > maxUnitLength {
		return "", fmt.Errorf("%w: unit must be at most %d characters", ErrValidation, maxUnitLength)
	}
	return unit, nil
}

func validateValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: value must be a non-negative number", ErrValidation)
	}
	return nil
}

func validateNote(raw string) (string, error) {
	note := strings.TrimSpace(raw)
	if utf8.RuneCountInString(note) > maxNoteLength {
		return "", fmt.Errorf("%w: note must be at most %d characters", ErrValidation, maxNoteLength)
	}
	return note, nil
}

// ClampLimit applies the default and maximum page sizes.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	default:
		return limit
	}
}
