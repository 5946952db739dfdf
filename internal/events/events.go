// Package events defines the event payloads published to Kafka.
package events

import "time"

// Event types carried in the event_type Kafka header.
const (
	TypeScoreUpdated     = "score.updated"
	TypeScoreDeleted     = "score.deleted"
	TypeHabitEntryLogged = "habit_entry.logged"
	TypeHabitDeleted     = "habit.deleted"
)

// Topics events are routed to.
const (
	TopicScoreEvents = "score_events"
	TopicHabitEvents = "habit_events"
)

// TopicFor maps an event type to its topic. Unknown types return "".
func TopicFor(eventType string) string {
	switch eventType {
	case TypeScoreUpdated, TypeScoreDeleted:
		return TopicScoreEvents
	case TypeHabitEntryLogged, TypeHabitDeleted:
		return TopicHabitEvents
	}
	return ""
}

// ScoreUpdated is emitted after a scoreboard cell was written.
type ScoreUpdated struct {
	Sheet      string    `json:"sheet"`
	Date       string    `json:"date"`
	UserName   string    `json:"user_name"`
	Operation  string    `json:"operation"`
	Previous   float64   `json:"previous"`
	Score      float64   `json:"score"`
	Total      float64   `json:"total"`
	CreatedRow bool      `json:"created_row"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ScoreDeleted is emitted after a scoreboard cell was reduced or cleared.
type ScoreDeleted struct {
	Sheet      string    `json:"sheet"`
	Date       string    `json:"date"`
	UserName   string    `json:"user_name"`
	Previous   float64   `json:"previous"`
	Score      float64   `json:"score"`
	Cleared    bool      `json:"cleared"`
	OccurredAt time.Time `json:"occurred_at"`
}

// HabitEntryLogged is emitted when a value is logged against a habit.
type HabitEntryLogged struct {
	EntryID  string    `json:"entry_id"`
	HabitID  string    `json:"habit_id"`
	UserID   string    `json:"user_id"`
	Value    float64   `json:"value"`
	Unit     string    `json:"unit,omitempty"`
	LoggedAt time.Time `json:"logged_at"`
}

// HabitDeleted is emitted when a habit and its entries are removed.
type HabitDeleted struct {
	HabitID   string    `json:"habit_id"`
	UserID    string    `json:"user_id"`
	DeletedAt time.Time `json:"deleted_at"`
}
