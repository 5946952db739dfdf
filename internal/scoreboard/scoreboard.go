// Package scoreboard implements the score flows over a Google Sheets scoreboard.
//
// A worksheet holds one challenge. Row 1 is the header: "Date" followed by one column per user.
// Every other row is a date in column A with one score cell per user. A user's cumulative score
// is the sum of their column.
package scoreboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrValidation marks input that failed validation. Wrapped errors carry the detail.
	ErrValidation = errors.New("validation failed")
	// ErrUserNotFound is returned when the user has no column in the worksheet header.
	ErrUserNotFound = errors.New("user not found")
	// ErrDateNotFound is returned when a delete targets a date without a row.
	ErrDateNotFound = errors.New("date not found")
)

// DateLayout is the accepted request date format.
const DateLayout = "2006-01-02"

// Operation describes how a score is applied to the existing cell value.
type Operation string

const (
	OperationAdd      Operation = "add"
	OperationSubtract Operation = "subtract"
	OperationSet      Operation = "set"
	// OperationClear is reported on results of deletes that emptied the cell.
	OperationClear Operation = "clear"
)

// ParseOperation normalises a request operation. Empty means add.
func ParseOperation(raw string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(raw))); op {
	case "":
		return OperationAdd, nil
	case OperationAdd, OperationSubtract, OperationSet:
		return op, nil
	default:
		return "", fmt.Errorf("%w: operation must be one of add, subtract, set", ErrValidation)
	}
}

func (op Operation) apply(current, score float64) float64 {
	switch op {
	case OperationSet:
		return score
	case OperationSubtract:
		return math.Max(current-score, 0)
	default:
		return current + score
	}
}

// UpdateInput is the payload of a score update.
type UpdateInput struct {
	Sheet     string
	Date      string
	UserName  string
	Score     float64
	Operation Operation
}

// DeleteInput is the payload of a score delete. A nil Amount clears the cell.
type DeleteInput struct {
	Sheet    string
	Date     string
	UserName string
	Amount   *float64
}

// ScoreResult describes the cell after a write.
type ScoreResult struct {
	Sheet      string    `json:"sheet"`
	Date       string    `json:"date"`
	UserName   string    `json:"userName"`
	Operation  Operation `json:"operation"`
	Previous   float64   `json:"previous"`
	Score      float64   `json:"score"`
	Total      float64   `json:"total"`
	Row        int       `json:"row"`
	Column     string    `json:"column"`
	CreatedRow bool      `json:"createdRow"`
	Cleared    bool      `json:"cleared"`
}

// UserSummary aggregates one user's column.
type UserSummary struct {
	Name     string  `json:"name"`
	Total    float64 `json:"total"`
	Days     int     `json:"days"`
	LastDate string  `json:"lastDate,omitempty"`
	Best     float64 `json:"best"`
}

// DayScore is one dated cell.
type DayScore struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
}

// UserDetail lists a user's scores in date order.
type UserDetail struct {
	Name    string     `json:"name"`
	Sheet   string     `json:"sheet"`
	Total   float64    `json:"total"`
	Entries []DayScore `json:"entries"`
}

// UserCache remembers the header users of a worksheet.
type UserCache interface {
	Get(ctx context.Context, sheet string) ([]string, bool, error)
	Set(ctx context.Context, sheet string, users []string) error
	Invalidate(ctx context.Context, sheet string) error
}

// Locker serialises read-modify-write sequences on a worksheet.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Publisher emits score events.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}

func validateDate(raw string) (string, error) {
	date := strings.TrimSpace(raw)
	if date == "" {
		return "", fmt.Errorf("%w: date is required", ErrValidation)
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return "", fmt.Errorf("%w: date must be a valid YYYY-MM-DD date", ErrValidation)
	}
	return date, nil
}

func validateAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a number", ErrValidation, field)
	}
	if v < 0 {
		return fmt.Errorf("%w: %s must be non-negative", ErrValidation, field)
	}
	return nil
}

func validateUser(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: userName is required", ErrValidation)
	}
	return name, nil
}
