package habits

import (
	"math"
	"time"
)

// Period returns the UTC half-open interval [start, end) of the habit period containing t.
// Weeks start on Monday.
func Period(freq Frequency, t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch freq {
	case FrequencyWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	case FrequencyMonthly:
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	default:
		return day, day.AddDate(0, 0, 1)
	}
}

func newProgress(h Habit, start, end time.Time, total float64, entries int) *Progress {
	p := &Progress{
		HabitID:     h.ID,
		Frequency:   h.Frequency,
		PeriodStart: start,
		PeriodEnd:   end,
		Total:       total,
		Goal:        h.Goal,
		Entries:     entries,
		Completed:   h.Goal > 0 && total >= h.Goal,
	}
	if h.Goal > 0 {
		p.Percent = math.Round(math.Min(total/h.Goal, 1)*10000) / 100
	}
	return p
}
