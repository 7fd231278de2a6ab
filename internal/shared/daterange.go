package shared

import (
	"fmt"
	"time"
)

// DateRange is an inclusive [From, To] window at day granularity.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDateRange normalises both bounds to day granularity.
func NewDateRange(from, to time.Time) DateRange {
	return DateRange{From: Day(from), To: Day(to)}
}

// SingleDay builds a range covering exactly one day.
func SingleDay(t time.Time) DateRange {
	d := Day(t)
	return DateRange{From: d, To: d}
}

// Validate rejects zero or inverted ranges.
func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("%w: date range bounds required", ErrValidation)
	}
	if r.To.Before(r.From) {
		return fmt.Errorf("%w: date range inverted", ErrValidation)
	}
	return nil
}

// Contains reports whether day t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.From) && !d.After(r.To)
}

// String renders the range as from..to dates.
func (r DateRange) String() string {
	return r.From.Format("2006-01-02") + ".." + r.To.Format("2006-01-02")
}
