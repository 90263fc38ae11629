package rollup

import (
	"time"

	"hourglass/internal/domain"
)

// DateQuery is a partial calendar date. Month and Day are zero when absent.
type DateQuery struct {
	Year  int
	Month int
	Day   int
}

// Level picks the granularity the query addresses: day needs both month and
// day, month needs a month, anything else falls back to year.
func (q DateQuery) Level() domain.Level {
	switch {
	case q.Month != 0 && q.Day != 0:
		return domain.LevelDay
	case q.Month != 0:
		return domain.LevelMonth
	}
	return domain.LevelYear
}

// Window holds the period boundaries of every level around one anchor date.
type Window struct {
	Anchor time.Time
	Day    domain.Period
	Month  domain.Period
	Year   domain.Period
}

func (w Window) Period(l domain.Level) domain.Period {
	switch l {
	case domain.LevelDay:
		return w.Day
	case domain.LevelMonth:
		return w.Month
	}
	return w.Year
}

// ResolveWindow anchors q in UTC. A missing month or day is taken from now;
// a defaulted day is clamped to the last day of the requested month, while an
// explicit component that does not exist fails with InvalidDateError.
func ResolveWindow(q DateQuery, now time.Time) (Window, error) {
	now = now.UTC()
	invalid := &domain.InvalidDateError{Year: q.Year, Month: q.Month, Day: q.Day}
	if q.Year < 1 || q.Year > 9999 || q.Month < 0 || q.Month > 12 || q.Day < 0 {
		return Window{}, invalid
	}
	month := q.Month
	if month == 0 {
		month = int(now.Month())
	}
	last := daysIn(q.Year, time.Month(month))
	day := q.Day
	switch {
	case day == 0:
		day = min(now.Day(), last)
	case day > last:
		return Window{}, invalid
	}
	anchor := time.Date(q.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return Window{
		Anchor: anchor,
		Day:    domain.DayOf(anchor),
		Month:  domain.MonthOf(anchor),
		Year:   domain.YearOf(anchor),
	}, nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
