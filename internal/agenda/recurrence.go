// Package agenda resolves which tasks fall on a calendar day and how a day's
// tasks are grouped, sorted and filtered. Everything here is pure.
package agenda

import (
	"time"

	"github.com/gurkanbulca/barakaflow/internal/models"
)

// Date is a calendar day without time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t, time.UTC), nil
}

func (d Date) String() string {
	return d.midnight().Format(time.DateOnly)
}

// midnight anchors the date in UTC so day arithmetic ignores DST shifts.
func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// DaysSince returns the whole calendar days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.midnight().Sub(other.midnight()).Hours() / 24)
}

func (d Date) Before(other Date) bool { return d.midnight().Before(other.midnight()) }
func (d Date) After(other Date) bool  { return d.midnight().After(other.midnight()) }

// Options tunes recurrence matching.
type Options struct {
	// Location is used to derive calendar dates from timestamps. Nil means time.Local.
	Location *time.Location
	// EnforceBounds makes matching honor recurrence interval and end date.
	EnforceBounds bool
}

// OccursOn reports whether task is active on date.
func OccursOn(task *models.Task, date Date, opts Options) bool {
	if task.StartTime == nil {
		return false
	}
	start := DateOf(*task.StartTime, opts.Location)
	if start == date {
		return true
	}
	rec := task.Recurrence
	if !rec.Repeats() || !date.After(start) {
		return false
	}
	if opts.EnforceBounds && rec.EndDate != nil && date.After(DateOf(*rec.EndDate, opts.Location)) {
		return false
	}

	daysDiff := date.DaysSince(start)
	interval := 1
	if opts.EnforceBounds && rec.Interval > 1 {
		interval = rec.Interval
	}

	switch rec.Frequency {
	case models.FrequencyDaily:
		return daysDiff%interval == 0
	case models.FrequencyWeekly:
		return daysDiff%7 == 0 && (daysDiff/7)%interval == 0
	case models.FrequencyMonthly:
		if date.Day != start.Day {
			return false
		}
		months := (date.Year-start.Year)*12 + int(date.Month-start.Month)
		return months%interval == 0
	case models.FrequencyYearly:
		if date.Month != start.Month || date.Day != start.Day {
			return false
		}
		return (date.Year-start.Year)%interval == 0
	default:
		return false
	}
}

// TasksForDate returns the tasks active on date, preserving input order.
func TasksForDate(tasks []*models.Task, date Date, opts Options) []*models.Task {
	out := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if OccursOn(t, date, opts) {
			out = append(out, t)
		}
	}
	return out
}
