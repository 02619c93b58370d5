package agenda

import (
	"fmt"
	"strings"
	"time"

	"github.com/gurkanbulca/barakaflow/internal/models"
)

// Filter selects a subset of the task table.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterCompleted  Filter = "completed"
	FilterPending    Filter = "pending"
	FilterNotStarted Filter = "not-started"
	FilterToday      Filter = "today"
)

// ParseFilter validates a filter name. The empty string means all.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "":
		return FilterAll, nil
	case FilterAll, FilterCompleted, FilterPending, FilterNotStarted, FilterToday:
		return Filter(s), nil
	default:
		return "", fmt.Errorf("unknown filter: %s", s)
	}
}

// Matches reports whether task passes both the text query and the filter.
func Matches(task *models.Task, query string, filter Filter, now time.Time, loc *time.Location) bool {
	return matchesQuery(task, query) && matchesFilter(task, filter, now, loc)
}

// Apply returns the tasks passing Matches, in input order.
func Apply(tasks []*models.Task, query string, filter Filter, now time.Time, loc *time.Location) []*models.Task {
	out := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if Matches(t, query, filter, now, loc) {
			out = append(out, t)
		}
	}
	return out
}

// matchesQuery ignores a blank query. A non-blank one is matched as typed,
// surrounding spaces included.
func matchesQuery(task *models.Task, query string) bool {
	if strings.TrimSpace(query) == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(task.Title), q) ||
		strings.Contains(strings.ToLower(task.Description), q)
}

func matchesFilter(task *models.Task, filter Filter, now time.Time, loc *time.Location) bool {
	switch filter {
	case FilterCompleted:
		return task.Completed
	case FilterPending, FilterNotStarted:
		return !task.Completed && string(task.Status) == string(filter)
	case FilterToday:
		return task.StartTime != nil && DateOf(*task.StartTime, loc) == DateOf(now, loc)
	default:
		return true
	}
}
