package agenda

import (
	"slices"

	"github.com/gurkanbulca/barakaflow/internal/models"
)

// Partition splits tasks into to-do and completed groups, each ordered by
// start time ascending with undated tasks last. Equal keys keep input order.
func Partition(tasks []*models.Task) (todo, completed []*models.Task) {
	todo = make([]*models.Task, 0, len(tasks))
	completed = make([]*models.Task, 0)
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t)
		} else {
			todo = append(todo, t)
		}
	}
	SortByStart(todo)
	SortByStart(completed)
	return todo, completed
}

// SortByStart stably sorts tasks by start time, undated last.
func SortByStart(tasks []*models.Task) {
	slices.SortStableFunc(tasks, func(a, b *models.Task) int {
		switch {
		case a.StartTime == nil && b.StartTime == nil:
			return 0
		case a.StartTime == nil:
			return 1
		case b.StartTime == nil:
			return -1
		default:
			return a.StartTime.Compare(*b.StartTime)
		}
	})
}
