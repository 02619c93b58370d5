package agenda

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/barakaflow/internal/models"
)

func TestMatches_Query(t *testing.T) {
	milk := &models.Task{Title: "Buy Milk", Description: "from the corner shop"}
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		query string
		want  bool
	}{
		{"milk", true},
		{"BUY", true},
		{"CORNER", true},
		{"buy milk", true},
		{"", true},
		{"   ", true},
		{"bread", false},
		{"  Milk ", false},
		{"milk ", false},
		{" corner", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Matches(milk, tt.query, FilterAll, now, time.UTC), "query %q", tt.query)
	}
}

func TestMatches_Filter(t *testing.T) {
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	tasks := map[string]*models.Task{
		"done":         {Completed: true, Status: models.StatusCompleted},
		"pending":      {Status: models.StatusPending, StartTime: at(2024, time.January, 1, 8)},
		"not-started":  {Status: models.StatusNotStarted, StartTime: at(2024, time.January, 2, 8)},
		"inconsistent": {Completed: true, Status: models.StatusPending},
		"undated":      {Status: models.StatusNotStarted},
	}

	tests := []struct {
		filter Filter
		want   []string
	}{
		{FilterAll, []string{"done", "pending", "not-started", "inconsistent", "undated"}},
		{FilterCompleted, []string{"done", "inconsistent"}},
		{FilterPending, []string{"pending"}},
		{FilterNotStarted, []string{"not-started", "undated"}},
		{FilterToday, []string{"pending"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			var got []string
			for name, tk := range tasks {
				if Matches(tk, "", tt.filter, now, time.UTC) {
					got = append(got, name)
				}
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestApply_Intersection(t *testing.T) {
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	tasks := []*models.Task{
		{ID: "1", Title: "Buy milk", Completed: true, Status: models.StatusCompleted},
		{ID: "2", Title: "Buy bread", Status: models.StatusPending},
		{ID: "3", Title: "Call mum", Status: models.StatusPending},
	}

	got := Apply(tasks, "buy", FilterPending, now, time.UTC)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	f, err = ParseFilter("today")
	require.NoError(t, err)
	assert.Equal(t, FilterToday, f)

	_, err = ParseFilter("overdue")
	assert.Error(t, err)
}
