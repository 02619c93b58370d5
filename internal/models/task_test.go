package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func boolPtr(b bool) *bool       { return &b }
func statusPtr(s Status) *Status { return &s }

func TestNewTask_CompletionInvariant(t *testing.T) {
	tests := []struct {
		name          string
		completed     *bool
		status        *Status
		wantErr       bool
		wantCompleted bool
		wantStatus    Status
	}{
		{name: "defaults", wantStatus: StatusNotStarted},
		{name: "completed flag sets status", completed: boolPtr(true), wantCompleted: true, wantStatus: StatusCompleted},
		{name: "completed status sets flag", status: statusPtr(StatusCompleted), wantCompleted: true, wantStatus: StatusCompleted},
		{name: "pending", status: statusPtr(StatusPending), wantStatus: StatusPending},
		{name: "disagreement rejected", completed: boolPtr(true), status: statusPtr(StatusPending), wantErr: true},
		{name: "unknown status rejected", status: statusPtr("blocked"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := NewTask("t1", "u1", TaskInput{Title: "Standup", Completed: tt.completed, Status: tt.status}, testNow)
			if tt.wantErr {
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCompleted, task.Completed)
			assert.Equal(t, tt.wantStatus, task.Status)
			assert.NotNil(t, task.Updates)
		})
	}
}

func TestNewTask_Validation(t *testing.T) {
	start := testNow
	end := testNow.Add(-time.Hour)

	_, err := NewTask("t1", "u1", TaskInput{Title: "   "}, testNow)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")

	_, err = NewTask("t1", "u1", TaskInput{Title: "x", StartTime: &start, EndTime: &end}, testNow)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "endTime")

	_, err = NewTask("t1", "u1", TaskInput{Title: "x", Recurrence: &Recurrence{Frequency: "hourly"}}, testNow)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "recurrence.frequency")
}

func TestApplyPatch(t *testing.T) {
	start := testNow.Add(time.Hour)
	task, err := NewTask("t1", "u1", TaskInput{Title: "Write report", StartTime: &start, Completed: boolPtr(true)}, testNow)
	require.NoError(t, err)

	t.Run("unchecking reverts to not-started", func(t *testing.T) {
		tk := *task
		require.NoError(t, tk.ApplyPatch(TaskPatch{Completed: Some(false)}, testNow))
		assert.False(t, tk.Completed)
		assert.Equal(t, StatusNotStarted, tk.Status)
	})

	t.Run("status drives completed", func(t *testing.T) {
		tk := *task
		require.NoError(t, tk.ApplyPatch(TaskPatch{Status: Some(StatusPending)}, testNow))
		assert.False(t, tk.Completed)
		assert.Equal(t, StatusPending, tk.Status)
	})

	t.Run("null clears start time", func(t *testing.T) {
		tk := *task
		var p TaskPatch
		require.NoError(t, json.Unmarshal([]byte(`{"startTime": null, "title": "Renamed"}`), &p))
		require.NoError(t, tk.ApplyPatch(p, testNow.Add(time.Minute)))
		assert.Nil(t, tk.StartTime)
		assert.Equal(t, "Renamed", tk.Title)
		assert.Equal(t, testNow.Add(time.Minute), tk.UpdatedAt)
	})

	t.Run("absent fields untouched", func(t *testing.T) {
		tk := *task
		var p TaskPatch
		require.NoError(t, json.Unmarshal([]byte(`{"owner": "Amina"}`), &p))
		require.NoError(t, tk.ApplyPatch(p, testNow))
		require.NotNil(t, tk.StartTime)
		assert.True(t, tk.StartTime.Equal(start))
		assert.Equal(t, "Amina", tk.Owner)
		assert.True(t, tk.Completed)
	})

	t.Run("empty title rejected", func(t *testing.T) {
		tk := *task
		err := tk.ApplyPatch(TaskPatch{Title: Some("")}, testNow)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestTaskPatch_MarshalOmitsUnset(t *testing.T) {
	b, err := json.Marshal(TaskPatch{Title: Some("x"), StartTime: Null[time.Time]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"x","startTime":null}`, string(b))
}

func TestJSONColumns_Scan(t *testing.T) {
	var u Updates
	require.NoError(t, u.Scan([]byte(`[{"id":"a","author":"Me","content":"hi","replies":[],"likes":0,"likedBy":[]}]`)))
	require.Len(t, u, 1)
	assert.Equal(t, "hi", u[0].Content)

	require.NoError(t, u.Scan(nil))
	assert.Empty(t, u)

	var r Recurrence
	require.NoError(t, r.Scan(`{"frequency":"weekly","interval":2}`))
	assert.Equal(t, FrequencyWeekly, r.Frequency)
	assert.Equal(t, 2, r.Interval)
	assert.True(t, r.Repeats())

	assert.Error(t, r.Scan(42))

	v, err := Updates(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestUpdates_LikesAndReplies(t *testing.T) {
	task, err := NewTask("t1", "u1", TaskInput{Title: "x"}, testNow)
	require.NoError(t, err)
	task.Updates = append(task.Updates, NewUpdate("u-1", "Amina", "first", nil, testNow))

	require.NoError(t, task.AddReply("u-1", NewUpdate("r-1", "Baraka", "reply", nil, testNow)))
	require.NoError(t, task.AddReply("r-1", NewUpdate("r-2", "Amina", "reply to reply", nil, testNow)))
	require.Len(t, task.Updates[0].Replies, 2, "replies stay one level deep")

	assert.ErrorIs(t, task.AddReply("missing", NewUpdate("r-3", "x", "y", nil, testNow)), ErrUpdateNotFound)

	reply, err := task.Updates.Find("r-1")
	require.NoError(t, err)
	assert.True(t, reply.ToggleLike("Amina"))
	assert.Equal(t, 1, task.Updates[0].Replies[0].Likes)
	assert.False(t, reply.ToggleLike("Amina"))
	assert.Equal(t, 0, task.Updates[0].Replies[0].Likes)
	assert.Empty(t, task.Updates[0].Replies[0].LikedBy)
}

func TestParseMentions(t *testing.T) {
	known := []string{"Amina Njeri", "Baraka", "You"}

	tests := []struct {
		content string
		want    []string
	}{
		{"@Baraka please check", []string{"Baraka"}},
		{"ping @amina and @baraka", []string{"Amina Njeri", "Baraka"}},
		{"@stranger hello", nil},
		{"@Baraka @Baraka twice", []string{"Baraka"}},
		{"no mentions", nil},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMentions(tt.content, known))
		})
	}
}
