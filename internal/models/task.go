// internal/models/task.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the workflow state of a task.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusPending    Status = "pending"
	StatusCompleted  Status = "completed"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNotStarted, StatusPending, StatusCompleted:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

// MaxTitleLength bounds task titles.
const MaxTitleLength = 200

// Task is a single to-do item owned by exactly one user.
type Task struct {
	ID          string      `db:"id" json:"id"`
	UserID      string      `db:"user_id" json:"userId"`
	Title       string      `db:"title" json:"title"`
	Description string      `db:"description" json:"description"`
	Completed   bool        `db:"completed" json:"completed"`
	Status      Status      `db:"status" json:"status"`
	StartTime   *time.Time  `db:"start_time" json:"startTime,omitempty"`
	EndTime     *time.Time  `db:"end_time" json:"endTime,omitempty"`
	Owner       string      `db:"owner" json:"owner"`
	Updates     Updates     `db:"updates" json:"updates"`
	Recurrence  *Recurrence `db:"recurrence" json:"recurrence,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
}

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Completed   *bool       `json:"completed,omitempty"`
	Status      *Status     `json:"status,omitempty"`
	StartTime   *time.Time  `json:"startTime,omitempty"`
	EndTime     *time.Time  `json:"endTime,omitempty"`
	Owner       string      `json:"owner,omitempty"`
	Updates     Updates     `json:"updates,omitempty"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
}

// TaskPatch is a partial update. Unset fields are left untouched; an explicit
// JSON null clears the optional ones.
type TaskPatch struct {
	Title       Optional[string]      `json:"title,omitzero"`
	Description Optional[string]      `json:"description,omitzero"`
	Completed   Optional[bool]        `json:"completed,omitzero"`
	Status      Optional[Status]      `json:"status,omitzero"`
	StartTime   Optional[time.Time]   `json:"startTime,omitzero"`
	EndTime     Optional[time.Time]   `json:"endTime,omitzero"`
	Owner       Optional[string]      `json:"owner,omitzero"`
	Updates     Optional[Updates]     `json:"updates,omitzero"`
	Recurrence  Optional[*Recurrence] `json:"recurrence,omitzero"`
}

// NewTask builds a validated task for userID from input.
func NewTask(id, userID string, in TaskInput, now time.Time) (*Task, error) {
	t := &Task{
		ID:          id,
		UserID:      userID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      StatusNotStarted,
		StartTime:   utcPtr(in.StartTime),
		EndTime:     utcPtr(in.EndTime),
		Owner:       strings.TrimSpace(in.Owner),
		Updates:     in.Updates,
		Recurrence:  in.Recurrence,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if t.Updates == nil {
		t.Updates = Updates{}
	}
	if err := t.applyCompletion(in.Completed, in.Status); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// ApplyPatch merges p into the task and re-validates it.
func (t *Task) ApplyPatch(p TaskPatch, now time.Time) error {
	if p.Title.Set {
		t.Title = strings.TrimSpace(p.Title.Value)
	}
	if p.Description.Set {
		t.Description = p.Description.Value
	}
	if p.Owner.Set {
		t.Owner = strings.TrimSpace(p.Owner.Value)
	}
	if p.StartTime.Set {
		t.StartTime = utcPtr(p.StartTime.Ptr())
	}
	if p.EndTime.Set {
		t.EndTime = utcPtr(p.EndTime.Ptr())
	}
	if p.Updates.Set {
		t.Updates = p.Updates.Value
		if t.Updates == nil {
			t.Updates = Updates{}
		}
	}
	if p.Recurrence.Set {
		t.Recurrence = p.Recurrence.Value
	}

	var completed *bool
	var status *Status
	if p.Completed.Set && !p.Completed.Null {
		completed = &p.Completed.Value
	}
	if p.Status.Set && !p.Status.Null {
		status = &p.Status.Value
	}
	if err := t.applyCompletion(completed, status); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	t.UpdatedAt = now.UTC()
	return nil
}

// applyCompletion keeps completed and status in agreement:
// status == completed exactly when completed is true. Clearing completed on
// a completed task moves it back to not-started.
func (t *Task) applyCompletion(completed *bool, status *Status) error {
	switch {
	case completed != nil && status != nil:
		if *completed != (*status == StatusCompleted) {
			return NewValidationError("status", "completed and status disagree")
		}
		t.Completed, t.Status = *completed, *status
	case status != nil:
		t.Status = *status
		t.Completed = *status == StatusCompleted
	case completed != nil:
		t.Completed = *completed
		if *completed {
			t.Status = StatusCompleted
		} else if t.Status == StatusCompleted {
			t.Status = StatusNotStarted
		}
	}
	return nil
}

// Validate checks field-level constraints.
func (t *Task) Validate() error {
	v := &ValidationError{}
	if t.Title == "" {
		v.Add("title", "title is required")
	} else if len(t.Title) > MaxTitleLength {
		v.Add("title", fmt.Sprintf("title must not exceed %d characters", MaxTitleLength))
	}
	if _, err := ParseStatus(string(t.Status)); err != nil {
		v.Add("status", err.Error())
	}
	if t.StartTime != nil && t.EndTime != nil && t.EndTime.Before(*t.StartTime) {
		v.Add("endTime", "endTime must not be before startTime")
	}
	if t.Recurrence != nil {
		if _, err := ParseFrequency(string(t.Recurrence.Frequency)); err != nil {
			v.Add("recurrence.frequency", err.Error())
		}
		if t.Recurrence.Interval < 0 {
			v.Add("recurrence.interval", "interval must not be negative")
		}
	}
	if v.HasErrors() {
		return v
	}
	return nil
}

// Updates is the embedded update thread of a task, stored as a JSON column.
type Updates []TaskUpdate

// Value implements driver.Valuer.
func (u Updates) Value() (driver.Value, error) {
	if u == nil {
		u = Updates{}
	}
	b, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("marshal updates: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (u *Updates) Scan(src any) error {
	*u = Updates{}
	return scanJSON(src, u)
}

func scanJSON(src any, dest any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("unmarshal json column: %w", err)
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
