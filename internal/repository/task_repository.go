// internal/repository/task_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/gurkanbulca/barakaflow/internal/database"
	"github.com/gurkanbulca/barakaflow/internal/models"
)

const tasksTable = "tasks"

var taskColumns = []string{
	"id", "user_id", "title", "description", "completed", "status",
	"start_time", "end_time", "owner", "updates", "recurrence",
	"created_at", "updated_at",
}

type SQLTaskRepository struct {
	db *database.DB
}

func NewSQLTaskRepository(db *database.DB) *SQLTaskRepository {
	return &SQLTaskRepository{db: db}
}

func (r *SQLTaskRepository) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect)
}

func (r *SQLTaskRepository) Create(ctx context.Context, t *models.Task) error {
	query, args := r.builder().
		Insert(tasksTable).
		Columns(taskColumns...).
		Values(
			t.ID, t.UserID, t.Title, t.Description, t.Completed, string(t.Status),
			utc(t.StartTime), utc(t.EndTime), t.Owner, t.Updates, t.Recurrence,
			t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *SQLTaskRepository) GetByID(ctx context.Context, userID, id string) (*models.Task, error) {
	query, args := r.builder().
		Select(taskColumns...).
		From(entsql.Table(tasksTable)).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("user_id", userID))).
		Limit(1).
		Query()

	var t models.Task
	if err := r.db.GetContext(ctx, &t, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query task: %w", err)
	}
	normalize(&t)
	return &t, nil
}

func (r *SQLTaskRepository) List(ctx context.Context, filter ListFilter) ([]*models.Task, error) {
	predicates := []*entsql.Predicate{entsql.EQ("user_id", filter.UserID)}
	if filter.Scheduled {
		predicates = append(predicates, entsql.NotNull("start_time"))
	}

	selector := r.builder().
		Select(taskColumns...).
		From(entsql.Table(tasksTable)).
		Where(entsql.And(predicates...)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if filter.Limit > 0 {
		selector = selector.Limit(filter.Limit)
	}
	query, args := selector.Query()

	var tasks []*models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	for _, t := range tasks {
		normalize(t)
	}
	return tasks, nil
}

func (r *SQLTaskRepository) Update(ctx context.Context, t *models.Task) error {
	query, args := r.builder().
		Update(tasksTable).
		Set("title", t.Title).
		Set("description", t.Description).
		Set("completed", t.Completed).
		Set("status", string(t.Status)).
		Set("start_time", utc(t.StartTime)).
		Set("end_time", utc(t.EndTime)).
		Set("owner", t.Owner).
		Set("updates", t.Updates).
		Set("recurrence", t.Recurrence).
		Set("updated_at", t.UpdatedAt.UTC()).
		Where(entsql.And(entsql.EQ("id", t.ID), entsql.EQ("user_id", t.UserID))).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return expectAffected(res)
}

func (r *SQLTaskRepository) Delete(ctx context.Context, userID, id string) error {
	query, args := r.builder().
		Delete(tasksTable).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("user_id", userID))).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectAffected(res)
}

// Owners returns the distinct non-empty owner names on the user's tasks.
func (r *SQLTaskRepository) Owners(ctx context.Context, userID string) ([]string, error) {
	query, args := r.builder().
		Select("owner").
		Distinct().
		From(entsql.Table(tasksTable)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.NEQ("owner", ""))).
		OrderBy("owner").
		Query()

	var owners []string
	if err := r.db.SelectContext(ctx, &owners, query, args...); err != nil {
		return nil, fmt.Errorf("query owners: %w", err)
	}
	return owners, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func normalize(t *models.Task) {
	t.StartTime = utc(t.StartTime)
	t.EndTime = utc(t.EndTime)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if t.Updates == nil {
		t.Updates = models.Updates{}
	}
	if t.Recurrence != nil && t.Recurrence.EndDate != nil {
		t.Recurrence.EndDate = utc(t.Recurrence.EndDate)
	}
}
