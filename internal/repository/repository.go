// internal/repository/repository.go
package repository

import (
	"context"
	"errors"

	"github.com/gurkanbulca/barakaflow/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// TaskRepository persists tasks. Every read and write is scoped to one user;
// a task owned by someone else behaves as if it did not exist.
type TaskRepository interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, userID, id string) (*models.Task, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, userID, id string) error
	Owners(ctx context.Context, userID string) ([]string, error)
}

// ListFilter narrows a task listing. Results are newest first.
type ListFilter struct {
	UserID    string
	Scheduled bool // only tasks with a start time
	Limit     int
}
