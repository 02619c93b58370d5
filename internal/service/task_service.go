// internal/service/task_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gurkanbulca/barakaflow/internal/agenda"
	"github.com/gurkanbulca/barakaflow/internal/models"
	"github.com/gurkanbulca/barakaflow/internal/repository"
)

var ErrTaskNotFound = errors.New("task not found")

// Author identifies the signed-in user writing updates.
type Author struct {
	UserID string
	Name   string
}

// TaskInvalidator is told when a task's derived data must be dropped.
type TaskInvalidator interface {
	InvalidateTask(ctx context.Context, userID, taskID string) error
}

// DayView is the partitioned agenda of a single date.
type DayView struct {
	Date      string         `json:"date"`
	Todo      []*models.Task `json:"todo"`
	Completed []*models.Task `json:"completed"`
}

type TaskService struct {
	repo        repository.TaskRepository
	logger      *zap.Logger
	opts        agenda.Options
	now         func() time.Time
	invalidator TaskInvalidator
}

// NewTaskService creates a task service that resolves calendar dates in opts.Location.
func NewTaskService(repo repository.TaskRepository, opts agenda.Options, logger *zap.Logger) *TaskService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &TaskService{
		repo:   repo,
		logger: logger.Named("tasks"),
		opts:   opts,
		now:    time.Now,
	}
}

// SetInvalidator registers the hook called after a task is deleted.
func (s *TaskService) SetInvalidator(inv TaskInvalidator) {
	s.invalidator = inv
}

// Location returns the time zone used for calendar dates.
func (s *TaskService) Location() *time.Location {
	return s.opts.Location
}

// Today returns the current calendar date.
func (s *TaskService) Today() agenda.Date {
	return agenda.DateOf(s.now(), s.opts.Location)
}

// List returns the user's tasks, newest first, narrowed by query and filter.
func (s *TaskService) List(ctx context.Context, userID, query string, filter agenda.Filter) ([]*models.Task, error) {
	tasks, err := s.repo.List(ctx, repository.ListFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks = agenda.Apply(tasks, query, filter, s.now(), s.opts.Location)
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return tasks, nil
}

// Get returns one of the user's tasks.
func (s *TaskService) Get(ctx context.Context, userID, id string) (*models.Task, error) {
	task, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// Create validates and stores a new task.
func (s *TaskService) Create(ctx context.Context, userID string, in models.TaskInput) (*models.Task, error) {
	task, err := models.NewTask(uuid.NewString(), userID, in, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.logger.Debug("task created", zap.String("user_id", userID), zap.String("task_id", task.ID))
	return task, nil
}

// Update applies a partial update.
func (s *TaskService) Update(ctx context.Context, userID, id string, patch models.TaskPatch) (*models.Task, error) {
	task, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := task.ApplyPatch(patch, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task and drops anything derived from it.
func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	if s.invalidator != nil {
		if err := s.invalidator.InvalidateTask(ctx, userID, id); err != nil {
			s.logger.Warn("failed to invalidate task cache", zap.String("task_id", id), zap.Error(err))
		}
	}
	return nil
}

// Day returns the tasks occurring on date, split into to-do and completed.
func (s *TaskService) Day(ctx context.Context, userID string, date agenda.Date) (*DayView, error) {
	tasks, err := s.ForDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	todo, completed := agenda.Partition(tasks)
	if todo == nil {
		todo = []*models.Task{}
	}
	if completed == nil {
		completed = []*models.Task{}
	}
	return &DayView{Date: date.String(), Todo: todo, Completed: completed}, nil
}

// ForDate returns the scheduled tasks that occur on date.
func (s *TaskService) ForDate(ctx context.Context, userID string, date agenda.Date) ([]*models.Task, error) {
	tasks, err := s.repo.List(ctx, repository.ListFilter{UserID: userID, Scheduled: true})
	if err != nil {
		return nil, fmt.Errorf("list scheduled tasks: %w", err)
	}
	return agenda.TasksForDate(tasks, date, s.opts), nil
}

// AddUpdate appends a top-level update to the task's thread.
func (s *TaskService) AddUpdate(ctx context.Context, author Author, taskID, content string) (*models.Task, error) {
	return s.mutateThread(ctx, author, taskID, func(task *models.Task, known []string) error {
		update, err := s.newUpdate(author, content, known)
		if err != nil {
			return err
		}
		task.Updates = append(task.Updates, update)
		return nil
	})
}

// Reply appends a reply to the thread containing updateID.
func (s *TaskService) Reply(ctx context.Context, author Author, taskID, updateID, content string) (*models.Task, error) {
	return s.mutateThread(ctx, author, taskID, func(task *models.Task, known []string) error {
		reply, err := s.newUpdate(author, content, known)
		if err != nil {
			return err
		}
		return task.AddReply(updateID, reply)
	})
}

// ToggleLike likes or unlikes an update or reply on behalf of author.
func (s *TaskService) ToggleLike(ctx context.Context, author Author, taskID, updateID string) (*models.Task, error) {
	return s.mutateThread(ctx, author, taskID, func(task *models.Task, _ []string) error {
		update, err := task.Updates.Find(updateID)
		if err != nil {
			return err
		}
		update.ToggleLike(author.Name)
		return nil
	})
}

func (s *TaskService) mutateThread(ctx context.Context, author Author, taskID string, fn func(*models.Task, []string) error) (*models.Task, error) {
	task, err := s.Get(ctx, author.UserID, taskID)
	if err != nil {
		return nil, err
	}
	known, err := s.knownPeople(ctx, author)
	if err != nil {
		return nil, err
	}
	if err := fn(task, known); err != nil {
		return nil, err
	}
	task.UpdatedAt = s.now().UTC()
	if err := s.save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) newUpdate(author Author, content string, known []string) (models.TaskUpdate, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.TaskUpdate{}, models.NewValidationError("content", "content is required")
	}
	mentions := models.ParseMentions(content, known)
	return models.NewUpdate(uuid.NewString(), author.Name, content, mentions, s.now()), nil
}

// knownPeople is everyone an update can mention: the author and the owners
// named on the author's tasks.
func (s *TaskService) knownPeople(ctx context.Context, author Author) ([]string, error) {
	owners, err := s.repo.Owners(ctx, author.UserID)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	if author.Name != "" && !slices.Contains(owners, author.Name) {
		owners = append(owners, author.Name)
	}
	return owners, nil
}

func (s *TaskService) save(ctx context.Context, task *models.Task) error {
	if err := s.repo.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}
