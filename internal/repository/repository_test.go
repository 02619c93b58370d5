package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/barakaflow/internal/database"
	"github.com/gurkanbulca/barakaflow/internal/models"
)

var base = time.Date(2024, time.January, 8, 9, 0, 0, 0, time.UTC)

func createUser(t *testing.T, repo *SQLUserRepository, email string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "hash",
		Name:         "Amina Njoroge",
		CreatedAt:    base,
		UpdatedAt:    base,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func createTask(t *testing.T, repo *SQLTaskRepository, userID, title string, created time.Time, in models.TaskInput) *models.Task {
	t.Helper()
	in.Title = title
	task, err := models.NewTask(uuid.NewString(), userID, in, created)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), task))
	return task
}

func TestUserRepository(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewSQLUserRepository(db)
	ctx := context.Background()

	u := createUser(t, repo, "amina@example.com")

	got, err := repo.GetByEmail(ctx, "amina@example.com")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := repo.ExistsByEmail(ctx, "amina@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	dup := *u
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, repo.Create(ctx, &dup), ErrDuplicateEmail)
}

func TestTaskRepository_CRUD(t *testing.T) {
	db := database.NewTestDB(t)
	users := NewSQLUserRepository(db)
	repo := NewSQLTaskRepository(db)
	ctx := context.Background()

	owner := createUser(t, users, "owner@example.com")
	start := base.Add(time.Hour)
	end := start.Add(30 * time.Minute)

	task := createTask(t, repo, owner.ID, "Standup", base, models.TaskInput{
		Description: "daily sync",
		StartTime:   &start,
		EndTime:     &end,
		Owner:       "Baraka",
		Recurrence:  &models.Recurrence{Frequency: models.FrequencyDaily},
		Updates:     models.Updates{models.NewUpdate("u1", "Amina", "kick-off", nil, base)},
	})

	got, err := repo.GetByID(ctx, owner.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task, got)

	got.Title = "Standup (moved)"
	got.Recurrence = nil
	got.StartTime = nil
	got.EndTime = nil
	got.UpdatedAt = base.Add(time.Minute)
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.GetByID(ctx, owner.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standup (moved)", again.Title)
	assert.Nil(t, again.Recurrence)
	assert.Nil(t, again.StartTime)
	require.Len(t, again.Updates, 1)
	assert.Equal(t, "kick-off", again.Updates[0].Content)

	require.NoError(t, repo.Delete(ctx, owner.ID, task.ID))
	_, err = repo.GetByID(ctx, owner.ID, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, owner.ID, task.ID), ErrNotFound)
}

func TestTaskRepository_OwnerScoping(t *testing.T) {
	db := database.NewTestDB(t)
	users := NewSQLUserRepository(db)
	repo := NewSQLTaskRepository(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice@example.com")
	bob := createUser(t, users, "bob@example.com")
	task := createTask(t, repo, alice.ID, "Private", base, models.TaskInput{})

	_, err := repo.GetByID(ctx, bob.ID, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	stolen := *task
	stolen.UserID = bob.ID
	stolen.Title = "Mine now"
	assert.ErrorIs(t, repo.Update(ctx, &stolen), ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, bob.ID, task.ID), ErrNotFound)

	list, err := repo.List(ctx, ListFilter{UserID: bob.ID})
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := repo.GetByID(ctx, alice.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Private", got.Title)
}

func TestTaskRepository_ListNewestFirst(t *testing.T) {
	db := database.NewTestDB(t)
	users := NewSQLUserRepository(db)
	repo := NewSQLTaskRepository(db)
	ctx := context.Background()

	u := createUser(t, users, "list@example.com")
	start := base.Add(2 * time.Hour)
	createTask(t, repo, u.ID, "first", base, models.TaskInput{Owner: "Wanjiru"})
	createTask(t, repo, u.ID, "second", base.Add(time.Second), models.TaskInput{StartTime: &start})
	createTask(t, repo, u.ID, "third", base.Add(2*time.Second), models.TaskInput{Owner: "Baraka"})

	list, err := repo.List(ctx, ListFilter{UserID: u.ID})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{list[0].Title, list[1].Title, list[2].Title})

	scheduled, err := repo.List(ctx, ListFilter{UserID: u.ID, Scheduled: true})
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, "second", scheduled[0].Title)

	limited, err := repo.List(ctx, ListFilter{UserID: u.ID, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	owners, err := repo.Owners(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Baraka", "Wanjiru"}, owners)
}
