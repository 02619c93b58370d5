// internal/service/test_helpers.go
package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gurkanbulca/barakaflow/internal/agenda"
	"github.com/gurkanbulca/barakaflow/internal/database"
	"github.com/gurkanbulca/barakaflow/internal/models"
	"github.com/gurkanbulca/barakaflow/internal/repository"
	"github.com/gurkanbulca/barakaflow/pkg/auth"
	"github.com/gurkanbulca/barakaflow/pkg/cache"
	"github.com/gurkanbulca/barakaflow/pkg/email"
	"github.com/gurkanbulca/barakaflow/pkg/llm"
)

// TestHelpers wires services against an in-memory database for tests.
type TestHelpers struct {
	t      testing.TB
	DB     *database.DB
	Users  *repository.SQLUserRepository
	Tasks  *repository.SQLTaskRepository
	Email  *email.MockEmailService
	Tokens *auth.TokenManager
	Cache  *cache.MemoryStore
	LLM    *llm.FakeClient
	Now    time.Time
}

// NewTestHelpers creates a new test helper instance
func NewTestHelpers(t testing.TB) *TestHelpers {
	t.Helper()

	db := database.NewTestDB(t)
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	store := cache.NewMemoryStore(time.Hour, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	return &TestHelpers{
		t:      t,
		DB:     db,
		Users:  repository.NewSQLUserRepository(db),
		Tasks:  repository.NewSQLTaskRepository(db),
		Email:  email.NewMockEmailService(),
		Tokens: tokens,
		Cache:  store,
		LLM:    &llm.FakeClient{},
		Now:    time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
	}
}

// AuthService returns an auth service using the minimum bcrypt cost.
func (h *TestHelpers) AuthService() *AuthService {
	return NewAuthService(
		h.Users,
		h.Tokens,
		auth.NewPasswordManagerWithCost(6, bcrypt.MinCost),
		h.Email,
		NewSecurityLogger(zap.NewNop()),
		zap.NewNop(),
	)
}

// TaskService returns a task service whose clock is pinned to h.Now in UTC.
func (h *TestHelpers) TaskService() *TaskService {
	svc := NewTaskService(h.Tasks, agenda.Options{Location: time.UTC}, zap.NewNop())
	svc.now = func() time.Time { return h.Now }
	return svc
}

// AssistService returns an assistant backed by h.LLM and h.Cache.
func (h *TestHelpers) AssistService(tasks *TaskService) *AssistService {
	svc := NewAssistService(tasks, h.LLM, h.Cache, AssistConfig{
		SuggestionTTL: time.Hour,
		DayPlanTTL:    time.Hour,
		ChatTTL:       time.Hour,
	}, zap.NewNop())
	svc.now = func() time.Time { return h.Now }
	tasks.SetInvalidator(svc)
	return svc
}

// CreateTestUser stores a user directly, bypassing registration.
func (h *TestHelpers) CreateTestUser(emailAddr, name string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(h.t, err)

	u := &models.User{
		ID:           "user-" + name,
		Email:        emailAddr,
		PasswordHash: string(hash),
		Name:         name,
		CreatedAt:    h.Now,
		UpdatedAt:    h.Now,
	}
	require.NoError(h.t, h.Users.Create(context.Background(), u))
	return u
}
