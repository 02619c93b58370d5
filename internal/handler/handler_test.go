package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gurkanbulca/barakaflow/internal/agenda"
	"github.com/gurkanbulca/barakaflow/internal/database"
	"github.com/gurkanbulca/barakaflow/internal/middleware"
	"github.com/gurkanbulca/barakaflow/internal/models"
	"github.com/gurkanbulca/barakaflow/internal/repository"
	"github.com/gurkanbulca/barakaflow/internal/service"
	"github.com/gurkanbulca/barakaflow/pkg/auth"
	"github.com/gurkanbulca/barakaflow/pkg/cache"
	"github.com/gurkanbulca/barakaflow/pkg/email"
	"github.com/gurkanbulca/barakaflow/pkg/llm"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	llm     *llm.FakeClient
}

func newTestServer(t *testing.T, withLLM bool) *testServer {
	t.Helper()
	logger := zap.NewNop()
	db := database.NewTestDB(t)

	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	security := service.NewSecurityLogger(logger)

	authSvc := service.NewAuthService(
		repository.NewSQLUserRepository(db),
		tokens,
		auth.NewPasswordManagerWithCost(6, bcrypt.MinCost),
		email.NewMockEmailService(),
		security,
		logger,
	)
	tasks := service.NewTaskService(repository.NewSQLTaskRepository(db), agenda.Options{Location: time.UTC}, logger)

	store := cache.NewMemoryStore(time.Hour, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	ts := &testServer{t: t}
	var client llm.Client
	if withLLM {
		ts.llm = &llm.FakeClient{}
		client = ts.llm
	}
	assistSvc := service.NewAssistService(tasks, client, store, service.AssistConfig{
		SuggestionTTL: time.Hour,
		DayPlanTTL:    time.Hour,
		ChatTTL:       time.Hour,
	}, logger)
	tasks.SetInvalidator(assistSvc)

	ts.handler = NewRouter(Deps{
		Auth:          authSvc,
		Tasks:         tasks,
		Assist:        assistSvc,
		Authenticator: middleware.NewAuthenticator(tokens, security),
		Logger:        logger,
		Prefix:        "/api",
		CORSOrigins:   []string{"http://localhost:5173"},
		Ping:          db.PingContext,
	})
	return ts
}

func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func (ts *testServer) register(emailAddr, name string) string {
	w := ts.do(http.MethodPost, "/api/auth/register", "",
		`{"email":"`+emailAddr+`","password":"secret1","name":"`+name+`"}`)
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	var res authResponse
	require.NoError(ts.t, json.Unmarshal(w.Body.Bytes(), &res))
	return res.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false)
	w := ts.do(http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "BarakaFlow API is running", body["message"])

	w = ts.do(http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Route not found"}`, w.Body.String())
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, false)
	token := ts.register("amina@example.com", "Amina")

	t.Run("duplicate registration", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/auth/register", "",
			`{"email":"AMINA@example.com","password":"secret1","name":"Again"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"User with this email already exists"}`, w.Body.String())
	})

	t.Run("validation errors carry fields", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/auth/register", "", `{"email":"bad","password":"1","name":""}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode[errorResponse](t, w)
		assert.Contains(t, body.Fields, "email")
		assert.Contains(t, body.Fields, "password")
		assert.Contains(t, body.Fields, "name")
	})

	t.Run("login", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/auth/login", "", `{"email":"amina@example.com","password":"secret1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[authResponse](t, w)
		assert.Equal(t, "Login successful", res.Message)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, "Amina", res.User.Name)
	})

	t.Run("verify", func(t *testing.T) {
		w := ts.do(http.MethodGet, "/api/auth/verify", token, "")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode[map[string]models.PublicUser](t, w)
		assert.Equal(t, "amina@example.com", body["user"].Email)

		w = ts.do(http.MethodGet, "/api/auth/verify", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestWrongPasswordThenNoToken(t *testing.T) {
	ts := newTestServer(t, false)
	ts.register("amina@example.com", "Amina")

	w := ts.do(http.MethodPost, "/api/auth/login", "", `{"email":"amina@example.com","password":"wrong-one"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode[map[string]any](t, w)
	assert.NotContains(t, body, "token")
	assert.Equal(t, "Invalid email or password", body["error"])

	for _, path := range []string{"/api/tasks", "/api/tasks/day", "/api/tasks/abc"} {
		w := ts.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.JSONEq(t, `{"error":"unauthenticated"}`, w.Body.String(), path)
	}
	w = ts.do(http.MethodGet, "/api/tasks", "not-a-token", "")
	assert.JSONEq(t, `{"error":"unauthenticated"}`, w.Body.String())
}

func TestTaskCRUD(t *testing.T) {
	ts := newTestServer(t, false)
	token := ts.register("amina@example.com", "Amina")

	w := ts.do(http.MethodPost, "/api/tasks", token, `{"title":"Buy Milk","description":"2 litres"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Task](t, w)
	assert.Equal(t, models.StatusNotStarted, created.Status)

	w = ts.do(http.MethodGet, "/api/tasks?q=milk", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Task](t, w), 1)

	w = ts.do(http.MethodGet, "/api/tasks?q=BUY&filter=completed", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = ts.do(http.MethodGet, "/api/tasks?filter=someday", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPut, "/api/tasks/"+created.ID, token, `{"status":"completed","startTime":"2024-01-01T09:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Task](t, w)
	assert.True(t, updated.Completed)
	assert.Equal(t, "2 litres", updated.Description, "absent fields are kept")

	w = ts.do(http.MethodPut, "/api/tasks/"+created.ID, token, `{"startTime":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[models.Task](t, w).StartTime)

	w = ts.do(http.MethodPut, "/api/tasks/"+created.ID, token, `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodDelete, "/api/tasks/"+created.ID, token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Task deleted successfully"}`, w.Body.String())

	w = ts.do(http.MethodGet, "/api/tasks/"+created.ID, token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Task not found"}`, w.Body.String())
}

func TestTasksAreScopedToOwner(t *testing.T) {
	ts := newTestServer(t, false)
	alice := ts.register("alice@example.com", "Alice")
	bob := ts.register("bob@example.com", "Bob")

	w := ts.do(http.MethodPost, "/api/tasks", alice, `{"title":"Secret"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[models.Task](t, w).ID

	for _, tc := range []struct{ method, body string }{
		{http.MethodGet, ""},
		{http.MethodPut, `{"title":"Mine now"}`},
		{http.MethodDelete, ""},
	} {
		w := ts.do(tc.method, "/api/tasks/"+id, bob, tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.method)
	}

	w = ts.do(http.MethodGet, "/api/tasks", bob, "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestWeeklyStandupOnDayView(t *testing.T) {
	ts := newTestServer(t, false)
	token := ts.register("amina@example.com", "Amina")

	w := ts.do(http.MethodPost, "/api/tasks", token,
		`{"title":"Standup","startTime":"2024-01-01T09:00:00Z","recurrence":{"frequency":"weekly"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(http.MethodGet, "/api/tasks/day?date=2024-01-08", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	day := decode[service.DayView](t, w)
	require.Len(t, day.Todo, 1)
	assert.Equal(t, "Standup", day.Todo[0].Title)

	w = ts.do(http.MethodGet, "/api/tasks/day?date=2024-01-05", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[service.DayView](t, w).Todo)

	w = ts.do(http.MethodGet, "/api/tasks/day?date=08-01-2024", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateThreads(t *testing.T) {
	ts := newTestServer(t, false)
	token := ts.register("amina@example.com", "Amina")

	w := ts.do(http.MethodPost, "/api/tasks", token, `{"title":"Launch"}`)
	id := decode[models.Task](t, w).ID

	w = ts.do(http.MethodPost, "/api/tasks/"+id+"/updates", token, `{"content":"Kickoff with @amina"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode[models.Task](t, w)
	require.Len(t, task.Updates, 1)
	assert.Equal(t, []string{"Amina"}, task.Updates[0].Mentions)
	updateID := task.Updates[0].ID

	w = ts.do(http.MethodPost, "/api/tasks/"+id+"/updates/"+updateID+"/replies", token, `{"content":"on it"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(http.MethodPost, "/api/tasks/"+id+"/updates/"+updateID+"/like", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[models.Task](t, w).Updates[0].Likes)

	w = ts.do(http.MethodPost, "/api/tasks/"+id+"/updates/missing/like", token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Update not found"}`, w.Body.String())

	w = ts.do(http.MethodPost, "/api/tasks/"+id+"/updates", token, `{"content":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssistUnavailable(t *testing.T) {
	ts := newTestServer(t, false)
	token := ts.register("amina@example.com", "Amina")

	w := ts.do(http.MethodPost, "/api/assist/suggestions", token, `{"taskId":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = ts.do(http.MethodPost, "/api/assist/day", token, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAssistSuggestions(t *testing.T) {
	ts := newTestServer(t, true)
	ts.llm.Replies = []string{
		`Here: {"tips":["a"],"suggestions":["b"],"approach":"c"}`,
		"no json here",
	}
	token := ts.register("amina@example.com", "Amina")

	w := ts.do(http.MethodPost, "/api/tasks", token, `{"title":"Report","description":"v1"}`)
	id := decode[models.Task](t, w).ID

	w = ts.do(http.MethodPost, "/api/assist/suggestions", token, `{"taskId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"tips":["a"],"suggestions":["b"],"approach":"c"}`, w.Body.String())

	w = ts.do(http.MethodPost, "/api/assist/suggestions", token, `{"taskId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ts.llm.Calls())

	ts.do(http.MethodPut, "/api/tasks/"+id, token, `{"description":"v2"}`)
	w = ts.do(http.MethodPost, "/api/assist/suggestions", token, `{"taskId":"`+id+`"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, 2, ts.llm.Calls())

	w = ts.do(http.MethodPost, "/api/assist/suggestions", token, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssistDayWithoutTasks(t *testing.T) {
	ts := newTestServer(t, true)
	token := ts.register("amina@example.com", "Amina")

	w := ts.do(http.MethodPost, "/api/assist/day", token, `{"date":"2024-01-05"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, ts.llm.Calls())
}

func TestAssistChat(t *testing.T) {
	ts := newTestServer(t, true)
	ts.llm.Replies = []string{"Start with the outline."}
	token := ts.register("amina@example.com", "Amina")

	w := ts.do(http.MethodPost, "/api/assist/chat", token, `{"conversationId":"c1","message":"What first?"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Start with the outline.", decode[service.ChatReply](t, w).Reply)

	w = ts.do(http.MethodGet, "/api/assist/chat/c1", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string]json.RawMessage](t, w), 2)

	w = ts.do(http.MethodDelete, "/api/assist/chat/c1", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestValidation(t *testing.T) {
	ts := newTestServer(t, false)
	token := ts.register("amina@example.com", "Amina")

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = ts.do(http.MethodPost, "/api/tasks", token, `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/tasks", token, `{"title":"`+strings.Repeat("x", models.MaxTitleLength+1)+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Fields, "title")
}
