package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gurkanbulca/barakaflow/internal/models"
)

func TestClient_LoginStoresToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":"Login successful","token":"tok","user":{"id":"u1","email":"a@b.co","name":"A"}}`))
		case "/api/tasks":
			gotAuth = r.Header.Get("Authorization")
			assert.Equal(t, "milk", r.URL.Query().Get("q"))
			_, _ = w.Write([]byte(`[{"id":"t1","title":"Buy milk","status":"not-started","updates":[]}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/api/")
	res, err := c.Login(context.Background(), "a@b.co", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "A", res.User.Name)
	assert.Equal(t, "tok", c.Token())

	tasks, err := c.ListTasks(context.Background(), "milk", "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0].Title)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "json error field", status: 401, body: `{"error":"unauthenticated"}`, wantMsg: "unauthenticated"},
		{name: "json message field", status: 400, body: `{"message":"bad input"}`, wantMsg: "bad input"},
		{name: "non-json body", status: 502, body: `<html>Bad Gateway</html>`, wantMsg: "Bad Gateway"},
		{name: "empty json", status: 500, body: `{}`, wantMsg: "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL).GetTask(context.Background(), "x")
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}

	t.Run("helpers", func(t *testing.T) {
		assert.True(t, IsUnauthenticated(&APIError{StatusCode: 401}))
		assert.True(t, IsNotFound(&APIError{StatusCode: 404}))
		assert.False(t, IsNotFound(errors.New("x")))
	})
}

func TestClient_CannotConnect(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(addr).ListTasks(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrCannotConnect)
	assert.Contains(t, err.Error(), "cannot connect to server at "+addr)
}

func TestClient_UpdateSendsOnlySetFields(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		body = string(buf)
		_, _ = w.Write([]byte(`{"id":"t1","title":"x","completed":true,"status":"completed","updates":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).UpdateTask(context.Background(), "t1", models.TaskPatch{
		Completed: models.Some(true),
		EndTime:   models.Null[time.Time](),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"completed":true,"endTime":null}`, body)
}

func TestRun_DiscardsSupersededResults(t *testing.T) {
	var l Latest
	started := make(chan struct{})
	var wg sync.WaitGroup
	var firstErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = Run(context.Background(), &l, func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "stale", nil
		})
	}()

	<-started
	res, err := Run(context.Background(), &l, func(ctx context.Context) (string, error) {
		return "fresh", nil
	})
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, "fresh", res)
	assert.ErrorIs(t, firstErr, ErrSuperseded)
}

func TestRun_Cancel(t *testing.T) {
	var l Latest
	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		_, err := Run(context.Background(), &l, func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		})
		done <- err
	}()
	<-started
	l.Cancel()
	assert.ErrorIs(t, <-done, ErrSuperseded)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path, nil)

	assert.Equal(t, &Session{}, store.Load(), "missing file is empty")

	s := &Session{Token: "tok", User: &models.PublicUser{ID: "u1", Name: "Amina"}}
	assert.True(t, s.AddMember(Member{Name: "Juma", Email: "Juma@Example.com"}))
	assert.False(t, s.AddMember(Member{Name: "Juma again", Email: "juma@example.com"}))
	assert.True(t, s.AddMember(Member{Email: "neema@example.com"}))
	require.NoError(t, store.Save(s))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded := store.Load()
	assert.Equal(t, s, loaded)
	assert.Equal(t, []string{"Amina", "Juma", "neema@example.com"}, loaded.Owners())

	require.NoError(t, store.Clear())
	cleared := store.Load()
	assert.Empty(t, cleared.Token)
	assert.Nil(t, cleared.User)
	assert.Len(t, cleared.Members, 2)
}

func TestFileStore_CorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	core, logs := observer.New(zap.WarnLevel)
	store := NewFileStore(path, zap.New(core))

	assert.Equal(t, &Session{}, store.Load())
	assert.Equal(t, 1, logs.Len())
}
