package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  {\"tips\":[]}  "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/"}, zap.NewNop())
	out, err := c.Complete(context.Background(), Request{
		Messages:    []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"tips":[]}`, out)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
	assert.Equal(t, "openai/gpt-4o-mini", c.Name())
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		apiErr  bool
	}{
		{"api error json", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`, "Incorrect API key", true},
		{"api error text", http.StatusBadGateway, `upstream down`, "upstream down", true},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no completion returned", false},
		{"bad json", http.StatusOK, `not json`, "parse response", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewOpenAIClient(Config{APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
			_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)

			var apiErr *APIError
			assert.Equal(t, tt.apiErr, errors.As(err, &apiErr))
			if tt.apiErr {
				assert.Equal(t, tt.status, apiErr.StatusCode)
			}
		})
	}
}

func TestOpenAIClient_HonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Config{Provider: "openai"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	c, err := New(ctx, Config{Provider: "OpenAI", APIKey: "k", Model: "gpt-4o"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o", c.Name())

	_, err = New(ctx, Config{Provider: "llama", APIKey: "k"}, nil)
	assert.Error(t, err)
}

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "u"},
		{Role: RoleSystem, Content: "b"},
		{Role: RoleAssistant, Content: "r"},
	})
	assert.Equal(t, "a\n\nb", system)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "u"}, {Role: RoleAssistant, Content: "r"}}, rest)
}
