// Package client is a Go adapter for the BarakaFlow HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gurkanbulca/barakaflow/internal/models"
	"github.com/gurkanbulca/barakaflow/pkg/assist"
)

// ErrCannotConnect is returned when the server cannot be reached.
var ErrCannotConnect = errors.New("cannot connect to server")

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsUnauthenticated reports whether err is a 401 from the server.
func IsUnauthenticated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	Message   string            `json:"message"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      models.PublicUser `json:"user"`
}

// DayView is the partitioned agenda of one date.
type DayView struct {
	Date      string         `json:"date"`
	Todo      []*models.Task `json:"todo"`
	Completed []*models.Task `json:"completed"`
}

// ChatReply is the assistant's answer in a conversation.
type ChatReply struct {
	ConversationID string    `json:"conversationId"`
	Reply          string    `json:"reply"`
	Timestamp      time.Time `json:"timestamp"`
	Turns          int       `json:"turns"`
}

// Client talks to the API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithToken sets the initial bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:5000/api.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 90 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken replaces the bearer token. An empty token signs the client out.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	var res AuthResponse
	body := map[string]string{"email": email, "password": password, "name": name}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

// Login signs in and keeps the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var res AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

// Verify returns the user the current token belongs to.
func (c *Client) Verify(ctx context.Context) (*models.PublicUser, error) {
	var res struct {
		User models.PublicUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/verify", nil, &res); err != nil {
		return nil, err
	}
	return &res.User, nil
}

// ListTasks returns the caller's tasks, optionally narrowed by query and filter.
func (c *Client) ListTasks(ctx context.Context, query, filter string) ([]*models.Task, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if filter != "" {
		q.Set("filter", filter)
	}
	path := "/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var tasks []*models.Task
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) CreateTask(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", in, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask sends a partial update. Only the fields set in patch change.
func (c *Client) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), patch, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

// Day returns the agenda of date (YYYY-MM-DD), or today when date is empty.
func (c *Client) Day(ctx context.Context, date string) (*DayView, error) {
	path := "/tasks/day"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var view DayView
	if err := c.do(ctx, http.MethodGet, path, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) AddUpdate(ctx context.Context, taskID, content string) (*models.Task, error) {
	var task models.Task
	path := "/tasks/" + url.PathEscape(taskID) + "/updates"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"content": content}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) Reply(ctx context.Context, taskID, updateID, content string) (*models.Task, error) {
	var task models.Task
	path := "/tasks/" + url.PathEscape(taskID) + "/updates/" + url.PathEscape(updateID) + "/replies"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"content": content}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) ToggleLike(ctx context.Context, taskID, updateID string) (*models.Task, error) {
	var task models.Task
	path := "/tasks/" + url.PathEscape(taskID) + "/updates/" + url.PathEscape(updateID) + "/like"
	if err := c.do(ctx, http.MethodPost, path, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Suggest asks the assistant for tips on a task.
func (c *Client) Suggest(ctx context.Context, taskID string) (*assist.Suggestions, error) {
	var res assist.Suggestions
	if err := c.do(ctx, http.MethodPost, "/assist/suggestions", map[string]string{"taskId": taskID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// OptimizeDay asks the assistant to plan a day; an empty date means today.
func (c *Client) OptimizeDay(ctx context.Context, date string) (*assist.DayOptimization, error) {
	var res assist.DayOptimization
	if err := c.do(ctx, http.MethodPost, "/assist/day", map[string]string{"date": date}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Chat sends one message in a conversation about a task (taskID) or a day (date).
func (c *Client) Chat(ctx context.Context, conversationID, taskID, date, message string) (*ChatReply, error) {
	body := map[string]string{"conversationId": conversationID, "message": message}
	if taskID != "" {
		body["taskId"] = taskID
	}
	if date != "" {
		body["date"] = date
	}
	var res ChatReply
	if err := c.do(ctx, http.MethodPost, "/assist/chat", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ClearChat(ctx context.Context, conversationID string) error {
	return c.do(ctx, http.MethodDelete, "/assist/chat/"+url.PathEscape(conversationID), nil, nil)
}

// do sends one request. Connection failures become ErrCannotConnect; error
// responses become *APIError. There is no retry.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w at %s: %v", ErrCannotConnect, c.baseURL, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError reads the JSON "error" (or "message") field, falling back to
// the status text for bodies that are not JSON.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var body struct {
		Error   string            `json:"error"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Message = body.Error
		if apiErr.Message == "" {
			apiErr.Message = body.Message
		}
		apiErr.Fields = body.Fields
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
	}
	return apiErr
}
