// internal/service/assist_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gurkanbulca/barakaflow/internal/agenda"
	"github.com/gurkanbulca/barakaflow/internal/models"
	"github.com/gurkanbulca/barakaflow/pkg/assist"
	"github.com/gurkanbulca/barakaflow/pkg/cache"
	"github.com/gurkanbulca/barakaflow/pkg/llm"
)

var (
	ErrAssistantUnavailable = errors.New("assistant is not configured")
	ErrAssistantFailed      = errors.New("assistant request failed")
)

// maxStoredTurns caps the history kept per conversation.
const maxStoredTurns = 100

const defaultCallTimeout = 90 * time.Second

// AssistConfig holds the cache lifetimes of assistant results.
type AssistConfig struct {
	SuggestionTTL time.Duration
	DayPlanTTL    time.Duration
	ChatTTL       time.Duration
	// CallTimeout bounds a coalesced LLM call, which outlives the request
	// that started it. Zero means 90s.
	CallTimeout time.Duration
}

// ChatInput is one user message in a conversation about a task or a day.
type ChatInput struct {
	ConversationID string `json:"conversationId"`
	TaskID         string `json:"taskId,omitempty"`
	Date           string `json:"date,omitempty"`
	Message        string `json:"message"`
}

// ChatReply is the assistant's answer to a ChatInput.
type ChatReply struct {
	ConversationID string    `json:"conversationId"`
	Reply          string    `json:"reply"`
	Timestamp      time.Time `json:"timestamp"`
	Turns          int       `json:"turns"`
}

type AssistService struct {
	tasks   *TaskService
	client  llm.Client
	store   cache.Store
	cfg     AssistConfig
	logger  *zap.Logger
	sfGroup singleflight.Group
	now     func() time.Time

	convMu    sync.Mutex
	convLocks map[string]*convLock
}

// convLock serializes turns of one conversation. refs counts holders and
// waiters so the entry can be dropped once idle.
type convLock struct {
	ch   chan struct{}
	refs int
}

// NewAssistService creates the assistant service. client may be nil, in which
// case every call returns ErrAssistantUnavailable.
func NewAssistService(tasks *TaskService, client llm.Client, store cache.Store, cfg AssistConfig, logger *zap.Logger) *AssistService {
	return &AssistService{
		tasks:  tasks,
		client: client,
		store:  store,
		cfg:    cfg,
		logger: logger.Named("assist"),
		now:    time.Now,

		convLocks: make(map[string]*convLock),
	}
}

// Available reports whether an LLM provider is configured.
func (s *AssistService) Available() bool {
	return s.client != nil
}

// Suggest returns tips for a task. Results are cached under a key derived from
// every field the prompt depends on, so editing the task recomputes them.
func (s *AssistService) Suggest(ctx context.Context, userID, taskID string) (*assist.Suggestions, error) {
	if !s.Available() {
		return nil, ErrAssistantUnavailable
	}
	task, err := s.tasks.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	key := suggestionKey(userID, task)
	result := &assist.Suggestions{}
	if s.lookup(ctx, key, result) {
		return result, nil
	}

	val, shared, err := s.coalesce(ctx, key, func(ctx context.Context) (any, error) {
		req := assist.SuggestionRequest(taskContext(task), s.tasks.Location())
		reply, err := s.complete(ctx, req)
		if err != nil {
			return nil, err
		}
		parsed, err := assist.ParseSuggestions(reply)
		if err != nil {
			s.logger.Warn("unparseable suggestion reply", zap.String("task_id", task.ID), zap.Error(err))
			return nil, err
		}
		s.remember(ctx, key, parsed, s.cfg.SuggestionTTL)
		return parsed, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("suggestion request coalesced", zap.String("task_id", task.ID))
	}
	return val.(*assist.Suggestions), nil
}

// OptimizeDay returns a plan for the tasks scheduled on date. The cache key
// covers the set of task ids, so adding or removing a task recomputes it.
func (s *AssistService) OptimizeDay(ctx context.Context, userID string, date agenda.Date) (*assist.DayOptimization, error) {
	if !s.Available() {
		return nil, ErrAssistantUnavailable
	}
	tasks, err := s.tasks.ForDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, models.NewValidationError("date", "no tasks scheduled for "+date.String())
	}
	agenda.SortByStart(tasks)

	key := dayKey(userID, date, tasks)
	result := &assist.DayOptimization{}
	if s.lookup(ctx, key, result) {
		return result, nil
	}

	val, _, err := s.coalesce(ctx, key, func(ctx context.Context) (any, error) {
		reply, err := s.complete(ctx, assist.DayRequest(dayTasks(tasks), s.tasks.Location()))
		if err != nil {
			return nil, err
		}
		parsed, err := assist.ParseDayOptimization(reply)
		if err != nil {
			s.logger.Warn("unparseable day plan reply", zap.String("date", date.String()), zap.Error(err))
			return nil, err
		}
		s.remember(ctx, key, parsed, s.cfg.DayPlanTTL)
		return parsed, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*assist.DayOptimization), nil
}

// Chat continues a conversation about a task (TaskID set) or a day (Date set,
// or today when both are empty). The history lives in the cache store. Turns
// of one conversation are applied one at a time within this process.
func (s *AssistService) Chat(ctx context.Context, userID string, in ChatInput) (*ChatReply, error) {
	if !s.Available() {
		return nil, ErrAssistantUnavailable
	}

	v := &models.ValidationError{}
	in.ConversationID = strings.TrimSpace(in.ConversationID)
	in.Message = strings.TrimSpace(in.Message)
	if in.ConversationID == "" {
		v.Add("conversationId", "conversationId is required")
	}
	if in.Message == "" {
		v.Add("message", "message is required")
	}
	if in.TaskID != "" && in.Date != "" {
		v.Add("taskId", "taskId and date are mutually exclusive")
	}
	if v.HasErrors() {
		return nil, v
	}

	build, err := s.chatRequest(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	key := conversationKey(userID, in.ConversationID)
	unlock, err := s.lockConversation(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	history, err := s.History(ctx, userID, in.ConversationID)
	if err != nil {
		return nil, err
	}

	reply, err := s.complete(ctx, build(history))
	if err != nil {
		return nil, err
	}
	reply = strings.TrimSpace(reply)

	now := s.now().UTC()
	history = append(history,
		assist.ChatTurn{Role: llm.RoleUser, Content: in.Message, Timestamp: now},
		assist.ChatTurn{Role: llm.RoleAssistant, Content: reply, Timestamp: now},
	)
	if len(history) > maxStoredTurns {
		history = history[len(history)-maxStoredTurns:]
	}
	s.remember(ctx, key, history, s.cfg.ChatTTL)

	return &ChatReply{
		ConversationID: in.ConversationID,
		Reply:          reply,
		Timestamp:      now,
		Turns:          len(history),
	}, nil
}

// History returns the stored turns of a conversation, oldest first.
func (s *AssistService) History(ctx context.Context, userID, conversationID string) ([]assist.ChatTurn, error) {
	var history []assist.ChatTurn
	found, err := s.store.Get(ctx, conversationKey(userID, conversationID), &history)
	if err != nil {
		s.logger.Warn("failed to load conversation", zap.String("conversation_id", conversationID), zap.Error(err))
		return []assist.ChatTurn{}, nil
	}
	if !found || history == nil {
		return []assist.ChatTurn{}, nil
	}
	return history, nil
}

// ClearChat forgets a conversation.
func (s *AssistService) ClearChat(ctx context.Context, userID, conversationID string) error {
	if err := s.store.Delete(ctx, conversationKey(userID, conversationID)); err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return nil
}

// InvalidateTask drops every cached suggestion for a task. It implements
// TaskInvalidator.
func (s *AssistService) InvalidateTask(ctx context.Context, userID, taskID string) error {
	return s.store.DeletePrefix(ctx, cache.Prefix("suggest", userID, taskID))
}

// chatRequest resolves the conversation subject and returns a builder that
// completes the request once the history is known.
func (s *AssistService) chatRequest(ctx context.Context, userID string, in ChatInput) (func([]assist.ChatTurn) llm.Request, error) {
	loc := s.tasks.Location()
	if in.TaskID != "" {
		task, err := s.tasks.Get(ctx, userID, in.TaskID)
		if err != nil {
			return nil, err
		}
		tc := taskContext(task)
		return func(h []assist.ChatTurn) llm.Request {
			return assist.TaskChatRequest(tc, loc, h, in.Message)
		}, nil
	}

	date := s.tasks.Today()
	if in.Date != "" {
		d, err := agenda.ParseDate(in.Date)
		if err != nil {
			return nil, models.NewValidationError("date", err.Error())
		}
		date = d
	}
	tasks, err := s.tasks.ForDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	agenda.SortByStart(tasks)
	day := dayTasks(tasks)
	return func(h []assist.ChatTurn) llm.Request {
		return assist.DayChatRequest(day, loc, h, in.Message)
	}, nil
}

// coalesce runs fn once for concurrent callers of the same key. fn gets a
// context detached from any single caller and bounded by CallTimeout, so one
// caller hanging up does not fail the others; each caller stops waiting when
// its own ctx is done.
func (s *AssistService) coalesce(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, bool, error) {
	ch := s.sfGroup.DoChan(key, func() (any, error) {
		work, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout())
		defer cancel()
		return fn(work)
	})
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (s *AssistService) callTimeout() time.Duration {
	if s.cfg.CallTimeout > 0 {
		return s.cfg.CallTimeout
	}
	return defaultCallTimeout
}

// lockConversation waits for exclusive use of a conversation key and returns
// the release func.
func (s *AssistService) lockConversation(ctx context.Context, key string) (func(), error) {
	s.convMu.Lock()
	l, ok := s.convLocks[key]
	if !ok {
		l = &convLock{ch: make(chan struct{}, 1)}
		s.convLocks[key] = l
	}
	l.refs++
	s.convMu.Unlock()

	done := func() {
		s.convMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.convLocks, key)
		}
		s.convMu.Unlock()
	}

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			done()
		}, nil
	case <-ctx.Done():
		done()
		return nil, ctx.Err()
	}
}

func (s *AssistService) complete(ctx context.Context, req llm.Request) (string, error) {
	start := s.now()
	reply, err := s.client.Complete(ctx, req)
	if err != nil {
		s.logger.Error("llm request failed",
			zap.String("provider", s.client.Name()),
			zap.Duration("duration", s.now().Sub(start)),
			zap.Error(err))
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %w", ErrAssistantFailed, err)
	}
	s.logger.Debug("llm request completed",
		zap.String("provider", s.client.Name()),
		zap.Duration("duration", s.now().Sub(start)))
	return reply, nil
}

func (s *AssistService) lookup(ctx context.Context, key string, dest any) bool {
	found, err := s.store.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return found
}

func (s *AssistService) remember(ctx context.Context, key string, value any, ttl time.Duration) {
	if err := s.store.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func suggestionKey(userID string, t *models.Task) string {
	fields := []string{t.Title, t.Description, t.Owner, string(t.Status), timeField(t.StartTime), timeField(t.EndTime)}
	for _, u := range t.Updates {
		fields = append(fields, u.Content)
	}
	return cache.Key([]string{"suggest", userID, t.ID}, fields...)
}

func dayKey(userID string, date agenda.Date, tasks []*models.Task) string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	slices.Sort(ids)
	return cache.Key([]string{"day", userID, date.String()}, ids...)
}

func conversationKey(userID, conversationID string) string {
	return cache.Key([]string{"chat", userID}, conversationID)
}

func timeField(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func taskContext(t *models.Task) assist.TaskContext {
	tc := assist.TaskContext{
		Title:       t.Title,
		Description: t.Description,
		Owner:       t.Owner,
		Status:      string(t.Status),
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
	}
	for _, u := range t.Updates {
		tc.Updates = append(tc.Updates, assist.UpdateContext{
			Author:    u.Author,
			Content:   u.Content,
			Timestamp: u.Timestamp,
			Likes:     u.Likes,
		})
	}
	return tc
}

func dayTasks(tasks []*models.Task) []assist.DayTask {
	out := make([]assist.DayTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, assist.DayTask{
			Title:       t.Title,
			Description: t.Description,
			StartTime:   t.StartTime,
			EndTime:     t.EndTime,
		})
	}
	return out
}
