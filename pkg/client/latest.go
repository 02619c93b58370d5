package client

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned for a call that was replaced by a newer one.
var ErrSuperseded = errors.New("request superseded by a newer one")

// Latest tracks one logical request, such as "refresh the task list". Each
// new call cancels the one in flight, and only the newest call's result is
// delivered.
type Latest struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Run calls fn under l. If another Run starts before fn returns, fn's context
// is canceled and its result discarded with ErrSuperseded.
func Run[T any](ctx context.Context, l *Latest, fn func(context.Context) (T, error)) (T, error) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	res, err := fn(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		cancel()
		var zero T
		return zero, ErrSuperseded
	}
	cancel()
	l.cancel = nil
	return res, err
}

// Cancel aborts the call in flight, if any.
func (l *Latest) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
}
