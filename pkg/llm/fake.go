package llm

import (
	"context"
	"sync"
)

// FakeClient returns canned replies and records every request. It is used by
// tests in other packages.
type FakeClient struct {
	mu       sync.Mutex
	Replies  []string
	Err      error
	Requests []Request
	// Gate, when set, holds every call until it is closed or ctx is done.
	Gate chan struct{}
	// Started, when set, gets a non-blocking send as each call begins.
	Started chan struct{}
}

func (f *FakeClient) Name() string { return "fake" }

// Complete returns the next reply, repeating the last one when exhausted.
func (f *FakeClient) Complete(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	n := len(f.Requests)
	gate, started := f.Gate, f.Started
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Replies) == 0 {
		return "", nil
	}
	i := n - 1
	if i >= len(f.Replies) {
		i = len(f.Replies) - 1
	}
	return f.Replies[i], nil
}

// Calls returns the number of Complete invocations.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}
