package httpclient

import (
	"context"
	"sync"
)

type refreshResult struct {
	token string
	err   error
}

type refreshWaiter struct {
	ctx context.Context
	ch  chan refreshResult
}

type refreshCall struct {
	waiters []refreshWaiter
}

// refreshCoordinator runs at most one refresh per key at a time. Callers that
// arrive while a refresh is running are queued and released in arrival order
// with the leader's result.
type refreshCoordinator struct {
	mu    sync.Mutex
	calls map[string]*refreshCall

	// onQueued is called for every caller that joins an in-flight refresh.
	onQueued func(ctx context.Context)
	// onRelease is called for each queued caller, in release order, just before
	// it is handed the result.
	onRelease func(ctx context.Context)
}

func newRefreshCoordinator() *refreshCoordinator {
	return &refreshCoordinator{calls: make(map[string]*refreshCall)}
}

// RunExclusive runs fn unless a call for key is already running, in which case it
// waits for that call's result. leader is true for the caller that ran fn.
//
// fn receives a context that is not canceled with ctx: the leader's caller going
// away must not abandon the refresh for everybody queued behind it. A queued
// caller whose ctx ends stops waiting and gets ctx.Err().
func (c *refreshCoordinator) RunExclusive(ctx context.Context, key string, fn func(context.Context) (string, error)) (token string, leader bool, err error) {
	c.mu.Lock()
	if call, ok := c.calls[key]; ok {
		// Buffered so the leader never blocks on a waiter that gave up.
		ch := make(chan refreshResult, 1)
		call.waiters = append(call.waiters, refreshWaiter{ctx: ctx, ch: ch})
		c.mu.Unlock()

		if c.onQueued != nil {
			c.onQueued(ctx)
		}

		select {
		case res := <-ch:
			return res.token, false, res.err
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}

	call := &refreshCall{}
	c.calls[key] = call
	c.mu.Unlock()

	// Stays ErrRefreshAborted if fn panics so waiters never see an empty success.
	res := refreshResult{err: ErrRefreshAborted}
	defer func() {
		c.mu.Lock()
		delete(c.calls, key)
		waiters := call.waiters
		call.waiters = nil
		c.mu.Unlock()

		for _, w := range waiters {
			if c.onRelease != nil {
				c.onRelease(w.ctx)
			}
			w.ch <- res
		}
	}()

	res.token, res.err = fn(context.WithoutCancel(ctx))
	if res.err == nil && res.token == "" {
		res.err = ErrEmptyToken
	}
	return res.token, true, res.err
}

// inFlight reports whether a call for key is running.
func (c *refreshCoordinator) inFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.calls[key]
	return ok
}

// waiting returns the number of callers queued behind key.
func (c *refreshCoordinator) waiting(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if call, ok := c.calls[key]; ok {
		return len(call.waiters)
	}
	return 0
}
