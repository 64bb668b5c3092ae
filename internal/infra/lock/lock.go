// Package lock serialises mutations of a single account so the
// read-modify-write of balances, limits and invoice amounts never interleaves.
package lock

import (
	"context"
	"sync"
)

// Local is an in-process keyed mutex. It is enough when a single API
// process owns the data.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch      chan struct{}
	waiters int
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

// Lock blocks until accountID is free or ctx is done.
func (l *Local) Lock(ctx context.Context, accountID string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[accountID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[accountID] = s
	}
	s.waiters++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(accountID, s, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(accountID, s, true) })
	}, nil
}

func (l *Local) release(accountID string, s *slot, held bool) {
	if held {
		<-s.ch
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	s.waiters--
	if s.waiters == 0 {
		delete(l.slots, accountID)
	}
}
