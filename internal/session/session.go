// Package session keeps the per-client login flag.
//
// State lives in client storage under two keys: "isLoggedIn" ("true" or
// "false") and "userEmail". Writes are plain overwrites, last writer wins.
// Pages observe changes through Subscribe instead of re-reading storage on
// a timer; Poller adapts stores that have no change notification.
package session

import (
	"context"
	"sync"

	"github.com/talkincode/storefront/internal/domain"
)

const (
	KeyLoggedIn  = "isLoggedIn"
	KeyUserEmail = "userEmail"
)

// Store is the session state of one client
type Store interface {
	Get(ctx context.Context) (domain.SessionState, error)
	IsLoggedIn(ctx context.Context) bool
	SetLoggedIn(ctx context.Context, email string) error
	Clear(ctx context.Context) error
	// Subscribe emits the current state right away and then every
	// observed change until ctx is done or cancel is called. Slow
	// readers only see the latest state.
	Subscribe(ctx context.Context) (<-chan domain.SessionState, func())
}

// Provider hands out the Store of a client id
type Provider interface {
	ForClient(clientID string) Store
	Close() error
}

// feed is a latest-value channel that is safe to push to after close
type feed struct {
	mu     sync.Mutex
	ch     chan domain.SessionState
	closed bool
}

func newFeed() *feed {
	return &feed{ch: make(chan domain.SessionState, 1)}
}

func (f *feed) push(st domain.SessionState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.ch <- st:
	default:
		select {
		case <-f.ch:
		default:
		}
		f.ch <- st
	}
}

func (f *feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.ch)
}

// closeOnDone runs release once, when ctx is done or when the returned
// cancel func is called, whichever comes first.
func closeOnDone(ctx context.Context, release func()) func() {
	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			release()
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return cancel
}
