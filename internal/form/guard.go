package form

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrPending a submit with the same key is still running
var ErrPending = errors.New("submit already in progress")

// Guard lets one submit per key run at a time. Keys are client id plus form name.
type Guard struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{pending: make(map[string]struct{})}
}

// Pending reports whether a submit for key is running
func (g *Guard) Pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[key]
	return ok
}

// Run executes fn unless a submit for key is already running, in which case
// it returns ErrPending without calling fn.
func (g *Guard) Run(key string, fn func() error) error {
	g.mu.Lock()
	if _, busy := g.pending[key]; busy {
		g.mu.Unlock()
		return ErrPending
	}
	g.pending[key] = struct{}{}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.pending, key)
		g.mu.Unlock()
	}()
	return fn()
}
