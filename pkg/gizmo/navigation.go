// Package gizmo implements interactive transform manipulation of the
// selected node and the exclusive lock that suspends camera navigation
// while a drag is in progress.
package gizmo

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrNavigationBusy is returned by Acquire while another guard is held.
	ErrNavigationBusy = errors.New("gizmo: navigation already suspended")
	// ErrNotBound is returned when a drag is started with no bound node.
	ErrNotBound = errors.New("gizmo: no node bound")
	// ErrNoDrag is returned by operations that need an active drag.
	ErrNoDrag = errors.New("gizmo: no drag in progress")
)

// Navigation is the host's camera-navigation switch. At most one Guard is
// outstanding; while it is held navigation is disabled.
type Navigation struct {
	mu        sync.Mutex
	owner     string
	held      bool
	acquires  int
	releases  int
	observers []func(enabled bool)
	log       *zap.Logger
}

// NewNavigation returns an enabled navigation switch.
func NewNavigation(logger *zap.Logger) *Navigation {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigation{log: logger}
}

// OnChange registers fn to run whenever navigation is suspended or resumed.
// Callbacks run outside the lock.
func (n *Navigation) OnChange(fn func(enabled bool)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, fn)
}

// Enabled reports whether camera navigation is currently allowed.
func (n *Navigation) Enabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.held
}

// Owner returns the holder of the current guard, or "".
func (n *Navigation) Owner() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.owner
}

// Counts returns how many guards were acquired and released so far.
func (n *Navigation) Counts() (acquired, released int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.acquires, n.releases
}

// Acquire suspends navigation and returns the guard that resumes it.
func (n *Navigation) Acquire(owner string) (*Guard, error) {
	n.mu.Lock()
	if n.held {
		cur := n.owner
		n.mu.Unlock()
		return nil, fmt.Errorf("acquire for %s (held by %s): %w", owner, cur, ErrNavigationBusy)
	}
	n.held = true
	n.owner = owner
	n.acquires++
	observers := append([]func(bool){}, n.observers...)
	n.mu.Unlock()

	n.log.Debug("navigation suspended", zap.String("owner", owner))
	for _, fn := range observers {
		fn(false)
	}
	return &Guard{nav: n, owner: owner}, nil
}

func (n *Navigation) release(owner string) {
	n.mu.Lock()
	n.held = false
	n.owner = ""
	n.releases++
	observers := append([]func(bool){}, n.observers...)
	n.mu.Unlock()

	n.log.Debug("navigation resumed", zap.String("owner", owner))
	for _, fn := range observers {
		fn(true)
	}
}

// Guard is the scoped ownership of a suspended navigation.
type Guard struct {
	nav   *Navigation
	owner string
	once  sync.Once
}

// Release resumes navigation. Only the first call has an effect.
func (g *Guard) Release() {
	if g == nil {
		return
	}
	g.once.Do(func() { g.nav.release(g.owner) })
}
