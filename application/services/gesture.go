package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// GestureTracker hands out single-use drag-session tokens. A drop must
// present the token its drag started with; a move arriving without the
// active token while a drag is in flight is rejected, which keeps a
// re-entrant or programmatic move from interleaving with the gesture.
//
// Sessions expire after a deadline so an abandoned drag (browser lost the
// drop event, tab went to background) can never wedge the outline.
type GestureTracker struct {
	mu        sync.Mutex
	token     string
	startedAt time.Time
	expiry    time.Duration
	now       func() time.Time
}

// NewGestureTracker creates a tracker with the given session expiry
func NewGestureTracker(expiry time.Duration) *GestureTracker {
	return &GestureTracker{
		expiry: expiry,
		now:    time.Now,
	}
}

// Begin starts a drag session and returns its token. Any prior session is
// discarded; only one drag can be in flight per workspace.
func (g *GestureTracker) Begin() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.token = uuid.New().String()
	g.startedAt = g.now()
	return g.token
}

// Active reports whether an unexpired drag session is in flight
func (g *GestureTracker) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activeLocked()
}

// TryConsume ends the session if the token matches and the session has not
// expired. Tokens are single-use: a second consume with the same token
// fails.
func (g *GestureTracker) TryConsume(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.activeLocked() || token == "" || token != g.token {
		return false
	}
	g.token = ""
	return true
}

// End discards the session if the token matches, used when a drag is
// cancelled without a drop.
func (g *GestureTracker) End(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if token == g.token {
		g.token = ""
	}
}

func (g *GestureTracker) activeLocked() bool {
	if g.token == "" {
		return false
	}
	if g.expiry > 0 && g.now().Sub(g.startedAt) > g.expiry {
		g.token = ""
		return false
	}
	return true
}
