package gesture

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum spacing between two accepted gestures.
const DefaultCooldown = 2 * time.Second

// Gate debounces a per-frame gesture stream into sparse events. A gesture is
// accepted only if it is not None and at least the cooldown has elapsed since
// the previously accepted one; the first gesture is always accepted.
type Gate struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     time.Time
	primed   bool
}

// NewGate creates a gate with the given cooldown. Non-positive values fall
// back to DefaultCooldown.
func NewGate(cooldown time.Duration) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Gate{cooldown: cooldown}
}

// Admit returns candidate if it passes the gate at time now, otherwise None. The
// clock only moves on acceptance.
func (g *Gate) Admit(candidate Gesture, now time.Time) Gesture {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.ready(candidate, now) {
		return None
	}
	g.accept(now)
	return candidate
}

// Ready reports whether candidate would pass the gate at time now without
// moving the clock. Callers that can still fail to deliver the gesture use
// Ready and then Commit once it is delivered.
func (g *Gate) Ready(candidate Gesture, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready(candidate, now)
}

// Commit records an accepted gesture at time now.
func (g *Gate) Commit(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accept(now)
}

func (g *Gate) ready(candidate Gesture, now time.Time) bool {
	if candidate == None {
		return false
	}
	return !g.primed || now.Sub(g.last) >= g.cooldown
}

func (g *Gate) accept(now time.Time) {
	g.last = now
	g.primed = true
}

// Cooldown returns the configured window.
func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}

// LastAccepted returns the time of the last accepted gesture and whether any
// gesture has been accepted yet.
func (g *Gate) LastAccepted() (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last, g.primed
}
