// Package schedule decides when fetch cycles are allowed to run.
package schedule

import (
	"sync"
	"time"
)

// Window is a daily quiet period expressed in local hours. A window whose
// start and end are equal never blocks; a start after the end wraps past
// midnight.
type Window struct {
	StartHour int
	EndHour   int
}

// Blocked reports whether t falls inside the window.
func (w Window) Blocked(t time.Time) bool {
	hour := t.Hour()
	switch {
	case w.StartHour < w.EndHour:
		return w.StartHour <= hour && hour < w.EndHour
	case w.StartHour > w.EndHour:
		return hour >= w.StartHour || hour < w.EndHour
	default:
		return false
	}
}

// Gate combines the quiet window with a one-shot override for forced
// refreshes. The override survives until the next fetch attempt consumes it,
// whether or not that attempt succeeds.
type Gate struct {
	mu    sync.Mutex
	win   Window
	force bool
	now   func() time.Time
}

func NewGate(win Window) *Gate {
	return &Gate{win: win, now: time.Now}
}

// Force arms the override for the next cycle.
func (g *Gate) Force() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.force = true
}

// Allowed reports whether a cycle may fetch right now.
func (g *Gate) Allowed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.force || !g.win.Blocked(g.now())
}

// Consume clears the override. Callers run it after every fetch attempt so a
// forced refresh never carries over into a later cycle.
func (g *Gate) Consume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.force = false
}
