package session

import "sync/atomic"

// Gate runs an action at most once, however many triggers fire.
type Gate struct {
	fired atomic.Bool
}

// Do runs fn if the gate has not fired yet and reports whether it ran.
func (g *Gate) Do(fn func()) bool {
	if !g.fired.CompareAndSwap(false, true) {
		return false
	}
	fn()
	return true
}

// Fired reports whether the gate has been triggered.
func (g *Gate) Fired() bool { return g.fired.Load() }
