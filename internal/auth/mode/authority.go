// Package mode holds the process-wide authentication mode.
//
// The Authority is the single source of truth read by every request and
// written only by the switch-mode operation. Readers take one Snapshot at
// request entry and carry it for the rest of the request, so a concurrent
// switch never produces a request that is half stateless and half stateful.
package mode

import (
	"sync/atomic"

	"storefront/internal/auth/models"
)

// Snapshot is an immutable view of the authority at one instant. Epoch counts
// effective mode changes since process start.
type Snapshot struct {
	Mode  models.AuthMode
	Epoch uint64
}

// Authority is safe for concurrent use. The zero value is not usable; call New.
type Authority struct {
	state atomic.Pointer[Snapshot]
}

// New returns an Authority starting in initial, or in stateless mode when
// initial is not a valid mode.
func New(initial models.AuthMode) *Authority {
	if !initial.IsValid() {
		initial = models.ModeStateless
	}
	a := &Authority{}
	a.state.Store(&Snapshot{Mode: initial})
	return a
}

// Mode returns the active mode without blocking.
func (a *Authority) Mode() models.AuthMode {
	return a.state.Load().Mode
}

// Snapshot returns the active mode and its epoch read together.
func (a *Authority) Snapshot() Snapshot {
	return *a.state.Load()
}

// Switch makes mode the active mode and returns it. Switching to the current
// mode changes nothing, including the epoch. Invalid values are ignored and
// the current mode is returned; callers parse input with models.ParseAuthMode.
func (a *Authority) Switch(mode models.AuthMode) models.AuthMode {
	_, to := a.Transition(mode)
	return to.Mode
}

// Transition is Switch reporting the snapshots on both sides of the change.
// from == to when the call changed nothing, so among concurrent callers
// asking for the same mode exactly one observes the change.
func (a *Authority) Transition(mode models.AuthMode) (from, to Snapshot) {
	for {
		cur := a.state.Load()
		if !mode.IsValid() || cur.Mode == mode {
			return *cur, *cur
		}
		next := &Snapshot{Mode: mode, Epoch: cur.Epoch + 1}
		if a.state.CompareAndSwap(cur, next) {
			return *cur, *next
		}
	}
}
