package common

import "errors"

var (
	ErrModulePaused  = errors.New("module paused")
	ErrReentrantCall = errors.New("reentrant call")
)

// PauseView reports whether a named module is administratively paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module is paused. A nil view or empty module
// name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// ReentrancyGuard makes the host's no-reentrancy contract explicit: a public
// operation that issues external calls must not be entered again before it
// completes. The host serializes operations, so no mutex is needed here.
type ReentrancyGuard struct {
	inFlight bool
}

// Enter marks the guard as busy. It fails when the guard is already held.
func (g *ReentrancyGuard) Enter() error {
	if g == nil {
		return nil
	}
	if g.inFlight {
		return ErrReentrantCall
	}
	g.inFlight = true
	return nil
}

// Exit releases the guard.
func (g *ReentrancyGuard) Exit() {
	if g == nil {
		return
	}
	g.inFlight = false
}
