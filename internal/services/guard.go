package services

import (
	"errors"
	"sync"
)

// ErrActionInProgress is returned when the same actor triggers an action
// that is still outstanding.
var ErrActionInProgress = errors.New("action already in progress")

// Action names a logical user action guarded against duplicate triggers.
type Action string

const (
	ActionRegister Action = "register"
	ActionDraw     Action = "draw"
	ActionRemove   Action = "remove"
)

// ActionGuard tracks in-flight actions per (action, actor). It is not a lock
// on the event: different actions, or the same action by different actors,
// run freely.
type ActionGuard struct {
	mu       sync.Mutex
	inFlight map[guardKey]struct{}
}

type guardKey struct {
	action Action
	actor  string
}

// NewActionGuard creates an empty guard.
func NewActionGuard() *ActionGuard {
	return &ActionGuard{inFlight: make(map[guardKey]struct{})}
}

// Begin marks the action as started. The returned func must be called when
// it finishes.
func (g *ActionGuard) Begin(action Action, actor string) (func(), error) {
	key := guardKey{action: action, actor: actor}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[key]; busy {
		return nil, ErrActionInProgress
	}
	g.inFlight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, key)
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether the action is outstanding for actor.
func (g *ActionGuard) Busy(action Action, actor string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inFlight[guardKey{action: action, actor: actor}]
	return busy
}
