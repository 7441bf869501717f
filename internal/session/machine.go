// Package session derives which screen a client shows from the shared event
// and the identity the client remembers.
package session

import (
	"secretsanta/internal/models"
	"secretsanta/internal/store"
)

// Screen is the page a client is on.
type Screen string

const (
	ScreenLogin  Screen = "login"
	ScreenLobby  Screen = "lobby"
	ScreenResult Screen = "result"
)

// Condition describes the state of the connection to the shared event.
type Condition string

const (
	ConditionLoading     Condition = "loading"
	ConditionReady       Condition = "ready"
	ConditionSetupNeeded Condition = "setup_needed"
	ConditionError       Condition = "error"
)

// Derive computes the screen for an event and identity. prev is accepted
// so callers can feed transitions in order; the rule itself only depends on
// the event and the identity: no identity is Login, a finished draw is
// Result, anything else is Lobby.
func Derive(ev models.Event, identity string, prev Screen) Screen {
	switch {
	case identity == "":
		return ScreenLogin
	case ev.IsDrawComplete:
		return ScreenResult
	default:
		return ScreenLobby
	}
}

// State is everything a client needs to render.
type State struct {
	Screen    Screen
	Condition Condition
	Identity  string
	Event     models.Event
	// ErrorMessage is set while Condition is ConditionError.
	ErrorMessage string
}

// Transition is emitted for every input applied to a Machine.
type Transition struct {
	From, To Screen
	// Reopened is true when the event went from drawn back to open while a
	// participant was looking at their result, i.e. an administrator reset.
	// Clients drop any cached hint when this happens.
	Reopened bool
}

// Machine folds event snapshots, identity changes and feed errors into a
// State. It is not safe for concurrent use; feed it from one goroutine.
type Machine struct {
	state  State
	loaded bool
}

// NewMachine starts on the login screen, waiting for the first snapshot.
func NewMachine(identity string) *Machine {
	m := &Machine{state: State{
		Screen:    ScreenLogin,
		Condition: ConditionLoading,
		Identity:  identity,
	}}
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Loaded reports whether at least one snapshot or error arrived.
func (m *Machine) Loaded() bool {
	return m.loaded
}

// ApplyEvent consumes a new snapshot of the shared event.
func (m *Machine) ApplyEvent(ev models.Event) Transition {
	wasDrawn := m.state.Event.IsDrawComplete
	m.loaded = true
	m.state.Event = ev
	m.state.Condition = ConditionReady
	m.state.ErrorMessage = ""
	t := m.move()
	t.Reopened = t.From == ScreenResult && t.To == ScreenLobby && wasDrawn && !ev.IsDrawComplete
	return t
}

// SetIdentity records a login (non-empty name) or a logout (empty name).
func (m *Machine) SetIdentity(identity string) Transition {
	m.state.Identity = identity
	return m.move()
}

// ApplyError consumes a feed error. Both conditions last until the next
// snapshot; a transient error does not hide a not-provisioned one.
func (m *Machine) ApplyError(err error) {
	m.loaded = true
	if store.IsNotProvisioned(err) {
		m.state.Condition = ConditionSetupNeeded
		m.state.ErrorMessage = ""
		return
	}
	if m.state.Condition == ConditionSetupNeeded {
		return
	}
	m.state.Condition = ConditionError
	m.state.ErrorMessage = err.Error()
}

func (m *Machine) move() Transition {
	from := m.state.Screen
	m.state.Screen = Derive(m.state.Event, m.state.Identity, from)
	return Transition{From: from, To: m.state.Screen}
}
