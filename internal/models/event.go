package models

// User is a registered participant. Name is always the normalized form and
// is the identity key of the participant.
type User struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Assignment links a giver to the person they have to gift.
type Assignment struct {
	Giver    string `json:"giver"`
	Receiver string `json:"receiver"`
}

// Event is the single shared record of a gift exchange.
// While IsDrawComplete is false, Assignments is empty.
type Event struct {
	Users          []User       `json:"users"`
	Assignments    []Assignment `json:"assignments"`
	IsDrawComplete bool         `json:"isDrawComplete"`
}

// NewEvent returns the empty initial event.
func NewEvent() Event {
	return Event{
		Users:       make([]User, 0),
		Assignments: make([]Assignment, 0),
	}
}

// Participant is the public view of a User, without the password.
type Participant struct {
	Name string `json:"name"`
}

// PublicEvent is the Event as it is sent to clients.
type PublicEvent struct {
	Participants   []Participant `json:"participants"`
	IsDrawComplete bool          `json:"isDrawComplete"`
}

// Public strips secrets from the event. Assignments are never broadcast;
// each participant only learns their own receiver.
func (e Event) Public() PublicEvent {
	participants := make([]Participant, 0, len(e.Users))
	for _, u := range e.Users {
		participants = append(participants, Participant{Name: u.Name})
	}
	return PublicEvent{
		Participants:   participants,
		IsDrawComplete: e.IsDrawComplete,
	}
}

// Clone returns a deep copy, so callers can hand events to other goroutines.
func (e Event) Clone() Event {
	c := Event{
		Users:          make([]User, len(e.Users)),
		Assignments:    make([]Assignment, len(e.Assignments)),
		IsDrawComplete: e.IsDrawComplete,
	}
	copy(c.Users, e.Users)
	copy(c.Assignments, e.Assignments)
	return c
}

// Event rebuilds an Event from its public view. Passwords and assignments
// are not part of the public view and stay empty.
func (p PublicEvent) Event() Event {
	ev := NewEvent()
	for _, pt := range p.Participants {
		ev.Users = append(ev.Users, User{Name: pt.Name})
	}
	ev.IsDrawComplete = p.IsDrawComplete
	return ev
}
