package services

import (
	"errors"
	"math/rand/v2"

	"secretsanta/internal/models"
)

// ErrNotEnoughParticipants is returned when a draw is attempted with fewer
// than two users.
var ErrNotEnoughParticipants = errors.New("at least 2 participants are needed for the draw")

// DrawEngine turns a list of users into a single gift-giving cycle.
type DrawEngine struct {
	rng *rand.Rand
}

// NewDrawEngine creates an engine. A nil src uses the global generator.
func NewDrawEngine(src rand.Source) *DrawEngine {
	e := &DrawEngine{}
	if src != nil {
		e.rng = rand.New(src)
	}
	return e
}

// Draw shuffles the user names and links each one to the next, wrapping
// around, so every user gives exactly once and receives exactly once.
// With two users this is a mutual pair.
func (e *DrawEngine) Draw(users []models.User) ([]models.Assignment, error) {
	n := len(users)
	if n < 2 {
		return nil, ErrNotEnoughParticipants
	}

	shuffled := make([]string, n)
	for i, u := range users {
		shuffled[i] = u.Name
	}
	swap := func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] }
	if e != nil && e.rng != nil {
		e.rng.Shuffle(n, swap)
	} else {
		rand.Shuffle(n, swap)
	}

	assignments := make([]models.Assignment, 0, n)
	for i, giver := range shuffled {
		assignments = append(assignments, models.Assignment{
			Giver:    giver,
			Receiver: shuffled[(i+1)%n],
		})
	}
	return assignments, nil
}

// GetAssignment returns the receiver assigned to giver, if any.
func GetAssignment(ev models.Event, giver string) (string, bool) {
	for _, a := range ev.Assignments {
		if a.Giver == giver {
			return a.Receiver, true
		}
	}
	return "", false
}
