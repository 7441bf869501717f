// Package store defines the document store the shared event lives in.
//
// A store holds JSON documents under string keys and pushes every committed
// change to subscribers. Writes are whole-field replacements; there is no
// compare-and-swap, so two writers racing a read-modify-write sequence can
// lose one of the updates.
package store

import (
	"context"
	"errors"

	"secretsanta/internal/models"
)

var (
	// ErrNotFound is returned by Get and Update when no document exists.
	ErrNotFound = errors.New("document not found")
	// ErrNotProvisioned marks failures caused by the backing collection not
	// existing. Operators have to create it; retrying does not help.
	ErrNotProvisioned = errors.New("document collection is not provisioned")
)

// IsNotProvisioned reports whether err was caused by a missing collection.
func IsNotProvisioned(err error) bool {
	return errors.Is(err, ErrNotProvisioned)
}

// Snapshot is one observed state of a document.
type Snapshot struct {
	Event  models.Event
	Exists bool
}

// Fields selects the event fields an Update replaces. Nil fields are left
// untouched.
type Fields struct {
	Users          *[]models.User
	Assignments    *[]models.Assignment
	IsDrawComplete *bool
}

// Apply returns ev with the selected fields replaced.
func (f Fields) Apply(ev models.Event) models.Event {
	next := ev.Clone()
	if f.Users != nil {
		next.Users = append(make([]models.User, 0, len(*f.Users)), *f.Users...)
	}
	if f.Assignments != nil {
		next.Assignments = append(make([]models.Assignment, 0, len(*f.Assignments)), *f.Assignments...)
	}
	if f.IsDrawComplete != nil {
		next.IsDrawComplete = *f.IsDrawComplete
	}
	return next
}

// DocumentStore is the collaborator the event repository is built on.
type DocumentStore interface {
	// Subscribe delivers the current snapshot of key and every later change,
	// in order, on one stream per subscriber. Errors go to onError and do not
	// end the subscription. The returned func stops delivery.
	Subscribe(ctx context.Context, key string, onSnapshot func(Snapshot), onError func(error)) (unsubscribe func())
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, key string) (models.Event, error)
	// Set overwrites the whole document, creating it if needed.
	Set(ctx context.Context, key string, ev models.Event) error
	// Update replaces the selected fields of an existing document.
	Update(ctx context.Context, key string, fields Fields) error
}
