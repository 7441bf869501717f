package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/logger"

	"secretsanta/internal/models"
	"secretsanta/internal/store"
)

// EventRepository owns the one shared Event document. Every mutation is a
// read, compute, full-field write sequence without a concurrency token:
// two writers racing within one round trip can lose an update. This matches
// the expected human-paced traffic and is kept on purpose.
type EventRepository struct {
	db  store.DocumentStore
	key string
}

// NewEventRepository binds a repository to the document stored under key.
func NewEventRepository(db store.DocumentStore, key string) *EventRepository {
	return &EventRepository{db: db, key: key}
}

// Key returns the document key of the event.
func (r *EventRepository) Key() string {
	return r.key
}

// Subscribe streams the full Event on every change, starting with the
// current value. A missing document is created with the empty Event; the
// empty value is delivered even if creating it fails, and the failure goes to
// onError. Store errors never close the feed.
func (r *EventRepository) Subscribe(ctx context.Context, onUpdate func(models.Event), onError func(error)) func() {
	return r.db.Subscribe(ctx, r.key, func(s store.Snapshot) {
		if s.Exists {
			onUpdate(s.Event)
			return
		}
		initial := models.NewEvent()
		if err := r.db.Set(ctx, r.key, initial); err != nil {
			logger.Errorf("event %q: create initial document: %v", r.key, err)
			if onError != nil {
				onError(err)
			}
		}
		onUpdate(initial)
	}, func(err error) {
		logger.Warningf("event %q: sync error: %v", r.key, err)
		if onError != nil {
			onError(err)
		}
	})
}

// Read returns the current Event, creating the empty one if absent.
func (r *EventRepository) Read(ctx context.Context) (models.Event, error) {
	ev, err := r.db.Get(ctx, r.key)
	if err == nil {
		return ev, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.Event{}, fmt.Errorf("read event: %w", err)
	}
	initial := models.NewEvent()
	if err := r.db.Set(ctx, r.key, initial); err != nil {
		return models.Event{}, fmt.Errorf("create event: %w", err)
	}
	return initial, nil
}

// ReplaceUsers overwrites the user list.
func (r *EventRepository) ReplaceUsers(ctx context.Context, users []models.User) error {
	if users == nil {
		users = []models.User{}
	}
	if err := r.db.Update(ctx, r.key, store.Fields{Users: &users}); err != nil {
		return fmt.Errorf("replace users: %w", err)
	}
	return nil
}

// ReplaceAssignments overwrites the assignments and the draw flag together.
func (r *EventRepository) ReplaceAssignments(ctx context.Context, assignments []models.Assignment, isDrawComplete bool) error {
	if assignments == nil {
		assignments = []models.Assignment{}
	}
	fields := store.Fields{Assignments: &assignments, IsDrawComplete: &isDrawComplete}
	if err := r.db.Update(ctx, r.key, fields); err != nil {
		return fmt.Errorf("replace assignments: %w", err)
	}
	return nil
}

// ReplaceAll overwrites the whole document.
func (r *EventRepository) ReplaceAll(ctx context.Context, ev models.Event) error {
	if err := r.db.Set(ctx, r.key, ev); err != nil {
		return fmt.Errorf("replace event: %w", err)
	}
	return nil
}
