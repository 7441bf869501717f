// Package memory is an in-process DocumentStore. It is the default backend
// for a single server and the store used by tests.
package memory

import (
	"context"
	"sync"

	"secretsanta/internal/models"
	"secretsanta/internal/store"
)

// Store keeps documents in a map and pushes every write to subscribers.
type Store struct {
	mu     sync.RWMutex
	docs   map[string]models.Event
	subs   map[string]map[*store.Feed]struct{}
	writes int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		docs: make(map[string]models.Event),
		subs: make(map[string]map[*store.Feed]struct{}),
	}
}

// Subscribe implements store.DocumentStore.
func (s *Store) Subscribe(ctx context.Context, key string, onSnapshot func(store.Snapshot), onError func(error)) func() {
	feed := store.NewFeed(onSnapshot, onError)

	s.mu.Lock()
	if s.subs[key] == nil {
		s.subs[key] = make(map[*store.Feed]struct{})
	}
	s.subs[key][feed] = struct{}{}
	ev, ok := s.docs[key]
	feed.Push(store.Snapshot{Event: ev, Exists: ok})
	s.mu.Unlock()

	stop := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(stop)
			s.mu.Lock()
			delete(s.subs[key], feed)
			s.mu.Unlock()
			feed.Close()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-stop:
		}
	}()
	return unsubscribe
}

// Get implements store.DocumentStore.
func (s *Store) Get(ctx context.Context, key string) (models.Event, error) {
	if err := ctx.Err(); err != nil {
		return models.Event{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.docs[key]
	if !ok {
		return models.Event{}, store.ErrNotFound
	}
	return ev.Clone(), nil
}

// Set implements store.DocumentStore.
func (s *Store) Set(ctx context.Context, key string, ev models.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(key, ev.Clone())
	return nil
}

// Update implements store.DocumentStore.
func (s *Store) Update(ctx context.Context, key string, fields store.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.docs[key]
	if !ok {
		return store.ErrNotFound
	}
	s.commit(key, fields.Apply(ev))
	return nil
}

// Writes returns the number of committed writes, for tests that assert a
// rejected operation left the store untouched.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// commit must be called with s.mu held.
func (s *Store) commit(key string, ev models.Event) {
	s.docs[key] = ev
	s.writes++
	for feed := range s.subs[key] {
		feed.Push(store.Snapshot{Event: ev, Exists: true})
	}
}
