package session

import "sync"

// IdentitySlot persists the normalized name of the acting participant for
// the lifetime of one client session.
type IdentitySlot interface {
	Load() string
	Save(name string)
	Clear()
}

// MemorySlot is an IdentitySlot for clients that live in one process.
type MemorySlot struct {
	mu   sync.Mutex
	name string
}

// Load implements IdentitySlot.
func (s *MemorySlot) Load() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Save implements IdentitySlot.
func (s *MemorySlot) Save(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// Clear implements IdentitySlot.
func (s *MemorySlot) Clear() {
	s.Save("")
}
