package credentials

import (
	"sync"

	"hokz.academy/cli/internal/core/domain"
	"hokz.academy/cli/internal/core/ports"
)

// MemoryStore holds the credential record of one role in memory
type MemoryStore struct {
	role domain.Role

	notifyMu    sync.Mutex // serializes change plus notification
	mu          sync.RWMutex
	record      domain.CredentialRecord
	subscribers map[int]func(domain.CredentialRecord)
	nextID      int
}

// NewMemoryStore creates a signed-out store for role
func NewMemoryStore(role domain.Role) *MemoryStore {
	return &MemoryStore{
		role:        role,
		record:      domain.EmptyCredential(role),
		subscribers: make(map[int]func(domain.CredentialRecord)),
	}
}

// Role returns the role this store belongs to
func (s *MemoryStore) Role() domain.Role {
	return s.role
}

// Get returns a copy of the current record
func (s *MemoryStore) Get() domain.CredentialRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.record.Clone()
}

// SetFromLogin replaces the whole record after a login or registration
func (s *MemoryStore) SetFromLogin(record domain.CredentialRecord) {
	record = record.Clone()
	record.Role = s.role

	s.update(func(domain.CredentialRecord) domain.CredentialRecord {
		return record
	})
}

// PatchToken replaces only the access token
func (s *MemoryStore) PatchToken(token string) {
	s.update(func(current domain.CredentialRecord) domain.CredentialRecord {
		current.AccessToken = token
		return current
	})
}

// Clear signs the role out
func (s *MemoryStore) Clear() {
	s.update(func(domain.CredentialRecord) domain.CredentialRecord {
		return domain.EmptyCredential(s.role)
	})
}

// Restore loads a persisted record without notifying subscribers
func (s *MemoryStore) Restore(record domain.CredentialRecord) {
	record = record.Clone()
	record.Role = s.role

	s.mu.Lock()
	s.record = record
	s.mu.Unlock()
}

// Subscribe registers fn to be called with the new record after every change.
// Calls arrive in change order; fn may read the store but must not modify it.
func (s *MemoryStore) Subscribe(fn func(domain.CredentialRecord)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *MemoryStore) update(mutate func(domain.CredentialRecord) domain.CredentialRecord) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.record = mutate(s.record)
	snapshot := s.record.Clone()
	subscribers := make([]func(domain.CredentialRecord), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	// Subscribers run outside the lock so they may read the store again
	for _, fn := range subscribers {
		fn(snapshot)
	}
}

var _ ports.ObservableCredentialStore = (*MemoryStore)(nil)
