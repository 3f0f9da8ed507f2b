// Package favorites tracks the dogs a user marked during one session.
package favorites

import (
	"slices"
	"sync"
)

// Service is an insertion-ordered set of dog ids. Mutations never fail.
type Service struct {
	mu  sync.RWMutex
	ids []string
	set map[string]struct{}
}

// New creates an empty tracker.
func New() *Service {
	return &Service{set: make(map[string]struct{})}
}

// Toggle flips the membership of id and returns the resulting set.
func (s *Service) Toggle(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.set[id]; ok {
		delete(s.set, id)
		s.ids = slices.DeleteFunc(s.ids, func(v string) bool { return v == id })
	} else {
		s.set[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	return slices.Clone(s.ids)
}

// Contains reports whether id is a favorite.
func (s *Service) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[id]
	return ok
}

// Count returns the set size.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// IDs returns the favorites in the order they were added.
func (s *Service) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ids)
}

// CanMatch reports whether a match can be requested.
func (s *Service) CanMatch() bool { return s.Count() > 0 }

// Clear empties the set.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	s.set = make(map[string]struct{})
}
