package memorystore

import (
	"sort"
	"strings"
	"sync"
)

// InstrumentStore is the subscription set: unique instrument ids kept in
// sorted order so every run subscribes and prepares storage the same way.
type InstrumentStore struct {
	mu  sync.Mutex
	ids []string
	set map[string]struct{}
}

func NewInstrumentStore(ids ...string) *InstrumentStore {
	s := &InstrumentStore{set: make(map[string]struct{})}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id unless it is blank or already present. It reports whether
// the set changed.
func (s *InstrumentStore) Add(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.set[id]; ok {
		return false
	}
	s.set[id] = struct{}{}
	i := sort.SearchStrings(s.ids, id)
	s.ids = append(s.ids, "")
	copy(s.ids[i+1:], s.ids[i:])
	s.ids[i] = id
	return true
}

func (s *InstrumentStore) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set[id]
	return ok
}

// GetAll returns a copy of the ids in sorted order.
func (s *InstrumentStore) GetAll() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Topics returns one feed subscription topic per instrument, "depth.<id>".
func (s *InstrumentStore) Topics() []string {
	ids := s.GetAll()
	topics := make([]string, len(ids))
	for i, id := range ids {
		topics[i] = "depth." + id
	}
	return topics
}
