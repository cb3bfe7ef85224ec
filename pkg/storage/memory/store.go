// Package memory keeps flushed batches in memory. It backs dry runs and
// stands in for durable storage in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"marketwatcher/internal/memorystore"
	"marketwatcher/pkg/storage"
)

// Artifact is one stored flush.
type Artifact struct {
	InstrumentID string
	Key          string
	Ticks        []memorystore.Tick
}

type Store struct {
	mu        sync.Mutex
	prepared  map[string]int
	artifacts []Artifact
	keys      map[string]struct{}
	failures  map[string]error
}

func NewStore() *Store {
	return &Store{
		prepared: make(map[string]int),
		keys:     make(map[string]struct{}),
		failures: make(map[string]error),
	}
}

// FailWrites makes every later Write for instrumentID return err.
// A nil err clears the failure.
func (s *Store) FailWrites(instrumentID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, instrumentID)
		return
	}
	s.failures[instrumentID] = err
}

func (s *Store) Prepare(_ context.Context, instrumentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prepared[instrumentID]++
	return nil
}

func (s *Store) Write(_ context.Context, instrumentID, key string, ticks []memorystore.Tick) error {
	if len(ticks) == 0 {
		return storage.ErrEmptyBatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[instrumentID]; err != nil {
		return err
	}
	if _, ok := s.keys[key]; ok {
		return fmt.Errorf("artifact %s already exists", key)
	}
	s.keys[key] = struct{}{}

	cp := make([]memorystore.Tick, len(ticks))
	copy(cp, ticks)
	s.artifacts = append(s.artifacts, Artifact{InstrumentID: instrumentID, Key: key, Ticks: cp})
	return nil
}

// Prepared reports how many times Prepare ran for instrumentID.
func (s *Store) Prepared(instrumentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prepared[instrumentID]
}

// Artifacts returns every stored flush in write order.
func (s *Store) Artifacts() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Artifact, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

// ArtifactsFor returns the stored flushes of one instrument.
func (s *Store) ArtifactsFor(instrumentID string) []Artifact {
	var out []Artifact
	for _, a := range s.Artifacts() {
		if a.InstrumentID == instrumentID {
			out = append(out, a)
		}
	}
	return out
}
