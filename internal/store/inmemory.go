package store

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/feliperosa/trainvault/internal/training"
)

// InMemoryStore is a simple in-process backend for local/dev use.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[Scope]map[string]training.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[Scope]map[string]training.Record)}
}

func (s *InMemoryStore) Save(_ context.Context, scope Scope, records []training.Record) error {
	scope = Normalize(scope)

	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.records[scope]
	if bucket == nil {
		bucket = make(map[string]training.Record)
		s.records[scope] = bucket
	}
	for _, r := range records {
		if !r.Valid() {
			log.Printf("[store] skip malformed record %q under scope %s: %v", r.RecordID, scope, training.ErrMalformedRecord)
			continue
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		if prev, ok := bucket[r.RecordID]; ok {
			// Upsert keeps the original insertion time.
			r.CreatedAt = prev.CreatedAt
		}
		bucket[r.RecordID] = r
	}
	return nil
}

func (s *InMemoryStore) Load(_ context.Context, scope Scope) ([]training.Record, error) {
	scope = Normalize(scope)

	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.records[scope]
	out := make([]training.Record, 0, len(bucket))
	for _, r := range bucket {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].RecordID > out[j].RecordID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) GetIDs(_ context.Context, scope Scope) ([]string, error) {
	scope = Normalize(scope)

	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.records[scope]
	ids := make([]string, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *InMemoryStore) Delete(_ context.Context, scope Scope, recordIDs []string) error {
	scope = Normalize(scope)

	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.records[scope]
	for _, id := range recordIDs {
		delete(bucket, id)
	}
	return nil
}

func (s *InMemoryStore) EnsureSchema(_ context.Context) error { return nil }

func (s *InMemoryStore) Close() error { return nil }
