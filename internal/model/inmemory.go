package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/feliperosa/trainvault/internal/training"
)

// InMemoryHandle keeps the training set in-process. It serves as the fallback
// when no remote model is configured, and as the test double.
type InMemoryHandle struct {
	mu      sync.RWMutex
	records []training.Record
}

func NewInMemoryHandle() *InMemoryHandle {
	return &InMemoryHandle{}
}

func (h *InMemoryHandle) ListAll(_ context.Context) ([]training.Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]training.Record, len(h.records))
	copy(out, h.records)
	return out, nil
}

func (h *InMemoryHandle) Add(_ context.Context, recordType training.RecordType, content, question string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, training.Record{
		RecordID: uuid.NewString(),
		Type:     recordType,
		Content:  content,
		Question: question,
	})
	return nil
}

func (h *InMemoryHandle) Remove(_ context.Context, recordID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, r := range h.records {
		if r.RecordID == recordID {
			h.records = append(h.records[:i], h.records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("record %s: %w", recordID, training.ErrNotFound)
}

// Seed injects records with fixed ids. Intended for tests and local bootstrap.
func (h *InMemoryHandle) Seed(records ...training.Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, records...)
}
