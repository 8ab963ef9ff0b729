package store

import (
	"context"
	"strings"

	"github.com/feliperosa/trainvault/internal/training"
)

// Scope is the namespace a persisted record lives under: a tenant id, or the
// global sentinel for records shared across every session.
type Scope string

// ScopeGlobal is the canonical tenant-less scope. The store normalizes every
// empty scope to it so the (scope, record_id) uniqueness constraint holds; the
// database column is never NULL.
const ScopeGlobal Scope = "global"

// Normalize maps an empty or whitespace scope to ScopeGlobal.
func Normalize(s Scope) Scope {
	trimmed := strings.TrimSpace(string(s))
	if trimmed == "" {
		return ScopeGlobal
	}
	return Scope(trimmed)
}

// Store persists training records keyed by (scope, record_id) with upsert
// semantics. Load returns newest first. Delete is idempotent: missing ids are
// ignored.
type Store interface {
	Save(ctx context.Context, scope Scope, records []training.Record) error
	Load(ctx context.Context, scope Scope) ([]training.Record, error)
	GetIDs(ctx context.Context, scope Scope) ([]string, error)
	Delete(ctx context.Context, scope Scope, recordIDs []string) error
	EnsureSchema(ctx context.Context) error
	Close() error
}
