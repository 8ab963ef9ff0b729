package store

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feliperosa/trainvault/internal/training"
)

// PostgresStore persists training records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", training.ErrBackendUnavailable)
	}

	s := &PostgresStore{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema is idempotent and safe to call on every startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS training_records (
			id SERIAL PRIMARY KEY,
			scope TEXT NOT NULL,
			record_id TEXT NOT NULL,
			record_type TEXT NOT NULL,
			content TEXT NOT NULL,
			question TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (scope, record_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_training_records_scope ON training_records (scope, created_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %v: %w", stmt, err, training.ErrBackendUnavailable)
		}
	}
	return nil
}

// Save upserts every record under the given scope. Malformed records (empty
// content) are skipped, and a failure on one item does not silently drop the
// rest: each skip is logged and the first item error is returned after the
// batch finishes.
func (s *PostgresStore) Save(ctx context.Context, scope Scope, records []training.Record) error {
	scope = Normalize(scope)

	var firstErr error
	saved := 0
	for _, r := range records {
		if !r.Valid() {
			log.Printf("[store] skip malformed record %q under scope %s: %v", r.RecordID, scope, training.ErrMalformedRecord)
			continue
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}

		_, err := s.pool.Exec(ctx,
			`INSERT INTO training_records (scope, record_id, record_type, content, question, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (scope, record_id) DO UPDATE SET
				record_type=EXCLUDED.record_type,
				content=EXCLUDED.content,
				question=EXCLUDED.question`,
			string(scope),
			r.RecordID,
			string(r.Type),
			r.Content,
			r.Question,
			r.CreatedAt,
		)
		if err != nil {
			log.Printf("[store] upsert record %q under scope %s failed: %v", r.RecordID, scope, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("upsert record %q: %v: %w", r.RecordID, err, training.ErrBackendUnavailable)
			}
			continue
		}
		saved++
	}

	if firstErr != nil {
		return fmt.Errorf("saved %d/%d records: %w", saved, len(records), firstErr)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, scope Scope) ([]training.Record, error) {
	scope = Normalize(scope)

	rows, err := s.pool.Query(ctx,
		`SELECT record_id, record_type, content, question, created_at
		   FROM training_records WHERE scope=$1 ORDER BY created_at DESC`,
		string(scope),
	)
	if err != nil {
		return nil, fmt.Errorf("load scope %s: %v: %w", scope, err, training.ErrBackendUnavailable)
	}
	defer rows.Close()

	out := make([]training.Record, 0, 16)
	for rows.Next() {
		var (
			r   training.Record
			typ string
		)
		if err := rows.Scan(&r.RecordID, &typ, &r.Content, &r.Question, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		r.Type = training.ParseRecordType(typ)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %v: %w", err, training.ErrBackendUnavailable)
	}
	return out, nil
}

func (s *PostgresStore) GetIDs(ctx context.Context, scope Scope) ([]string, error) {
	scope = Normalize(scope)

	rows, err := s.pool.Query(ctx,
		`SELECT record_id FROM training_records WHERE scope=$1`,
		string(scope),
	)
	if err != nil {
		return nil, fmt.Errorf("list ids for scope %s: %v: %w", scope, err, training.ErrBackendUnavailable)
	}
	defer rows.Close()

	ids := make([]string, 0, 16)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan record id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate id rows: %v: %w", err, training.ErrBackendUnavailable)
	}
	return ids, nil
}

// Delete removes the given ids under scope. Ids that do not exist are ignored.
func (s *PostgresStore) Delete(ctx context.Context, scope Scope, recordIDs []string) error {
	scope = Normalize(scope)
	if len(recordIDs) == 0 {
		return nil
	}

	_, err := s.pool.Exec(ctx,
		`DELETE FROM training_records WHERE scope=$1 AND record_id = ANY($2)`,
		string(scope),
		recordIDs,
	)
	if err != nil {
		return fmt.Errorf("delete %d records under scope %s: %v: %w", len(recordIDs), scope, err, training.ErrBackendUnavailable)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
