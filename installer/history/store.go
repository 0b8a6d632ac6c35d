// Package history implements the install-history ledger: a supplemental
// feature (SPEC_FULL.md §4) recording every swap's old/new version,
// timestamp, and recovery directory, which the original narrates to the
// user during a session but never persists.
package history

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Record is one persisted install/upgrade event.
type Record struct {
	ID           int64     `db:"id" json:"id"`
	OldVersion   string    `db:"old_version" json:"old_version"`
	NewVersion   string    `db:"new_version" json:"new_version"`
	RecoveryPath string    `db:"recovery_path" json:"recovery_path"`
	Components   string    `db:"components" json:"components"`
	Outcome      string    `db:"outcome" json:"outcome"`
	RanAt        time.Time `db:"ran_at" json:"ran_at"`
}

// Store persists and retrieves install history records. A nil Store is a
// valid no-op: the history ledger is optional (spec.md's IVSE core does
// not depend on it), enabled only when CQCSRV_HISTORY_DSN is set.
type Store interface {
	Record(ctx context.Context, rec Record) error
	List(ctx context.Context, limit int) ([]Record, error)
}

// PostgresStore is a Store backed by Postgres via sqlx + lib/pq.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore opens dsn and verifies connectivity.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an already-open *sqlx.DB, used by tests
// with a sqlmock-backed connection.
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const insertRecordSQL = `
INSERT INTO install_history (old_version, new_version, recovery_path, components, outcome, ran_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

// Record inserts rec.
func (s *PostgresStore) Record(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, insertRecordSQL,
		rec.OldVersion, rec.NewVersion, rec.RecoveryPath, rec.Components, rec.Outcome, rec.RanAt)
	return err
}

const listRecordsSQL = `
SELECT id, old_version, new_version, recovery_path, components, outcome, ran_at
FROM install_history
ORDER BY ran_at DESC
LIMIT $1
`

// List returns up to limit most-recent records, newest first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]Record, error) {
	var records []Record
	if err := s.db.SelectContext(ctx, &records, listRecordsSQL, limit); err != nil {
		return nil, err
	}
	return records, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
