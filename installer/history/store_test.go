package history

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewPostgresStoreFromDB(sqlxDB), mock
}

func TestRecordInsertsRow(t *testing.T) {
	store, mock := newMockStore(t)

	rec := Record{
		OldVersion:   "5.1.0",
		NewVersion:   "5.2.0",
		RecoveryPath: "CQCBackup-20260730_120000-5_1_0",
		Components:   "MasterServer,WebServer",
		Outcome:      "committed",
		RanAt:        time.Now(),
	}

	mock.ExpectExec("INSERT INTO install_history").
		WithArgs(rec.OldVersion, rec.NewVersion, rec.RecoveryPath, rec.Components, rec.Outcome, rec.RanAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Record(context.Background(), rec)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListReturnsRecordsNewestFirst(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "old_version", "new_version", "recovery_path", "components", "outcome", "ran_at"}).
		AddRow(2, "5.1.0", "5.2.0", "CQCBackup-b", "WebServer", "committed", now).
		AddRow(1, "5.0.0", "5.1.0", "CQCBackup-a", "WebServer", "committed", now.Add(-time.Hour))

	mock.ExpectQuery("SELECT id, old_version").
		WithArgs(50).
		WillReturnRows(rows)

	records, err := store.List(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[0].ID)
	assert.Equal(t, int64(1), records[1].ID)
}
