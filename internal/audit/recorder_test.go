package audit

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/database"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
)

func newRecorder(t *testing.T) (*Recorder, *database.DB) {
	db := database.OpenTest(t)
	r := NewRecorder(db, zerolog.Nop())
	t.Cleanup(r.Close)
	return r, db
}

func TestRecordInTransaction(t *testing.T) {
	r, db := newRecorder(t)

	err := db.WithTx(func(tx *sql.Tx) error {
		r.Record(tx, model.AuditEntry{
			TenantID:   "t1",
			Action:     "journal.post",
			EntityType: "journal_entry",
			TargetID:   "e1",
			ActorID:    "u1",
			Details:    "entry 2025-01-00001",
		})
		return nil
	})
	require.NoError(t, err)

	entries, err := r.List("t1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "journal.post", entries[0].Action)
	assert.Equal(t, "u1", entries[0].ActorID)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestRecordRollsBackWithTransaction(t *testing.T) {
	r, db := newRecorder(t)

	tx, err := db.Conn().Begin()
	require.NoError(t, err)
	r.Record(tx, model.AuditEntry{TenantID: "t1", Action: "account.create"})
	require.NoError(t, tx.Rollback())

	entries, err := r.List("t1", 10)
	require.NoError(t, err)
	assert.Empty(t, entries, "audit rides the caller's transaction")
}

func TestListScopedByTenant(t *testing.T) {
	r, _ := newRecorder(t)

	r.RecordDirect(model.AuditEntry{TenantID: "t1", Action: "a"})
	r.RecordDirect(model.AuditEntry{TenantID: "t2", Action: "b"})

	entries, err := r.List("t1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Action)
}
