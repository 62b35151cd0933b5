package database

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateIsIdempotent(t *testing.T) {
	db := OpenTest(t)
	require.NoError(t, db.Migrate())
	require.NoError(t, db.Migrate())
}

func TestUniqueEntityCode(t *testing.T) {
	db := OpenTest(t)

	insert := func(id, tenant, code string) error {
		_, err := db.Conn().Exec(
			`INSERT INTO entities (id, tenant_id, code, name, currency, created_at)
			 VALUES (?, ?, ?, 'Test', 'USD', ?)`,
			id, tenant, code, time.Now().Format(time.RFC3339))
		return err
	}

	require.NoError(t, insert("e1", "t1", "PARENT"))
	assert.Error(t, insert("e2", "t1", "PARENT"), "duplicate code within tenant")
	assert.NoError(t, insert("e3", "t2", "PARENT"), "same code in another tenant")
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := OpenTest(t)

	boom := errors.New("boom")
	err := db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO entities (id, tenant_id, code, name, currency, created_at)
			 VALUES ('e1', 't1', 'A', 'Test', 'USD', ?)`,
			time.Now().Format(time.RFC3339))
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM entities`).Scan(&n))
	assert.Equal(t, 0, n, "insert must not survive rollback")
}

func TestWithTxCommits(t *testing.T) {
	db := OpenTest(t)

	err := db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO entities (id, tenant_id, code, name, currency, created_at)
			 VALUES ('e1', 't1', 'A', 'Test', 'USD', ?)`,
			time.Now().Format(time.RFC3339))
		return err
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM entities`).Scan(&n))
	assert.Equal(t, 1, n)
}
