package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/franchise-admin/model"
)

func newMockSqlite(t *testing.T) (*SqliteBackend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &SqliteBackend{db: db}, mock
}

func TestSqliteDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("reports existence", func(t *testing.T) {
		b, mock := newMockSqlite(t)
		mock.ExpectExec("DELETE FROM documents").WithArgs("products", 1).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM documents").WithArgs("products", 2).WillReturnResult(sqlmock.NewResult(0, 0))

		existed, err := b.Delete(ctx, "products", 1)
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = b.Delete(ctx, "products", 2)
		require.NoError(t, err)
		assert.False(t, existed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rows affected error", func(t *testing.T) {
		b, mock := newMockSqlite(t)
		mock.ExpectExec("DELETE FROM documents").
			WithArgs("products", 1).
			WillReturnResult(sqlmock.NewErrorResult(errors.New("rows affected unavailable")))

		existed, err := b.Delete(ctx, "products", 1)
		assert.EqualError(t, err, "rows affected unavailable")
		assert.False(t, existed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSqliteInsertCollision(t *testing.T) {
	b, mock := newMockSqlite(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs("products", 1, `{"id":1}`).
		WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint})
	mock.ExpectRollback()

	err := b.Insert(context.Background(), "products", 1, []byte(`{"id":1}`))
	assert.ErrorIs(t, err, model.ErrIdentityCollision)
	assert.NoError(t, mock.ExpectationsWereMet())
}
