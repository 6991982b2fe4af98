package fixture

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface, *observer.ObservedLogs) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	core, logs := observer.New(zapcore.ErrorLevel)
	mockPool.ExpectPing().WillReturnError(nil)
	store, err := NewPostgresStore(context.Background(), mockPool, zap.New(core))
	require.NoError(t, err)
	return store, mockPool, logs
}

func TestNewPostgresStore(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	pingErr := errors.New("database unavailable")
	mockPool.ExpectPing().WillReturnError(pingErr)

	_, err = NewPostgresStore(context.Background(), mockPool, zap.NewNop())
	assert.ErrorIs(t, err, pingErr)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresClearCollections(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes dependents first and commits", func(t *testing.T) {
		store, mockPool, logs := newMockStore(t)

		mockPool.ExpectBegin()
		mockPool.ExpectExec(regexp.QuoteMeta(`DELETE FROM "seat_statuses"`)).WillReturnResult(pgxmock.NewResult("DELETE", 12))
		mockPool.ExpectExec(regexp.QuoteMeta(`DELETE FROM "booking_seats"`)).WillReturnResult(pgxmock.NewResult("DELETE", 4))
		mockPool.ExpectExec(regexp.QuoteMeta(`DELETE FROM "bookings"`)).WillReturnResult(pgxmock.NewResult("DELETE", 2))
		// Expect Commit AND the subsequent Rollback (which returns ErrTxClosed)
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, store.ClearCollections(ctx, "bookings", "booking_seats", "seat_statuses"))
		assert.NoError(t, mockPool.ExpectationsWereMet())
		assert.Empty(t, logs.All(), "a committed transaction must not log rollback errors")
	})

	t.Run("rolls back when a delete fails", func(t *testing.T) {
		store, mockPool, _ := newMockStore(t)
		execErr := errors.New("permission denied")

		mockPool.ExpectBegin()
		mockPool.ExpectExec(regexp.QuoteMeta(`DELETE FROM "booking_seats"`)).WillReturnError(execErr)
		mockPool.ExpectRollback()

		err := store.ClearCollections(ctx, "bookings", "booking_seats")
		assert.ErrorIs(t, err, execErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("quotes hostile table names", func(t *testing.T) {
		store, mockPool, _ := newMockStore(t)

		mockPool.ExpectBegin()
		mockPool.ExpectExec(regexp.QuoteMeta(`DELETE FROM "x""; DROP TABLE users; --"`)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, store.ClearCollections(ctx, `x"; DROP TABLE users; --`))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		store, mockPool, _ := newMockStore(t)
		beginErr := errors.New("too many connections")
		mockPool.ExpectBegin().WillReturnError(beginErr)

		assert.ErrorIs(t, store.ClearCollections(ctx, "bookings"), beginErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresRemovals(t *testing.T) {
	ctx := context.Background()
	store, mockPool, _ := newMockStore(t)

	mockPool.ExpectExec(regexp.QuoteMeta(sqlDeleteTestFilms)).WithArgs("test movie").WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mockPool.ExpectExec(regexp.QuoteMeta(sqlDeleteUser)).WithArgs("testuser9@example.com").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mockPool.ExpectExec(regexp.QuoteMeta(sqlDeleteUser)).WithArgs("gone@example.com").WillReturnError(errors.New("connection reset"))

	require.NoError(t, store.RemoveTestFilms(ctx, "test movie"))
	require.NoError(t, store.RemoveUser(ctx, "testuser9@example.com"))
	assert.ErrorContains(t, store.RemoveUser(ctx, "gone@example.com"), "connection reset")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
