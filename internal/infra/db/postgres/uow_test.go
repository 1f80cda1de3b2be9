package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "rentals/internal/app/outbox"
	"rentals/internal/app/uow"
)

func TestUnitOfWork_LockAndCommit(t *testing.T) {
	db, mock := newMock(t)
	factory := NewUnitOfWorkFactory(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("item:item-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Lock(ctx, uow.ItemLockKey("item-1")))
	require.NoError(t, unit.Commit(ctx))
	assert.ErrorIs(t, unit.Commit(ctx), ErrUnitClosed)
	require.NoError(t, unit.Rollback(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxStore_AddUsesAttachedTransaction(t *testing.T) {
	db, mock := newMock(t)
	factory := NewUnitOfWorkFactory(db)
	store := NewOutboxStore(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "app_outbox"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	txCtx := uow.Attach(ctx, unit)
	require.NoError(t, store.Add(txCtx, appoutbox.EventRecord{
		ID:        "evt-1",
		Name:      "rental.requested",
		Kind:      appoutbox.KindDomainEvent,
		Payload:   []byte(`{}`),
		Aggregate: "r-1",
	}))
	require.NoError(t, unit.Rollback(txCtx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxStore_ClaimEmpty(t *testing.T) {
	db, mock := newMock(t)
	store := NewOutboxStore(db)

	mock.ExpectQuery(`UPDATE app_outbox SET state`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "kind", "payload", "occurred_at", "aggregate", "headers", "attempts"}))

	msg, err := store.Claim(context.Background(), "worker-1")
	require.NoError(t, err)
	assert.Nil(t, msg)
	require.NoError(t, mock.ExpectationsWereMet())
}
