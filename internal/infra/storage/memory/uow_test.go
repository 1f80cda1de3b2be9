package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentals/internal/app/uow"
	domainitems "rentals/internal/domain/items"
	domainrental "rentals/internal/domain/rental"
	"rentals/internal/domain/shared/daterange"
	"rentals/internal/domain/shared/failure"
	"rentals/internal/domain/shared/money"
)

func seedItem(t *testing.T, f Factory) *domainitems.Item {
	t.Helper()
	item := &domainitems.Item{ID: "item-1", OwnerID: "owner", PricePerDay: money.Must(1000, "USD"), Available: true}
	require.NoError(t, f.ItemsRepo.Save(context.Background(), item))
	return item
}

func newRental(t *testing.T, item *domainitems.Item, id string, start time.Time) *domainrental.Rental {
	t.Helper()
	period, err := daterange.New(start, start.Add(48*time.Hour))
	require.NoError(t, err)
	r, err := domainrental.New(domainrental.CreateParams{
		ID:       domainrental.RentalID(id),
		Item:     item,
		RenterID: "renter",
		Period:   period,
		Now:      start.Add(-72 * time.Hour),
	})
	require.NoError(t, err)
	return r
}

func TestUnitRollbackUndoesWrites(t *testing.T) {
	f := NewFactory()
	item := seedItem(t, f)
	start := time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC)

	unit, err := f.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Rentals().Add(context.Background(), newRental(t, item, "r-1", start)))
	require.NoError(t, unit.Rollback(context.Background()))

	_, err = f.RentalsRepo.ByID(context.Background(), "r-1")
	assert.True(t, failure.IsKind(err, failure.NotFound))
}

func TestUnitRollbackRestoresPreviousVersion(t *testing.T) {
	f := NewFactory()
	item := seedItem(t, f)
	start := time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.RentalsRepo.Add(context.Background(), newRental(t, item, "r-1", start)))

	unit, err := f.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	r, err := unit.Rentals().ByID(context.Background(), "r-1")
	require.NoError(t, err)
	require.NoError(t, r.ChangeStatus(domainrental.StatusConfirmed, "owner", start.Add(-time.Hour)))
	require.NoError(t, unit.Rentals().Update(context.Background(), r))
	require.NoError(t, unit.Rollback(context.Background()))

	stored, err := f.RentalsRepo.ByID(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, domainrental.StatusPending, stored.Status)
	assert.Equal(t, int64(1), stored.Version)
}

func TestUnitCommitKeepsWritesAndReleasesLocks(t *testing.T) {
	f := NewFactory()
	item := seedItem(t, f)
	start := time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC)

	unit, err := f.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Lock(context.Background(), uow.ItemLockKey(item.ID)))
	require.NoError(t, unit.Rentals().Add(context.Background(), newRental(t, item, "r-1", start)))
	require.NoError(t, unit.Commit(context.Background()))

	_, err = f.RentalsRepo.ByID(context.Background(), "r-1")
	require.NoError(t, err)

	other, err := f.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, other.Lock(ctx, uow.ItemLockKey(item.ID)))
	require.NoError(t, other.Rollback(context.Background()))
}

func TestUnitLockBlocksSecondHolder(t *testing.T) {
	f := NewFactory()
	first, err := f.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, first.Lock(context.Background(), "item:x"))
	require.NoError(t, first.Lock(context.Background(), "item:x"), "relocking within a unit is a no-op")

	second, err := f.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, second.Lock(ctx, "item:x"), context.DeadlineExceeded)

	require.NoError(t, first.Commit(context.Background()))
	assert.NoError(t, second.Lock(context.Background(), "item:x"))
	require.NoError(t, second.Commit(context.Background()))
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	f := NewFactory()
	item := seedItem(t, f)

	unit, err := f.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	err = unit.Rentals().Add(context.Background(), newRental(t, item, "r-1", time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC)))
	assert.ErrorIs(t, err, uow.ErrReadOnly)
}

func TestRentalRepositoryDetectsStaleVersion(t *testing.T) {
	repo := NewRentalRepository()
	item := &domainitems.Item{ID: "item-1", OwnerID: "owner", PricePerDay: money.Must(1000, "USD"), Available: true}
	start := time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Add(context.Background(), newRental(t, item, "r-1", start)))

	a, err := repo.ByID(context.Background(), "r-1")
	require.NoError(t, err)
	b, err := repo.ByID(context.Background(), "r-1")
	require.NoError(t, err)

	require.NoError(t, repo.Update(context.Background(), a))
	assert.ErrorIs(t, repo.Update(context.Background(), b), ErrConcurrentUpdate)
}

func TestFactoryRequiresRepositories(t *testing.T) {
	_, err := Factory{}.Begin(context.Background(), uow.TxOptions{})
	assert.ErrorIs(t, err, ErrFactoryMisconfigured)
}
