package postgres

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainitems "rentals/internal/domain/items"
	domainrental "rentals/internal/domain/rental"
	"rentals/internal/domain/shared/daterange"
	"rentals/internal/domain/shared/failure"
	"rentals/internal/domain/shared/money"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func columnNames(cols []any) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.(string)
	}
	return out
}

func day(d int) time.Time {
	return time.Date(2030, 6, d, 0, 0, 0, 0, time.UTC)
}

func sampleRental() *domainrental.Rental {
	usd := func(v int64) money.Money { return money.Must(v, "USD") }
	return &domainrental.Rental{
		ID:            "r-1",
		ItemID:        "item-1",
		OwnerID:       "owner",
		RenterID:      "renter",
		Period:        daterange.DateRange{Start: day(1), End: day(6)},
		Status:        domainrental.StatusPending,
		PaymentStatus: domainrental.PaymentPending,
		DepositPaid:   usd(0),
		CreatedAt:     day(1),
		UpdatedAt:     day(1),
		Version:       3,
	}
}

func rentalValues(r rentalRow) []driver.Value {
	return []driver.Value{
		r.ID, r.ItemID, r.OwnerID, r.RenterID, r.StartAt, r.EndAt, r.Status, r.PaymentStatus,
		r.Currency, r.Days, r.Units, r.Unit, r.UnitPrice, r.BasePrice, r.DeliveryFee, r.FeeRate,
		r.PlatformFee, r.Total, r.Deposit, r.DepositPaid, r.DeliveryRequested, r.DeliveryAddress,
		r.PaymentMethod, r.PaymentReference, r.CancellationReason, r.CancelledBy,
		nil, nil, nil, r.CreatedAt, r.UpdatedAt, r.Version,
	}
}

func TestItemRepository_ByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewItemRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(columnNames(itemColumns)).
			AddRow("item-1", "owner", "Drill", "USD", 5000, 0, 10000, true, 2500, 15, true)
		mock.ExpectQuery(`SELECT (.+) FROM "items" WHERE`).
			WithArgs("item-1").
			WillReturnRows(rows)

		item, err := repo.ByID(ctx, "item-1")
		require.NoError(t, err)
		assert.Equal(t, domainitems.ItemID("item-1"), item.ID)
		assert.Equal(t, money.Must(5000, "USD"), item.PricePerDay)
		assert.True(t, item.HasDailyPrice())
		assert.False(t, item.HasHourlyPrice())
		assert.Equal(t, 15, item.DeliveryRadiusKm)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM "items" WHERE`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(columnNames(itemColumns)))

		_, err := repo.ByID(ctx, "missing")
		assert.ErrorIs(t, err, domainitems.ErrItemNotFound)
		assert.True(t, failure.IsKind(err, failure.NotFound))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_UpdateBumpsVersion(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRentalRepository(db)
	r := sampleRental()

	mock.ExpectExec(`UPDATE "rentals" SET (.+) WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), r))
	assert.Equal(t, int64(4), r.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_UpdateStaleVersion(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRentalRepository(db)
	r := sampleRental()

	mock.ExpectExec(`UPDATE "rentals" SET (.+) WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	stored := rentalRowFrom(r)
	stored.Version = 5
	mock.ExpectQuery(`SELECT (.+) FROM "rentals" WHERE`).
		WillReturnRows(sqlmock.NewRows(columnNames(rentalColumns)).AddRow(rentalValues(stored)...))

	err := repo.Update(context.Background(), r)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.Equal(t, int64(3), r.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_UpdateMissingRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRentalRepository(db)

	mock.ExpectExec(`UPDATE "rentals" SET (.+) WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM "rentals" WHERE`).
		WillReturnRows(sqlmock.NewRows(columnNames(rentalColumns)))

	err := repo.Remove(context.Background(), sampleRental())
	assert.ErrorIs(t, err, domainrental.ErrRentalNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_ListByItemMapsRows(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRentalRepository(db)

	row := rentalRowFrom(sampleRental())
	mock.ExpectQuery(`SELECT (.+) FROM "rentals" WHERE (.+) ORDER BY "start_at" ASC`).
		WillReturnRows(sqlmock.NewRows(columnNames(rentalColumns)).AddRow(rentalValues(row)...))

	list, err := repo.ListByItem(context.Background(), "item-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domainrental.RentalID("r-1"), list[0].ID)
	assert.Equal(t, day(1), list[0].Period.Start)
	assert.Nil(t, list[0].RemovedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictChecker(t *testing.T) {
	db, mock := newMock(t)
	checker := NewConflictChecker(db)
	ctx := context.Background()
	period := daterange.DateRange{Start: day(3), End: day(8)}

	t.Run("Conflict", func(t *testing.T) {
		mock.ExpectQuery(`SELECT "id", "start_at", "end_at", "status" FROM "rentals" WHERE`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "start_at", "end_at", "status"}).
				AddRow("r-1", day(1), day(6), "confirmed"))

		conflict, found, err := checker.HasConflict(ctx, "item-1", period, "")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, domainrental.RentalID("r-1"), conflict.RentalID)
		assert.Equal(t, "item already booked from 2030-06-01 to 2030-06-06", conflict.Reason())
	})

	t.Run("Free", func(t *testing.T) {
		mock.ExpectQuery(`SELECT "id", "start_at", "end_at", "status" FROM "rentals" WHERE`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "start_at", "end_at", "status"}))

		_, found, err := checker.HasConflict(ctx, "item-1", period, "r-9")
		require.NoError(t, err)
		assert.False(t, found)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_DefaultsWhenMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingsRepository(db)

	mock.ExpectQuery(`SELECT "fee_rate" FROM "platform_settings"`).
		WillReturnRows(sqlmock.NewRows([]string{"fee_rate"}))

	s, err := repo.PlatformSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, money.Percent(10), s.FeeRate)
	require.NoError(t, mock.ExpectationsWereMet())
}
