package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	domainitems "rentals/internal/domain/items"
	"rentals/internal/domain/pricing"
	domainrental "rentals/internal/domain/rental"
	"rentals/internal/domain/shared/daterange"
	"rentals/internal/domain/shared/money"
)

func TestRentalDocumentRoundTrip(t *testing.T) {
	usd := func(v int64) money.Money { return money.Must(v, "USD") }
	handed := time.Date(2030, 6, 1, 9, 30, 0, 0, time.UTC)
	r := &domainrental.Rental{
		ID:            "r-1",
		ItemID:        "item-1",
		OwnerID:       "owner",
		RenterID:      "renter",
		Period:        daterange.DateRange{Start: time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2030, 6, 6, 0, 0, 0, 0, time.UTC)},
		Status:        domainrental.StatusActive,
		PaymentStatus: domainrental.PaymentPaid,
		Price: pricing.Quote{
			Days: 5, Units: 5, Unit: pricing.UnitDay,
			UnitPrice: usd(5000), BasePrice: usd(25000), DeliveryFee: usd(0),
			FeeRate: money.Percent(10), PlatformFee: usd(2500), Total: usd(27500), Deposit: usd(10000),
		},
		DepositPaid:  usd(10000),
		HandedOverAt: &handed,
		CreatedAt:    time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    handed,
		Version:      4,
	}

	got := newRentalDocument(r).toAggregate()
	assert.Equal(t, r.Period, got.Period)
	assert.Equal(t, r.Price, got.Price)
	assert.Equal(t, r.DepositPaid, got.DepositPaid)
	require.NotNil(t, got.HandedOverAt)
	assert.True(t, handed.Equal(*got.HandedOverAt))
	assert.Nil(t, got.ReturnedAt)
	assert.Nil(t, got.RemovedAt)
	assert.Equal(t, int64(4), got.Version)
}

func TestItemRepository_ByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		repo := NewItemRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "rentals.items", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "item-1"},
			{Key: "owner_id", Value: "owner"},
			{Key: "currency", Value: "USD"},
			{Key: "price_per_day", Value: int64(5000)},
			{Key: "deposit", Value: int64(10000)},
			{Key: "available", Value: true},
		}))

		item, err := repo.ByID(context.Background(), "item-1")
		require.NoError(mt, err)
		assert.Equal(mt, domainitems.ItemID("item-1"), item.ID)
		assert.Equal(mt, money.Must(5000, "USD"), item.PricePerDay)
		assert.True(mt, item.Available)
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewItemRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rentals.items", mtest.FirstBatch))

		_, err := repo.ByID(context.Background(), "nope")
		assert.ErrorIs(mt, err, domainitems.ErrItemNotFound)
	})
}
