package rental

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentals/internal/domain/items"
	"rentals/internal/domain/pricing"
	"rentals/internal/domain/shared/daterange"
	"rentals/internal/domain/shared/failure"
	"rentals/internal/domain/shared/money"
)

var now = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

const (
	owner  = "owner-1"
	renter = "renter-1"
)

func testItem() *items.Item {
	return &items.Item{
		ID:          "item-1",
		OwnerID:     owner,
		PricePerDay: money.Must(5000, "USD"),
		Deposit:     money.Must(10000, "USD"),
		Available:   true,
	}
}

func newRental(t *testing.T, start time.Time, days int) *Rental {
	t.Helper()
	item := testItem()
	period, err := daterange.New(start, start.AddDate(0, 0, days))
	require.NoError(t, err)
	quote, err := pricing.Calculator{}.Compute(item, period, pricing.DeliveryRequest{}, money.Percent(10))
	require.NoError(t, err)
	r, err := New(CreateParams{
		ID:            "rental-1",
		Item:          item,
		RenterID:      renter,
		Period:        period,
		Quote:         quote,
		PaymentMethod: "card",
		Now:           now,
	})
	require.NoError(t, err)
	return r
}

func TestNewStartsPendingAndRecordsEvent(t *testing.T) {
	r := newRental(t, now.AddDate(0, 0, 10), 5)

	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, PaymentPending, r.PaymentStatus)
	assert.Equal(t, owner, r.OwnerID)
	assert.Equal(t, "275.00", r.Price.Total.Decimal())
	assert.Equal(t, "100.00", r.DepositPaid.Decimal())
	require.Len(t, r.PendingEvents(), 1)
	assert.Equal(t, "rental.requested", r.PendingEvents()[0].EventName())
}

func TestCheckRenter(t *testing.T) {
	item := testItem()
	assert.ErrorIs(t, CheckRenter(item, owner), ErrSelfRental)
	assert.ErrorIs(t, CheckRenter(item, ""), ErrRenterRequired)
	item.Available = false
	assert.ErrorIs(t, CheckRenter(item, renter), ErrItemUnavailable)
}

func TestValidatePeriod(t *testing.T) {
	_, err := ValidatePeriod(now.AddDate(0, 0, 3), now.AddDate(0, 0, 3), now)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = ValidatePeriod(now.AddDate(0, 0, 3), now.AddDate(0, 0, 1), now)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = ValidatePeriod(now.AddDate(0, 0, -1), now.AddDate(0, 0, 2), now)
	assert.ErrorIs(t, err, ErrStartInPast)
	assert.True(t, failure.IsKind(err, failure.Validation))

	p, err := ValidatePeriod(now.Add(-time.Hour), now.AddDate(0, 0, 2), now)
	require.NoError(t, err, "earlier today is still today")
	assert.Equal(t, int64(2), p.Days())
}

func TestMarkRemovedGuards(t *testing.T) {
	r := newRental(t, now.AddDate(0, 0, 10), 5)
	require.NoError(t, r.SetPaymentStatus(PaymentPaid, now))
	assert.ErrorIs(t, r.MarkRemoved(now), ErrRefundRequired)

	r.Status = StatusActive
	err := r.MarkRemoved(now)
	assert.ErrorIs(t, err, ErrRemoveInvalidState)
	assert.True(t, failure.IsKind(err, failure.InvalidStateTransition))

	r = newRental(t, now.AddDate(0, 0, 10), 5)
	require.NoError(t, r.MarkRemoved(now))
	assert.NotNil(t, r.RemovedAt)
	assert.False(t, r.Blocking())
}

func TestSetPaymentStatusRejectsUnknownValue(t *testing.T) {
	r := newRental(t, now.AddDate(0, 0, 10), 5)
	assert.ErrorIs(t, r.SetPaymentStatus(PaymentStatus("chargeback"), now), ErrInvalidPaymentStatus)
}

func TestRescheduleReplacesPriceSnapshot(t *testing.T) {
	r := newRental(t, now.AddDate(0, 0, 10), 5)
	r.ClearEvents()
	period, err := daterange.New(now.AddDate(0, 0, 20), now.AddDate(0, 0, 22))
	require.NoError(t, err)
	quote, err := pricing.Calculator{}.Compute(testItem(), period, pricing.DeliveryRequest{}, money.Percent(10))
	require.NoError(t, err)

	r.Reschedule(period, quote, pricing.DeliveryRequest{}, now)

	assert.Equal(t, period, r.Period)
	assert.Equal(t, "110.00", r.Price.Total.Decimal())
	require.Len(t, r.PendingEvents(), 1)
	assert.Equal(t, "rental.rescheduled", r.PendingEvents()[0].EventName())
}
