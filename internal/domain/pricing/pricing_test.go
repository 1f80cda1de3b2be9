package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentals/internal/domain/items"
	"rentals/internal/domain/shared/daterange"
	"rentals/internal/domain/shared/failure"
	"rentals/internal/domain/shared/money"
)

func period(t *testing.T, d time.Duration) daterange.DateRange {
	t.Helper()
	start := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	dr, err := daterange.New(start, start.Add(d))
	require.NoError(t, err)
	return dr
}

func drill() *items.Item {
	return &items.Item{
		ID:          "item-1",
		OwnerID:     "owner-1",
		PricePerDay: money.Must(5000, "USD"),
		Deposit:     money.Must(10000, "USD"),
		Available:   true,
	}
}

func TestComputeDailyPrice(t *testing.T) {
	q, err := Calculator{}.Compute(drill(), period(t, 5*24*time.Hour), DeliveryRequest{}, money.Percent(10))
	require.NoError(t, err)

	assert.Equal(t, UnitDay, q.Unit)
	assert.Equal(t, int64(5), q.Days)
	assert.Equal(t, "250.00", q.BasePrice.Decimal())
	assert.Equal(t, "0.00", q.DeliveryFee.Decimal())
	assert.Equal(t, "25.00", q.PlatformFee.Decimal())
	assert.Equal(t, "275.00", q.Total.Decimal())
	assert.Equal(t, "100.00", q.Deposit.Decimal())
}

func TestComputeIsDeterministic(t *testing.T) {
	item := drill()
	item.DeliveryAvailable = true
	item.DeliveryFee = money.Must(1234, "USD")
	p := period(t, 3*24*time.Hour)
	req := DeliveryRequest{Requested: true, Address: "Main St 1"}

	first, err := Calculator{}.Compute(item, p, req, money.Rate(750))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Calculator{}.Compute(item, p, req, money.Rate(750))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	// (150.00 + 12.34) * 7.5% = 12.1755 -> 12.18
	assert.Equal(t, "12.18", first.PlatformFee.Decimal())
	assert.Equal(t, "174.52", first.Total.Decimal())
}

func TestComputeFallsBackToHourlyPrice(t *testing.T) {
	item := drill()
	item.PricePerDay = money.Money{}
	item.PricePerHour = money.Must(300, "USD")

	q, err := Calculator{}.Compute(item, period(t, 26*time.Hour), DeliveryRequest{}, money.Percent(10))
	require.NoError(t, err)
	assert.Equal(t, UnitHour, q.Unit)
	assert.Equal(t, int64(26), q.Units)
	assert.Equal(t, "78.00", q.BasePrice.Decimal())
	assert.Equal(t, "7.80", q.PlatformFee.Decimal())
}

func TestComputeRejectsSubDayPeriods(t *testing.T) {
	item := drill()
	item.PricePerDay = money.Money{}
	item.PricePerHour = money.Must(300, "USD")

	_, err := Calculator{}.Compute(item, period(t, 5*time.Hour), DeliveryRequest{}, money.Percent(10))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
	assert.True(t, failure.IsKind(err, failure.Validation))
}

func TestComputeFailures(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*items.Item)
		delivery DeliveryRequest
		rate     money.Rate
		want     error
		kind     failure.Kind
	}{
		{
			name:   "no price",
			mutate: func(i *items.Item) { i.PricePerDay = money.Money{} },
			rate:   money.Percent(10),
			want:   ErrNoPriceConfigured,
			kind:   failure.Validation,
		},
		{
			name:     "delivery not offered",
			delivery: DeliveryRequest{Requested: true, Address: "Main St 1"},
			rate:     money.Percent(10),
			want:     ErrDeliveryUnavailable,
			kind:     failure.DeliveryUnavailable,
		},
		{
			name:     "delivery without address",
			mutate:   func(i *items.Item) { i.DeliveryAvailable = true },
			delivery: DeliveryRequest{Requested: true, Address: "  "},
			rate:     money.Percent(10),
			want:     ErrDeliveryAddressRequired,
			kind:     failure.DeliveryAddressRequired,
		},
		{
			name: "fee rate above 100 percent",
			rate: money.Rate(10001),
			want: ErrInvalidFeeRate,
			kind: failure.Validation,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := drill()
			if tc.mutate != nil {
				tc.mutate(item)
			}
			_, err := Calculator{}.Compute(item, period(t, 2*24*time.Hour), tc.delivery, tc.rate)
			assert.ErrorIs(t, err, tc.want)
			kind, ok := failure.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tc.kind, kind)
		})
	}
}

func TestDeliveryFeeDefaultsToZero(t *testing.T) {
	item := drill()
	item.DeliveryAvailable = true

	q, err := Calculator{}.Compute(item, period(t, 24*time.Hour), DeliveryRequest{Requested: true, Address: "Main St 1"}, money.Percent(10))
	require.NoError(t, err)
	assert.True(t, q.DeliveryFee.IsZero())
	assert.Equal(t, "55.00", q.Total.Decimal())
}
