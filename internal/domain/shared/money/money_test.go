package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRateRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		name   string
		amount int64
		rate   Rate
		want   int64
	}{
		{"ten percent of 250.00", 25000, Percent(10), 2500},
		{"ten percent of 0.05", 5, Percent(10), 1},
		{"ten percent of 0.04", 4, Percent(10), 0},
		{"seven and a half percent", 1000, Rate(750), 75},
		{"negative amount", -5, Percent(10), -1},
		{"zero rate", 12345, 0, 0},
		{"full rate", 12345, Percent(100), 12345},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Must(tc.amount, "usd").ApplyRate(tc.rate)
			assert.Equal(t, tc.want, got.Amount)
			assert.Equal(t, "USD", got.Currency)
		})
	}
}

func TestAddRejectsCurrencyMismatch(t *testing.T) {
	_, err := Must(100, "USD").Add(Must(100, "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = Must(100, "USD").Add(Money{Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestParseAndDecimal(t *testing.T) {
	m, err := Parse("275", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(27500), m.Amount)
	assert.Equal(t, "275.00", m.Decimal())

	m, err = Parse("12.5", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(1250), m.Amount)

	m, err = Parse("-0.07", "USD")
	require.NoError(t, err)
	assert.Equal(t, "-0.07", m.Decimal())

	for _, bad := range []string{"", "1.234", "abc", ".5"} {
		_, err := Parse(bad, "USD")
		assert.ErrorIs(t, err, ErrInvalidDecimal, bad)
	}
}

func TestParseRate(t *testing.T) {
	r, err := ParseRate("10")
	require.NoError(t, err)
	assert.Equal(t, Percent(10), r)

	r, err = ParseRate("7.5%")
	require.NoError(t, err)
	assert.Equal(t, Rate(750), r)
	assert.Equal(t, "7.50%", r.String())

	_, err = ParseRate("101")
	assert.ErrorIs(t, err, ErrInvalidRate)
	_, err = ParseRate("-1")
	assert.ErrorIs(t, err, ErrInvalidRate)
}
