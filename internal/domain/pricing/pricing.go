package pricing

import (
	"strings"

	"rentals/internal/domain/items"
	"rentals/internal/domain/shared/daterange"
	"rentals/internal/domain/shared/failure"
	"rentals/internal/domain/shared/money"
)

var (
	ErrInvalidDateRange        = failure.New(failure.Validation, "pricing: rental must span at least one whole day")
	ErrNoPriceConfigured       = failure.New(failure.Validation, "pricing: item has neither a daily nor an hourly price")
	ErrDeliveryUnavailable     = failure.New(failure.DeliveryUnavailable, "pricing: item does not offer delivery")
	ErrDeliveryAddressRequired = failure.New(failure.DeliveryAddressRequired, "pricing: delivery address is required")
	ErrInvalidFeeRate          = failure.New(failure.Validation, "pricing: platform fee rate out of range")
)

type Unit string

const (
	UnitDay  Unit = "day"
	UnitHour Unit = "hour"
)

type DeliveryRequest struct {
	Requested bool
	Address   string
}

// Quote is the price snapshot stored on a rental. Deposit is tracked
// separately and is not part of Total.
type Quote struct {
	Days        int64
	Units       int64
	Unit        Unit
	UnitPrice   money.Money
	BasePrice   money.Money
	DeliveryFee money.Money
	FeeRate     money.Rate
	PlatformFee money.Money
	Total       money.Money
	Deposit     money.Money
}

// Calculator is stateless; the zero value is ready to use.
type Calculator struct{}

func (Calculator) Compute(item *items.Item, period daterange.DateRange, delivery DeliveryRequest, feeRate money.Rate) (Quote, error) {
	if err := feeRate.Validate(); err != nil {
		return Quote{}, ErrInvalidFeeRate
	}
	days := period.Days()
	if days <= 0 {
		return Quote{}, ErrInvalidDateRange
	}
	quote := Quote{Days: days, FeeRate: feeRate}
	switch {
	case item.HasDailyPrice():
		quote.Unit = UnitDay
		quote.Units = days
		quote.UnitPrice = item.PricePerDay
	case item.HasHourlyPrice():
		quote.Unit = UnitHour
		quote.Units = period.Hours()
		quote.UnitPrice = item.PricePerHour
	default:
		return Quote{}, ErrNoPriceConfigured
	}
	currency := quote.UnitPrice.Currency
	quote.BasePrice = quote.UnitPrice.Multiply(quote.Units)

	quote.DeliveryFee = money.Zero(currency)
	if delivery.Requested {
		if !item.DeliveryAvailable {
			return Quote{}, ErrDeliveryUnavailable
		}
		if strings.TrimSpace(delivery.Address) == "" {
			return Quote{}, ErrDeliveryAddressRequired
		}
		quote.DeliveryFee = orZero(item.DeliveryFee, currency)
	}

	subtotal, err := quote.BasePrice.Add(quote.DeliveryFee)
	if err != nil {
		return Quote{}, err
	}
	quote.PlatformFee = subtotal.ApplyRate(feeRate)
	quote.Total, err = subtotal.Add(quote.PlatformFee)
	if err != nil {
		return Quote{}, err
	}
	quote.Deposit = orZero(item.Deposit, currency)
	return quote, nil
}

func orZero(m money.Money, currency string) money.Money {
	if m.Currency == "" {
		return money.Zero(currency)
	}
	return m
}
