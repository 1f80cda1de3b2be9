package items

import (
	"context"

	"rentals/internal/domain/shared/failure"
	"rentals/internal/domain/shared/money"
)

var ErrItemNotFound = failure.New(failure.NotFound, "items: item not found")

type ItemID string

// Item is a rentable listing. The booking engine only reads it.
type Item struct {
	ID                ItemID
	OwnerID           string
	Title             string
	PricePerDay       money.Money
	PricePerHour      money.Money
	Deposit           money.Money
	DeliveryAvailable bool
	DeliveryFee       money.Money
	DeliveryRadiusKm  int
	Available         bool
}

func (i *Item) HasDailyPrice() bool {
	return i.PricePerDay.IsPositive()
}

func (i *Item) HasHourlyPrice() bool {
	return i.PricePerHour.IsPositive()
}

// Currency is taken from whichever price is set, preferring the daily one.
func (i *Item) Currency() string {
	switch {
	case i.PricePerDay.Currency != "":
		return i.PricePerDay.Currency
	case i.PricePerHour.Currency != "":
		return i.PricePerHour.Currency
	default:
		return i.Deposit.Currency
	}
}

func (i *Item) OwnedBy(userID string) bool {
	return i.OwnerID != "" && i.OwnerID == userID
}

type Repository interface {
	ByID(ctx context.Context, id ItemID) (*Item, error)
}
