package dto

import (
	"time"

	domainavailability "rentals/internal/domain/availability"
	"rentals/internal/domain/pricing"
	domainrental "rentals/internal/domain/rental"
)

type AvailabilityResult struct {
	ItemID              string    `json:"item_id"`
	StartDate           time.Time `json:"start_date"`
	EndDate             time.Time `json:"end_date"`
	Available           bool      `json:"available"`
	Reason              string    `json:"reason,omitempty"`
	ConflictingRentalID string    `json:"conflicting_rental_id,omitempty"`
}

func MapConflict(result *AvailabilityResult, conflict domainavailability.Conflict, found bool) {
	result.Available = !found
	if found {
		result.Reason = conflict.Reason()
		result.ConflictingRentalID = string(conflict.RentalID)
	}
}

type PriceQuote struct {
	ItemID          string   `json:"item_id"`
	RentalDays      int64    `json:"rental_days"`
	PriceUnit       string   `json:"price_unit"`
	Units           int64    `json:"units"`
	UnitPrice       MoneyDTO `json:"unit_price"`
	BasePrice       MoneyDTO `json:"base_price"`
	DeliveryFee     MoneyDTO `json:"delivery_fee"`
	PlatformFeeRate string   `json:"platform_fee_rate"`
	PlatformFee     MoneyDTO `json:"platform_fee"`
	TotalPrice      MoneyDTO `json:"total_price"`
	DepositRequired MoneyDTO `json:"deposit_required"`
}

func MapQuote(itemID string, q pricing.Quote) PriceQuote {
	return PriceQuote{
		ItemID:          itemID,
		RentalDays:      q.Days,
		PriceUnit:       string(q.Unit),
		Units:           q.Units,
		UnitPrice:       MapMoney(q.UnitPrice),
		BasePrice:       MapMoney(q.BasePrice),
		DeliveryFee:     MapMoney(q.DeliveryFee),
		PlatformFeeRate: q.FeeRate.String(),
		PlatformFee:     MapMoney(q.PlatformFee),
		TotalPrice:      MapMoney(q.Total),
		DepositRequired: MapMoney(q.Deposit),
	}
}

type CalendarEntry struct {
	RentalID string    `json:"rental_id"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Status   string    `json:"status"`
}

type ItemCalendar struct {
	ItemID  string          `json:"item_id"`
	Entries []CalendarEntry `json:"entries"`
}

// MapCalendar keeps only rentals that block the item.
func MapCalendar(itemID string, rentals []*domainrental.Rental) ItemCalendar {
	entries := make([]CalendarEntry, 0, len(rentals))
	for _, r := range rentals {
		if !r.Blocking() {
			continue
		}
		entries = append(entries, CalendarEntry{
			RentalID: string(r.ID),
			From:     r.Period.Start,
			To:       r.Period.End,
			Status:   string(r.Status),
		})
	}
	return ItemCalendar{ItemID: itemID, Entries: entries}
}
