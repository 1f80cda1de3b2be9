package postgres

import (
	"time"

	domainitems "rentals/internal/domain/items"
	"rentals/internal/domain/pricing"
	domainrental "rentals/internal/domain/rental"
	"rentals/internal/domain/shared/daterange"
	"rentals/internal/domain/shared/money"
)

type itemRow struct {
	ID                string `db:"id"`
	OwnerID           string `db:"owner_id"`
	Title             string `db:"title"`
	Currency          string `db:"currency"`
	PricePerDay       int64  `db:"price_per_day"`
	PricePerHour      int64  `db:"price_per_hour"`
	Deposit           int64  `db:"deposit"`
	DeliveryAvailable bool   `db:"delivery_available"`
	DeliveryFee       int64  `db:"delivery_fee"`
	DeliveryRadiusKm  int    `db:"delivery_radius_km"`
	Available         bool   `db:"available"`
}

var itemColumns = []any{
	"id", "owner_id", "title", "currency", "price_per_day", "price_per_hour", "deposit",
	"delivery_available", "delivery_fee", "delivery_radius_km", "available",
}

func (r itemRow) toDomain() *domainitems.Item {
	m := func(amount int64) money.Money { return money.Money{Amount: amount, Currency: r.Currency} }
	return &domainitems.Item{
		ID:                domainitems.ItemID(r.ID),
		OwnerID:           r.OwnerID,
		Title:             r.Title,
		PricePerDay:       m(r.PricePerDay),
		PricePerHour:      m(r.PricePerHour),
		Deposit:           m(r.Deposit),
		DeliveryAvailable: r.DeliveryAvailable,
		DeliveryFee:       m(r.DeliveryFee),
		DeliveryRadiusKm:  r.DeliveryRadiusKm,
		Available:         r.Available,
	}
}

func itemRowFrom(item *domainitems.Item) itemRow {
	return itemRow{
		ID:                string(item.ID),
		OwnerID:           item.OwnerID,
		Title:             item.Title,
		Currency:          item.Currency(),
		PricePerDay:       item.PricePerDay.Amount,
		PricePerHour:      item.PricePerHour.Amount,
		Deposit:           item.Deposit.Amount,
		DeliveryAvailable: item.DeliveryAvailable,
		DeliveryFee:       item.DeliveryFee.Amount,
		DeliveryRadiusKm:  item.DeliveryRadiusKm,
		Available:         item.Available,
	}
}

type rentalRow struct {
	ID                 string     `db:"id"`
	ItemID             string     `db:"item_id"`
	OwnerID            string     `db:"owner_id"`
	RenterID           string     `db:"renter_id"`
	StartAt            time.Time  `db:"start_at"`
	EndAt              time.Time  `db:"end_at"`
	Status             string     `db:"status"`
	PaymentStatus      string     `db:"payment_status"`
	Currency           string     `db:"currency"`
	Days               int64      `db:"days"`
	Units              int64      `db:"units"`
	Unit               string     `db:"unit"`
	UnitPrice          int64      `db:"unit_price"`
	BasePrice          int64      `db:"base_price"`
	DeliveryFee        int64      `db:"delivery_fee"`
	FeeRate            int64      `db:"fee_rate"`
	PlatformFee        int64      `db:"platform_fee"`
	Total              int64      `db:"total"`
	Deposit            int64      `db:"deposit"`
	DepositPaid        int64      `db:"deposit_paid"`
	DeliveryRequested  bool       `db:"delivery_requested"`
	DeliveryAddress    string     `db:"delivery_address"`
	PaymentMethod      string     `db:"payment_method"`
	PaymentReference   string     `db:"payment_reference"`
	CancellationReason string     `db:"cancellation_reason"`
	CancelledBy        string     `db:"cancelled_by"`
	HandedOverAt       *time.Time `db:"handed_over_at"`
	ReturnedAt         *time.Time `db:"returned_at"`
	RemovedAt          *time.Time `db:"removed_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
	Version            int64      `db:"version"`
}

var rentalColumns = []any{
	"id", "item_id", "owner_id", "renter_id", "start_at", "end_at", "status", "payment_status",
	"currency", "days", "units", "unit", "unit_price", "base_price", "delivery_fee", "fee_rate",
	"platform_fee", "total", "deposit", "deposit_paid", "delivery_requested", "delivery_address",
	"payment_method", "payment_reference", "cancellation_reason", "cancelled_by",
	"handed_over_at", "returned_at", "removed_at", "created_at", "updated_at", "version",
}

func (r rentalRow) toDomain() *domainrental.Rental {
	m := func(amount int64) money.Money { return money.Money{Amount: amount, Currency: r.Currency} }
	return &domainrental.Rental{
		ID:            domainrental.RentalID(r.ID),
		ItemID:        domainitems.ItemID(r.ItemID),
		OwnerID:       r.OwnerID,
		RenterID:      r.RenterID,
		Period:        daterange.DateRange{Start: r.StartAt.UTC(), End: r.EndAt.UTC()},
		Status:        domainrental.Status(r.Status),
		PaymentStatus: domainrental.PaymentStatus(r.PaymentStatus),
		Price: pricing.Quote{
			Days:        r.Days,
			Units:       r.Units,
			Unit:        pricing.Unit(r.Unit),
			UnitPrice:   m(r.UnitPrice),
			BasePrice:   m(r.BasePrice),
			DeliveryFee: m(r.DeliveryFee),
			FeeRate:     money.Rate(r.FeeRate),
			PlatformFee: m(r.PlatformFee),
			Total:       m(r.Total),
			Deposit:     m(r.Deposit),
		},
		DepositPaid:        m(r.DepositPaid),
		DeliveryRequested:  r.DeliveryRequested,
		DeliveryAddress:    r.DeliveryAddress,
		PaymentMethod:      r.PaymentMethod,
		PaymentReference:   r.PaymentReference,
		CancellationReason: r.CancellationReason,
		CancelledBy:        r.CancelledBy,
		HandedOverAt:       utcPtr(r.HandedOverAt),
		ReturnedAt:         utcPtr(r.ReturnedAt),
		RemovedAt:          utcPtr(r.RemovedAt),
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
		Version:            r.Version,
	}
}

func rentalRowFrom(r *domainrental.Rental) rentalRow {
	return rentalRow{
		ID:                 string(r.ID),
		ItemID:             string(r.ItemID),
		OwnerID:            r.OwnerID,
		RenterID:           r.RenterID,
		StartAt:            r.Period.Start,
		EndAt:              r.Period.End,
		Status:             string(r.Status),
		PaymentStatus:      string(r.PaymentStatus),
		Currency:           r.Price.Total.Currency,
		Days:               r.Price.Days,
		Units:              r.Price.Units,
		Unit:               string(r.Price.Unit),
		UnitPrice:          r.Price.UnitPrice.Amount,
		BasePrice:          r.Price.BasePrice.Amount,
		DeliveryFee:        r.Price.DeliveryFee.Amount,
		FeeRate:            int64(r.Price.FeeRate),
		PlatformFee:        r.Price.PlatformFee.Amount,
		Total:              r.Price.Total.Amount,
		Deposit:            r.Price.Deposit.Amount,
		DepositPaid:        r.DepositPaid.Amount,
		DeliveryRequested:  r.DeliveryRequested,
		DeliveryAddress:    r.DeliveryAddress,
		PaymentMethod:      r.PaymentMethod,
		PaymentReference:   r.PaymentReference,
		CancellationReason: r.CancellationReason,
		CancelledBy:        r.CancelledBy,
		HandedOverAt:       r.HandedOverAt,
		ReturnedAt:         r.ReturnedAt,
		RemovedAt:          r.RemovedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		Version:            r.Version,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
