package dto

import (
	"time"

	domainrental "rentals/internal/domain/rental"
)

type RentalResponse struct {
	ID                 string     `json:"id"`
	ItemID             string     `json:"item_id"`
	OwnerID            string     `json:"owner_id"`
	RenterID           string     `json:"renter_id"`
	StartDate          time.Time  `json:"start_date"`
	EndDate            time.Time  `json:"end_date"`
	Status             string     `json:"status"`
	PaymentStatus      string     `json:"payment_status"`
	RentalDays         int64      `json:"rental_days"`
	PriceUnit          string     `json:"price_unit"`
	BasePrice          MoneyDTO   `json:"base_price"`
	DeliveryFee        MoneyDTO   `json:"delivery_fee"`
	PlatformFee        MoneyDTO   `json:"platform_fee"`
	TotalPrice         MoneyDTO   `json:"total_price"`
	DepositRequired    MoneyDTO   `json:"deposit_required"`
	DeliveryRequested  bool       `json:"delivery_requested"`
	DeliveryAddress    string     `json:"delivery_address,omitempty"`
	PaymentMethod      string     `json:"payment_method,omitempty"`
	PaymentReference   string     `json:"payment_reference,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	HandedOverAt       *time.Time `json:"handed_over_at,omitempty"`
	ReturnedAt         *time.Time `json:"returned_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func MapRental(r *domainrental.Rental) RentalResponse {
	if r == nil {
		return RentalResponse{}
	}
	return RentalResponse{
		ID:                 string(r.ID),
		ItemID:             string(r.ItemID),
		OwnerID:            r.OwnerID,
		RenterID:           r.RenterID,
		StartDate:          r.Period.Start,
		EndDate:            r.Period.End,
		Status:             string(r.Status),
		PaymentStatus:      string(r.PaymentStatus),
		RentalDays:         r.Price.Days,
		PriceUnit:          string(r.Price.Unit),
		BasePrice:          MapMoney(r.Price.BasePrice),
		DeliveryFee:        MapMoney(r.Price.DeliveryFee),
		PlatformFee:        MapMoney(r.Price.PlatformFee),
		TotalPrice:         MapMoney(r.Price.Total),
		DepositRequired:    MapMoney(r.DepositPaid),
		DeliveryRequested:  r.DeliveryRequested,
		DeliveryAddress:    r.DeliveryAddress,
		PaymentMethod:      r.PaymentMethod,
		PaymentReference:   r.PaymentReference,
		CancellationReason: r.CancellationReason,
		HandedOverAt:       r.HandedOverAt,
		ReturnedAt:         r.ReturnedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

type RefundOutcome struct {
	RentalID      string   `json:"rental_id"`
	Status        string   `json:"status"`
	PaymentStatus string   `json:"payment_status"`
	RefundPercent int      `json:"refund_percent"`
	RefundAmount  MoneyDTO `json:"refund_amount"`
	DepositRefund MoneyDTO `json:"deposit_refund"`
	RefundMethod  string   `json:"refund_method,omitempty"`
	Refunded      bool     `json:"refunded"`
}

func MapRefund(r *domainrental.Rental, refund domainrental.Refund, refunded bool) RefundOutcome {
	return RefundOutcome{
		RentalID:      string(r.ID),
		Status:        string(r.Status),
		PaymentStatus: string(r.PaymentStatus),
		RefundPercent: refund.Percent,
		RefundAmount:  MapMoney(refund.Amount),
		DepositRefund: MapMoney(refund.Deposit),
		RefundMethod:  refund.Method,
		Refunded:      refunded,
	}
}

type RemovalResult struct {
	RentalID  string    `json:"rental_id"`
	RemovedAt time.Time `json:"removed_at"`
}

type ExpiryReport struct {
	Checked int      `json:"checked"`
	Expired []string `json:"expired"`
	Failed  []string `json:"failed"`
}
