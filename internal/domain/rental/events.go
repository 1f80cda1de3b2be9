package rental

import (
	"time"

	"rentals/internal/domain/items"
	"rentals/internal/domain/shared/daterange"
	"rentals/internal/domain/shared/money"
)

type RentalRequested struct {
	RentalID RentalID
	ItemID   items.ItemID
	OwnerID  string
	RenterID string
	Period   daterange.DateRange
	Total    money.Money
	At       time.Time
}

func (e RentalRequested) EventName() string     { return "rental.requested" }
func (e RentalRequested) AggregateID() string   { return string(e.RentalID) }
func (e RentalRequested) OccurredAt() time.Time { return e.At }

type RentalRescheduled struct {
	RentalID RentalID
	ItemID   items.ItemID
	From     daterange.DateRange
	To       daterange.DateRange
	Total    money.Money
	At       time.Time
}

func (e RentalRescheduled) EventName() string     { return "rental.rescheduled" }
func (e RentalRescheduled) AggregateID() string   { return string(e.RentalID) }
func (e RentalRescheduled) OccurredAt() time.Time { return e.At }

type StatusChanged struct {
	RentalID RentalID
	ItemID   items.ItemID
	From     Status
	To       Status
	ActorID  string
	At       time.Time
}

func (e StatusChanged) EventName() string     { return "rental.status_changed" }
func (e StatusChanged) AggregateID() string   { return string(e.RentalID) }
func (e StatusChanged) OccurredAt() time.Time { return e.At }

type PaymentStatusChanged struct {
	RentalID RentalID
	Status   PaymentStatus
	At       time.Time
}

func (e PaymentStatusChanged) EventName() string     { return "rental.payment_status_changed" }
func (e PaymentStatusChanged) AggregateID() string   { return string(e.RentalID) }
func (e PaymentStatusChanged) OccurredAt() time.Time { return e.At }

type RentalCancelled struct {
	RentalID RentalID
	ItemID   items.ItemID
	ActorID  string
	Reason   string
	Refund   money.Money
	Deposit  money.Money
	Method   string
	At       time.Time
}

func (e RentalCancelled) EventName() string     { return "rental.cancelled" }
func (e RentalCancelled) AggregateID() string   { return string(e.RentalID) }
func (e RentalCancelled) OccurredAt() time.Time { return e.At }

type RentalRemoved struct {
	RentalID RentalID
	ItemID   items.ItemID
	At       time.Time
}

func (e RentalRemoved) EventName() string     { return "rental.removed" }
func (e RentalRemoved) AggregateID() string   { return string(e.RentalID) }
func (e RentalRemoved) OccurredAt() time.Time { return e.At }
