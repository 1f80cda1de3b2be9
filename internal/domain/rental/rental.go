package rental

import (
	"context"
	"strings"
	"time"

	"rentals/internal/domain/items"
	"rentals/internal/domain/pricing"
	"rentals/internal/domain/shared/daterange"
	"rentals/internal/domain/shared/events"
	"rentals/internal/domain/shared/failure"
	"rentals/internal/domain/shared/money"
)

var (
	ErrRentalNotFound       = failure.New(failure.NotFound, "rental: not found")
	ErrInvalidPeriod        = failure.New(failure.Validation, "rental: end date must be after start date")
	ErrStartInPast          = failure.New(failure.Validation, "rental: start date is in the past")
	ErrRenterRequired       = failure.New(failure.Validation, "rental: renter id required")
	ErrSelfRental           = failure.New(failure.SelfRentalForbidden, "rental: owners cannot rent their own items")
	ErrItemUnavailable      = failure.New(failure.ItemUnavailable, "rental: item is not available for rent")
	ErrInvalidPaymentStatus = failure.New(failure.Validation, "rental: unknown payment status")
	ErrInvalidStatus        = failure.New(failure.Validation, "rental: unknown status")
	ErrRemoveInvalidState   = failure.New(failure.InvalidStateTransition, "rental: active or completed rentals cannot be removed")
	ErrRefundRequired       = failure.New(failure.RefundRequired, "rental: paid rentals must be refunded before removal")
)

type RentalID string

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	switch ps := PaymentStatus(strings.ToLower(strings.TrimSpace(value))); ps {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return ps, nil
	default:
		return "", ErrInvalidPaymentStatus
	}
}

// Rental is the booking aggregate. Price fields are a snapshot taken when
// the period was last priced.
type Rental struct {
	ID                 RentalID
	ItemID             items.ItemID
	OwnerID            string
	RenterID           string
	Period             daterange.DateRange
	Status             Status
	PaymentStatus      PaymentStatus
	Price              pricing.Quote
	DepositPaid        money.Money
	DeliveryRequested  bool
	DeliveryAddress    string
	PaymentMethod      string
	PaymentReference   string
	CancellationReason string
	CancelledBy        string
	HandedOverAt       *time.Time
	ReturnedAt         *time.Time
	RemovedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id RentalID) (*Rental, error)
	// ListByItem returns the rentals of an item that were not removed.
	ListByItem(ctx context.Context, itemID items.ItemID) ([]*Rental, error)
	ListByStatus(ctx context.Context, status Status) ([]*Rental, error)
	Add(ctx context.Context, rental *Rental) error
	Update(ctx context.Context, rental *Rental) error
	Remove(ctx context.Context, rental *Rental) error
}

type CreateParams struct {
	ID                RentalID
	Item              *items.Item
	RenterID          string
	Period            daterange.DateRange
	Quote             pricing.Quote
	DeliveryRequested bool
	DeliveryAddress   string
	PaymentMethod     string
	Now               time.Time
}

// CheckRenter rejects unavailable items and owners booking their own items.
func CheckRenter(item *items.Item, renterID string) error {
	if strings.TrimSpace(renterID) == "" {
		return ErrRenterRequired
	}
	if !item.Available {
		return ErrItemUnavailable
	}
	if item.OwnedBy(renterID) {
		return ErrSelfRental
	}
	return nil
}

// ValidatePeriod requires start < end and a start date no earlier than today (UTC).
func ValidatePeriod(start, end, now time.Time) (daterange.DateRange, error) {
	period, err := daterange.New(start, end)
	if err != nil {
		return daterange.DateRange{}, ErrInvalidPeriod
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startDate := time.Date(period.Start.Year(), period.Start.Month(), period.Start.Day(), 0, 0, 0, 0, time.UTC)
	if startDate.Before(today) {
		return daterange.DateRange{}, ErrStartInPast
	}
	return period, nil
}

func New(params CreateParams) (*Rental, error) {
	if err := CheckRenter(params.Item, params.RenterID); err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	r := &Rental{
		ID:                params.ID,
		ItemID:            params.Item.ID,
		OwnerID:           params.Item.OwnerID,
		RenterID:          params.RenterID,
		Period:            params.Period,
		Status:            StatusPending,
		PaymentStatus:     PaymentPending,
		Price:             params.Quote,
		DepositPaid:       params.Quote.Deposit,
		DeliveryRequested: params.DeliveryRequested,
		DeliveryAddress:   strings.TrimSpace(params.DeliveryAddress),
		PaymentMethod:     params.PaymentMethod,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.Record(RentalRequested{
		RentalID: r.ID,
		ItemID:   r.ItemID,
		OwnerID:  r.OwnerID,
		RenterID: r.RenterID,
		Period:   r.Period,
		Total:    r.Price.Total,
		At:       now,
	})
	return r, nil
}

// Blocking reports whether the rental holds its period on the item calendar.
func (r *Rental) Blocking() bool {
	return r.RemovedAt == nil && r.Status.Blocking()
}

func (r *Rental) AttachPaymentReference(reference string) {
	r.PaymentReference = reference
}

// Reschedule moves the rental to a new period with a fresh price snapshot.
func (r *Rental) Reschedule(period daterange.DateRange, quote pricing.Quote, delivery pricing.DeliveryRequest, now time.Time) {
	now = now.UTC()
	previous := r.Period
	r.Period = period
	r.Price = quote
	r.DepositPaid = quote.Deposit
	r.DeliveryRequested = delivery.Requested
	r.DeliveryAddress = ""
	if delivery.Requested {
		r.DeliveryAddress = strings.TrimSpace(delivery.Address)
	}
	r.UpdatedAt = now
	r.Record(RentalRescheduled{RentalID: r.ID, ItemID: r.ItemID, From: previous, To: period, Total: quote.Total, At: now})
}

func (r *Rental) SetPaymentStatus(status PaymentStatus, now time.Time) error {
	if _, err := ParsePaymentStatus(string(status)); err != nil {
		return err
	}
	if r.PaymentStatus == status {
		return nil
	}
	r.PaymentStatus = status
	r.UpdatedAt = now.UTC()
	r.Record(PaymentStatusChanged{RentalID: r.ID, Status: status, At: r.UpdatedAt})
	return nil
}

// ChangeStatus applies a lifecycle transition requested by actorID.
func (r *Rental) ChangeStatus(target Status, actorID string, now time.Time) error {
	if err := CheckTransition(r, target, actorID, now); err != nil {
		return err
	}
	now = now.UTC()
	from := r.Status
	switch target {
	case StatusActive:
		r.HandedOverAt = &now
	case StatusCompleted:
		r.ReturnedAt = &now
	case StatusCancelled:
		r.CancelledBy = actorID
	}
	r.Status = target
	r.UpdatedAt = now
	r.Record(StatusChanged{RentalID: r.ID, ItemID: r.ItemID, From: from, To: target, ActorID: actorID, At: now})
	return nil
}

// Cancel moves the rental to cancelled and records the refund entitlement.
func (r *Rental) Cancel(actorID, reason string, refund Refund, refunded bool, now time.Time) error {
	if err := r.ChangeStatus(StatusCancelled, actorID, now); err != nil {
		return err
	}
	r.CancellationReason = strings.TrimSpace(reason)
	if refunded {
		r.PaymentStatus = PaymentRefunded
	}
	r.Record(RentalCancelled{
		RentalID: r.ID,
		ItemID:   r.ItemID,
		ActorID:  actorID,
		Reason:   r.CancellationReason,
		Refund:   refund.Amount,
		Deposit:  refund.Deposit,
		Method:   refund.Method,
		At:       r.UpdatedAt,
	})
	return nil
}

// MarkRemoved soft-deletes the rental. Paid rentals are kept until refunded.
func (r *Rental) MarkRemoved(now time.Time) error {
	if r.Status == StatusActive || r.Status == StatusCompleted {
		return ErrRemoveInvalidState
	}
	if r.PaymentStatus == PaymentPaid {
		return ErrRefundRequired
	}
	now = now.UTC()
	r.RemovedAt = &now
	r.UpdatedAt = now
	r.Record(RentalRemoved{RentalID: r.ID, ItemID: r.ItemID, At: now})
	return nil
}
