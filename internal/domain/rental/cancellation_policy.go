package rental

import (
	"errors"
	"time"

	"rentals/internal/domain/shared/failure"
	"rentals/internal/domain/shared/money"
)

var ErrNotCancellable = failure.New(failure.InvalidStateTransition, "rental: only pending or confirmed rentals can be cancelled")

const (
	DefaultFullRefundWindow  = 48 * time.Hour
	DefaultLateRefundPercent = 50
)

// CancellationPolicy decides which share of the total goes back to the
// renter. Deposits are always returned in full.
type CancellationPolicy struct {
	FullRefundWindow  time.Duration
	LateRefundPercent int
}

func DefaultCancellationPolicy() CancellationPolicy {
	return CancellationPolicy{FullRefundWindow: DefaultFullRefundWindow, LateRefundPercent: DefaultLateRefundPercent}
}

func (p CancellationPolicy) Validate() error {
	if p.FullRefundWindow < 0 {
		return errors.New("rental: full refund window cannot be negative")
	}
	if p.LateRefundPercent < 0 || p.LateRefundPercent > 100 {
		return errors.New("rental: late refund percent must be within 0..100")
	}
	return nil
}

// Refund is what the renter is entitled to get back. Captured is false
// while no payment was taken, in which case nothing goes through the gateway.
type Refund struct {
	Percent  int
	Amount   money.Money
	Deposit  money.Money
	Method   string
	Captured bool
}

// Due reports whether anything has to be sent back through the gateway.
func (r Refund) Due() bool {
	return r.Captured && (r.Amount.IsPositive() || r.Deposit.IsPositive())
}

// Total is the refunded share plus the deposit.
func (r Refund) Total() (money.Money, error) {
	return r.Amount.Add(r.Deposit)
}

func (p CancellationPolicy) Evaluate(r *Rental, now time.Time) (Refund, error) {
	var percent int
	switch r.Status {
	case StatusPending:
		percent = 100
	case StatusConfirmed:
		if r.Period.Start.Sub(now) > p.FullRefundWindow {
			percent = 100
		} else {
			percent = clampPercent(p.LateRefundPercent)
		}
	default:
		return Refund{}, ErrNotCancellable
	}
	deposit := r.DepositPaid
	if deposit.Currency == "" {
		deposit = money.Zero(r.Price.Total.Currency)
	}
	return Refund{
		Percent:  percent,
		Amount:   r.Price.Total.ApplyRate(money.Percent(int64(percent))),
		Deposit:  deposit,
		Method:   r.PaymentMethod,
		Captured: r.PaymentStatus == PaymentPaid,
	}, nil
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
