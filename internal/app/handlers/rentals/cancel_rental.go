package rentals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rentals/internal/app/commands"
	"rentals/internal/app/dto"
	"rentals/internal/app/middleware"
	"rentals/internal/app/outbox"
	"rentals/internal/app/policies"
	"rentals/internal/app/uow"
	domainrental "rentals/internal/domain/rental"
)

const CancelRentalKey = "rentals.cancel"

type CancelRentalCommand struct {
	RentalID string `validate:"required"`
	ActorID  string `validate:"required"`
	Reason   string `validate:"max=1024"`
}

func (c CancelRentalCommand) Key() string { return CancelRentalKey }

func (c CancelRentalCommand) Actor() string { return c.ActorID }

type CancelRentalHandler struct {
	UoWFactory uow.UoWFactory
	Policy     domainrental.CancellationPolicy
	Payments   policies.PaymentGateway
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      Clock
	Logger     *slog.Logger
}

func (h *CancelRentalHandler) Handle(ctx context.Context, cmd CancelRentalCommand) (*dto.RefundOutcome, error) {
	id, err := parseRentalID(cmd.RentalID)
	if err != nil {
		return nil, err
	}
	now := h.Clock.now()

	var (
		cancelled *domainrental.Rental
		outcome   dto.RefundOutcome
	)
	err = uow.Run(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := loadLocked(ctx, unit, id)
		if err != nil {
			return err
		}
		refund, refunded, err := cancel(ctx, h.Policy, h.Payments, r, cmd.ActorID, cmd.Reason, now)
		if err != nil {
			return err
		}
		if err := unit.Rentals().Update(ctx, r); err != nil {
			return err
		}
		if err := recordEvents(ctx, h.Outbox, h.Encoder, r); err != nil {
			return err
		}
		cancelled = r
		outcome = dto.MapRefund(r, refund, refunded)
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify(ctx, h.Notifier, h.Logger, rentalNotification(cancelled, counterpart(cancelled, cmd.ActorID), "rental.cancelled"))
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "rental cancelled",
			"rental_id", cancelled.ID,
			"actor_id", cmd.ActorID,
			"refund_percent", outcome.RefundPercent,
			"refund", outcome.RefundAmount.Decimal,
			"refunded", outcome.Refunded,
		)
	}
	return &outcome, nil
}

// cancel validates the actor and transition, evaluates the policy, refunds
// through the gateway and applies the cancellation to r. The refund is keyed
// by rental so that a retry after a rolled back unit is not paid out again.
func cancel(ctx context.Context, policy domainrental.CancellationPolicy, payments policies.PaymentGateway, r *domainrental.Rental, actorID, reason string, now time.Time) (domainrental.Refund, bool, error) {
	if err := domainrental.CheckTransition(r, domainrental.StatusCancelled, actorID, now); err != nil {
		return domainrental.Refund{}, false, err
	}
	refund, err := policy.Evaluate(r, now)
	if err != nil {
		return domainrental.Refund{}, false, err
	}
	refunded := false
	if refund.Due() && payments != nil && r.PaymentReference != "" {
		amount, err := refund.Total()
		if err != nil {
			return domainrental.Refund{}, false, err
		}
		refunded, err = payments.Refund(ctx, r.PaymentReference, refundKey(r.ID), amount)
		if err != nil {
			return domainrental.Refund{}, false, fmt.Errorf("rentals: refund %s: %w", r.ID, err)
		}
	}
	if err := r.Cancel(actorID, reason, refund, refunded, now); err != nil {
		return domainrental.Refund{}, false, err
	}
	return refund, refunded, nil
}

func refundKey(id domainrental.RentalID) string {
	return "refund:" + string(id)
}

var _ commands.Handler[CancelRentalCommand, *dto.RefundOutcome] = (*CancelRentalHandler)(nil)
var _ middleware.ActorCommand = (*CancelRentalCommand)(nil)
