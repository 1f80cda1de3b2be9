package rentals

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rentals/internal/app/commands"
	"rentals/internal/app/dto"
	"rentals/internal/app/outbox"
	"rentals/internal/app/policies"
	"rentals/internal/app/uow"
	"rentals/internal/domain/pricing"
	domainrental "rentals/internal/domain/rental"
	"rentals/internal/domain/shared/failure"
)

const UpdateRentalKey = "rentals.update"

var (
	ErrNotReschedulable    = failure.New(failure.InvalidStateTransition, "rentals: only pending or confirmed rentals can be rescheduled")
	ErrCancelThroughUpdate = failure.New(failure.Validation, "rentals: cancellation goes through the cancel operation")
)

// UpdateRentalCommand moves a rental to new dates. Nil delivery fields and
// empty statuses keep the stored values.
type UpdateRentalCommand struct {
	RentalID          string    `validate:"required"`
	StartDate         time.Time `validate:"required"`
	EndDate           time.Time `validate:"required"`
	Status            string
	PaymentStatus     string
	DeliveryRequested *bool
	DeliveryAddress   *string
}

func (c UpdateRentalCommand) Key() string { return UpdateRentalKey }

type UpdateRentalHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    pricing.Calculator
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      Clock
	Logger     *slog.Logger
}

func (h *UpdateRentalHandler) Handle(ctx context.Context, cmd UpdateRentalCommand) (*dto.RentalResponse, error) {
	id, err := parseRentalID(cmd.RentalID)
	if err != nil {
		return nil, err
	}
	now := h.Clock.now()

	var (
		updated       *domainrental.Rental
		statusChanged bool
	)
	err = uow.Run(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := loadLocked(ctx, unit, id)
		if err != nil {
			return err
		}
		// Same dates and no delivery change leave booking and price alone,
		// so status and payment updates also apply to active rentals.
		samePeriod := cmd.StartDate.Equal(r.Period.Start) && cmd.EndDate.Equal(r.Period.End)
		if !samePeriod || cmd.DeliveryRequested != nil || cmd.DeliveryAddress != nil {
			if err := h.reschedule(ctx, unit, r, cmd, now); err != nil {
				return err
			}
		}

		if status := strings.TrimSpace(cmd.Status); status != "" {
			target, err := domainrental.ParseStatus(status)
			if err != nil {
				return err
			}
			if target == domainrental.StatusCancelled {
				return ErrCancelThroughUpdate
			}
			if target != r.Status {
				if err := r.ChangeStatus(target, r.OwnerID, now); err != nil {
					return err
				}
				statusChanged = true
			}
		}
		if ps := strings.TrimSpace(cmd.PaymentStatus); ps != "" {
			paymentStatus, err := domainrental.ParsePaymentStatus(ps)
			if err != nil {
				return err
			}
			if err := r.SetPaymentStatus(paymentStatus, now); err != nil {
				return err
			}
		}

		if err := unit.Rentals().Update(ctx, r); err != nil {
			return err
		}
		if err := recordEvents(ctx, h.Outbox, h.Encoder, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify(ctx, h.Notifier, h.Logger, rentalNotification(updated, updated.RenterID, "rental.updated"))
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "rental updated",
			"rental_id", updated.ID,
			"item_id", updated.ItemID,
			"status_changed", statusChanged,
			"total", updated.Price.Total.String(),
		)
	}
	resp := dto.MapRental(updated)
	return &resp, nil
}

// reschedule moves r to the requested period and delivery, repricing it with
// the fee rate stored at creation.
func (h *UpdateRentalHandler) reschedule(ctx context.Context, unit uow.UnitOfWork, r *domainrental.Rental, cmd UpdateRentalCommand, now time.Time) error {
	period, err := domainrental.ValidatePeriod(cmd.StartDate, cmd.EndDate, now)
	if err != nil {
		return err
	}
	if r.Status != domainrental.StatusPending && r.Status != domainrental.StatusConfirmed {
		return ErrNotReschedulable
	}
	item, err := unit.Items().ByID(ctx, r.ItemID)
	if err != nil {
		return err
	}

	conflict, found, err := unit.Availability().HasConflict(ctx, r.ItemID, period, r.ID)
	if err != nil {
		return err
	}
	if found {
		return conflict.Err()
	}

	delivery := pricing.DeliveryRequest{Requested: r.DeliveryRequested, Address: r.DeliveryAddress}
	if cmd.DeliveryRequested != nil {
		delivery.Requested = *cmd.DeliveryRequested
	}
	if cmd.DeliveryAddress != nil {
		delivery.Address = *cmd.DeliveryAddress
	}
	stored := r.Price.FeeRate
	rate, err := platformFeeRate(ctx, unit, &stored, h.Logger)
	if err != nil {
		return err
	}
	quote, err := h.Pricing.Compute(item, period, delivery, rate)
	if err != nil {
		return err
	}
	r.Reschedule(period, quote, delivery, now)
	return nil
}

var _ commands.Handler[UpdateRentalCommand, *dto.RentalResponse] = (*UpdateRentalHandler)(nil)
