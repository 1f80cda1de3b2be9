package rentals

import (
	"context"
	"log/slog"

	"rentals/internal/app/commands"
	"rentals/internal/app/dto"
	"rentals/internal/app/middleware"
	"rentals/internal/app/outbox"
	"rentals/internal/app/policies"
	"rentals/internal/app/uow"
	domainrental "rentals/internal/domain/rental"
)

const ChangeStatusKey = "rentals.change_status"

type ChangeStatusCommand struct {
	RentalID     string `validate:"required"`
	TargetStatus string `validate:"required"`
	ActorID      string `validate:"required"`
}

func (c ChangeStatusCommand) Key() string { return ChangeStatusKey }

func (c ChangeStatusCommand) Actor() string { return c.ActorID }

// ChangeStatusHandler drives the lifecycle table. Moving to cancelled goes
// through the cancellation policy so that refunds are never skipped.
type ChangeStatusHandler struct {
	UoWFactory uow.UoWFactory
	Policy     domainrental.CancellationPolicy
	Payments   policies.PaymentGateway
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      Clock
	Logger     *slog.Logger
}

func (h *ChangeStatusHandler) Handle(ctx context.Context, cmd ChangeStatusCommand) (*dto.RentalResponse, error) {
	id, err := parseRentalID(cmd.RentalID)
	if err != nil {
		return nil, err
	}
	target, err := domainrental.ParseStatus(cmd.TargetStatus)
	if err != nil {
		return nil, err
	}
	now := h.Clock.now()

	var (
		changed *domainrental.Rental
		from    domainrental.Status
	)
	err = uow.Run(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := loadLocked(ctx, unit, id)
		if err != nil {
			return err
		}
		from = r.Status
		if target == domainrental.StatusCancelled {
			if _, _, err := cancel(ctx, h.Policy, h.Payments, r, cmd.ActorID, "", now); err != nil {
				return err
			}
		} else if err := r.ChangeStatus(target, cmd.ActorID, now); err != nil {
			return err
		}
		if err := unit.Rentals().Update(ctx, r); err != nil {
			return err
		}
		if err := recordEvents(ctx, h.Outbox, h.Encoder, r); err != nil {
			return err
		}
		changed = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify(ctx, h.Notifier, h.Logger, rentalNotification(changed, counterpart(changed, cmd.ActorID), "rental."+string(target)))
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "rental status changed",
			"rental_id", changed.ID,
			"from", from,
			"to", changed.Status,
			"actor_id", cmd.ActorID,
		)
	}
	resp := dto.MapRental(changed)
	return &resp, nil
}

var _ commands.Handler[ChangeStatusCommand, *dto.RentalResponse] = (*ChangeStatusHandler)(nil)
var _ middleware.ActorCommand = (*ChangeStatusCommand)(nil)
