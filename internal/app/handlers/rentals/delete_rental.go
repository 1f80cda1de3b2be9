package rentals

import (
	"context"
	"log/slog"

	"rentals/internal/app/commands"
	"rentals/internal/app/dto"
	"rentals/internal/app/outbox"
	"rentals/internal/app/uow"
	domainrental "rentals/internal/domain/rental"
)

const DeleteRentalKey = "rentals.delete"

type DeleteRentalCommand struct {
	RentalID string `validate:"required"`
}

func (c DeleteRentalCommand) Key() string { return DeleteRentalKey }

// DeleteRentalHandler soft-deletes rentals that never reached handover and
// hold no captured payment.
type DeleteRentalHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      Clock
	Logger     *slog.Logger
}

func (h *DeleteRentalHandler) Handle(ctx context.Context, cmd DeleteRentalCommand) (*dto.RemovalResult, error) {
	id, err := parseRentalID(cmd.RentalID)
	if err != nil {
		return nil, err
	}
	now := h.Clock.now()

	var removed *domainrental.Rental
	err = uow.Run(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := loadLocked(ctx, unit, id)
		if err != nil {
			return err
		}
		if err := r.MarkRemoved(now); err != nil {
			return err
		}
		if err := unit.Rentals().Remove(ctx, r); err != nil {
			return err
		}
		if err := recordEvents(ctx, h.Outbox, h.Encoder, r); err != nil {
			return err
		}
		removed = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "rental removed", "rental_id", removed.ID, "item_id", removed.ItemID)
	}
	return &dto.RemovalResult{RentalID: string(removed.ID), RemovedAt: *removed.RemovedAt}, nil
}

var _ commands.Handler[DeleteRentalCommand, *dto.RemovalResult] = (*DeleteRentalHandler)(nil)
