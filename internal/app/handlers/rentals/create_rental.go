package rentals

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentals/internal/app/commands"
	"rentals/internal/app/dto"
	"rentals/internal/app/middleware"
	"rentals/internal/app/outbox"
	"rentals/internal/app/policies"
	"rentals/internal/app/uow"
	domainitems "rentals/internal/domain/items"
	"rentals/internal/domain/pricing"
	domainrental "rentals/internal/domain/rental"
)

const CreateRentalKey = "rentals.create"

type CreateRentalCommand struct {
	RentalID          string
	ItemID            string    `validate:"required"`
	RenterID          string    `validate:"required"`
	StartDate         time.Time `validate:"required"`
	EndDate           time.Time `validate:"required"`
	DeliveryRequested bool
	DeliveryAddress   string `validate:"max=512"`
	PaymentMethod     string `validate:"max=64"`
	IdempotencyKeyV   string
}

func (c CreateRentalCommand) Key() string { return CreateRentalKey }

func (c CreateRentalCommand) Actor() string { return c.RenterID }

func (c CreateRentalCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateRentalCommand) ResultPrototype() any { return &dto.RentalResponse{} }

type CreateRentalHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    pricing.Calculator
	Payments   policies.PaymentGateway
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      Clock
	Logger     *slog.Logger
}

func (h *CreateRentalHandler) Handle(ctx context.Context, cmd CreateRentalCommand) (*dto.RentalResponse, error) {
	now := h.Clock.now()
	itemID := domainitems.ItemID(strings.TrimSpace(cmd.ItemID))
	rentalID := domainrental.RentalID(strings.TrimSpace(cmd.RentalID))
	if rentalID == "" {
		rentalID = domainrental.RentalID(uuid.NewString())
	}

	var created *domainrental.Rental
	err := uow.Run(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		item, err := unit.Items().ByID(ctx, itemID)
		if err != nil {
			return err
		}
		if err := domainrental.CheckRenter(item, cmd.RenterID); err != nil {
			return err
		}
		period, err := domainrental.ValidatePeriod(cmd.StartDate, cmd.EndDate, now)
		if err != nil {
			return err
		}

		if err := unit.Lock(ctx, uow.ItemLockKey(item.ID)); err != nil {
			return fmt.Errorf("rentals: lock item %s: %w", item.ID, err)
		}
		conflict, found, err := unit.Availability().HasConflict(ctx, item.ID, period, "")
		if err != nil {
			return err
		}
		if found {
			return conflict.Err()
		}

		rate, err := platformFeeRate(ctx, unit, nil, h.Logger)
		if err != nil {
			return err
		}
		delivery := pricing.DeliveryRequest{Requested: cmd.DeliveryRequested, Address: cmd.DeliveryAddress}
		quote, err := h.Pricing.Compute(item, period, delivery, rate)
		if err != nil {
			return err
		}

		r, err := domainrental.New(domainrental.CreateParams{
			ID:                rentalID,
			Item:              item,
			RenterID:          cmd.RenterID,
			Period:            period,
			Quote:             quote,
			DeliveryRequested: cmd.DeliveryRequested,
			DeliveryAddress:   cmd.DeliveryAddress,
			PaymentMethod:     strings.TrimSpace(cmd.PaymentMethod),
			Now:               now,
		})
		if err != nil {
			return err
		}
		if h.Payments != nil {
			reference, err := h.Payments.CreatePaymentIntent(ctx, quote.Total, r.PaymentMethod)
			if err != nil {
				return fmt.Errorf("rentals: create payment intent: %w", err)
			}
			r.AttachPaymentReference(reference)
		}
		if err := unit.Rentals().Add(ctx, r); err != nil {
			return err
		}
		if err := recordEvents(ctx, h.Outbox, h.Encoder, r); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify(ctx, h.Notifier, h.Logger, rentalNotification(created, created.OwnerID, "rental.requested"))
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "rental requested",
			"rental_id", created.ID,
			"item_id", created.ItemID,
			"renter_id", created.RenterID,
			"total", created.Price.Total.String(),
		)
	}
	resp := dto.MapRental(created)
	return &resp, nil
}

var _ commands.Handler[CreateRentalCommand, *dto.RentalResponse] = (*CreateRentalHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateRentalCommand)(nil)
var _ middleware.ActorCommand = (*CreateRentalCommand)(nil)
