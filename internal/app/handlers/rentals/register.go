package rentals

import (
	"log/slog"

	"rentals/internal/app/commands"
	"rentals/internal/app/dto"
	"rentals/internal/app/outbox"
	"rentals/internal/app/policies"
	"rentals/internal/app/queries"
	"rentals/internal/app/uow"
	"rentals/internal/domain/pricing"
	domainrental "rentals/internal/domain/rental"
)

// Dependencies are shared by every rental handler.
type Dependencies struct {
	UoWFactory uow.UoWFactory
	Policy     domainrental.CancellationPolicy
	Payments   policies.PaymentGateway
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      Clock
	Logger     *slog.Logger
}

// Register fills the registries with the rental operations. The table is
// explicit: adding an operation means adding a line here.
func Register(cmds *commands.Registry, qs *queries.Registry, deps Dependencies) {
	calc := pricing.Calculator{}

	commands.RegisterHandler[CreateRentalCommand, *dto.RentalResponse](cmds, CreateRentalKey, &CreateRentalHandler{
		UoWFactory: deps.UoWFactory,
		Pricing:    calc,
		Payments:   deps.Payments,
		Notifier:   deps.Notifier,
		Outbox:     deps.Outbox,
		Encoder:    deps.Encoder,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	})
	commands.RegisterHandler[UpdateRentalCommand, *dto.RentalResponse](cmds, UpdateRentalKey, &UpdateRentalHandler{
		UoWFactory: deps.UoWFactory,
		Pricing:    calc,
		Notifier:   deps.Notifier,
		Outbox:     deps.Outbox,
		Encoder:    deps.Encoder,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	})
	commands.RegisterHandler[DeleteRentalCommand, *dto.RemovalResult](cmds, DeleteRentalKey, &DeleteRentalHandler{
		UoWFactory: deps.UoWFactory,
		Outbox:     deps.Outbox,
		Encoder:    deps.Encoder,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	})
	commands.RegisterHandler[ChangeStatusCommand, *dto.RentalResponse](cmds, ChangeStatusKey, &ChangeStatusHandler{
		UoWFactory: deps.UoWFactory,
		Policy:     deps.Policy,
		Payments:   deps.Payments,
		Notifier:   deps.Notifier,
		Outbox:     deps.Outbox,
		Encoder:    deps.Encoder,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	})
	commands.RegisterHandler[CancelRentalCommand, *dto.RefundOutcome](cmds, CancelRentalKey, &CancelRentalHandler{
		UoWFactory: deps.UoWFactory,
		Policy:     deps.Policy,
		Payments:   deps.Payments,
		Notifier:   deps.Notifier,
		Outbox:     deps.Outbox,
		Encoder:    deps.Encoder,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	})
	commands.RegisterHandler[ExpirePendingRentalsCommand, *dto.ExpiryReport](cmds, ExpirePendingKey, &ExpirePendingRentalsHandler{
		UoWFactory: deps.UoWFactory,
		Policy:     deps.Policy,
		Payments:   deps.Payments,
		Notifier:   deps.Notifier,
		Outbox:     deps.Outbox,
		Encoder:    deps.Encoder,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	})

	queries.RegisterHandler[CheckAvailabilityQuery, dto.AvailabilityResult](qs, CheckAvailabilityKey, &CheckAvailabilityHandler{
		UoWFactory: deps.UoWFactory,
		Logger:     deps.Logger,
	})
	queries.RegisterHandler[QuotePriceQuery, dto.PriceQuote](qs, QuotePriceKey, &QuotePriceHandler{
		UoWFactory: deps.UoWFactory,
		Pricing:    calc,
	})
	queries.RegisterHandler[GetRentalQuery, dto.RentalResponse](qs, GetRentalKey, &GetRentalHandler{UoWFactory: deps.UoWFactory})
	queries.RegisterHandler[ItemCalendarQuery, dto.ItemCalendar](qs, ItemCalendarKey, &ItemCalendarHandler{UoWFactory: deps.UoWFactory})
}
