// Package rentals exposes the booking engine as a service whose operations
// return result.Result values instead of Go errors.
package rentals

import (
	"context"
	"log/slog"
	"time"

	"rentals/internal/app/commands"
	"rentals/internal/app/dto"
	rentalhandlers "rentals/internal/app/handlers/rentals"
	"rentals/internal/app/queries"
	"rentals/internal/app/result"
	"rentals/internal/domain/shared/failure"
)

type Service struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type CreateParams struct {
	ItemID            string
	RenterID          string
	StartDate         time.Time
	EndDate           time.Time
	DeliveryRequested bool
	DeliveryAddress   string
	PaymentMethod     string
	IdempotencyKey    string
}

type UpdateParams struct {
	RentalID          string
	StartDate         time.Time
	EndDate           time.Time
	Status            string
	PaymentStatus     string
	DeliveryRequested *bool
	DeliveryAddress   *string
}

func (s *Service) CreateRental(ctx context.Context, p CreateParams) result.Result[dto.RentalResponse] {
	res, err := commands.Dispatch[rentalhandlers.CreateRentalCommand, *dto.RentalResponse](ctx, s.Commands, rentalhandlers.CreateRentalCommand{
		ItemID:            p.ItemID,
		RenterID:          p.RenterID,
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		DeliveryRequested: p.DeliveryRequested,
		DeliveryAddress:   p.DeliveryAddress,
		PaymentMethod:     p.PaymentMethod,
		IdempotencyKeyV:   p.IdempotencyKey,
	})
	return deref(ctx, s, rentalhandlers.CreateRentalKey, res, err)
}

func (s *Service) UpdateRental(ctx context.Context, p UpdateParams) result.Result[dto.RentalResponse] {
	res, err := commands.Dispatch[rentalhandlers.UpdateRentalCommand, *dto.RentalResponse](ctx, s.Commands, rentalhandlers.UpdateRentalCommand{
		RentalID:          p.RentalID,
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		Status:            p.Status,
		PaymentStatus:     p.PaymentStatus,
		DeliveryRequested: p.DeliveryRequested,
		DeliveryAddress:   p.DeliveryAddress,
	})
	return deref(ctx, s, rentalhandlers.UpdateRentalKey, res, err)
}

func (s *Service) DeleteRental(ctx context.Context, rentalID string) result.Result[dto.RemovalResult] {
	res, err := commands.Dispatch[rentalhandlers.DeleteRentalCommand, *dto.RemovalResult](ctx, s.Commands, rentalhandlers.DeleteRentalCommand{RentalID: rentalID})
	return deref(ctx, s, rentalhandlers.DeleteRentalKey, res, err)
}

func (s *Service) ChangeStatus(ctx context.Context, rentalID, targetStatus, actorID string) result.Result[dto.RentalResponse] {
	res, err := commands.Dispatch[rentalhandlers.ChangeStatusCommand, *dto.RentalResponse](ctx, s.Commands, rentalhandlers.ChangeStatusCommand{
		RentalID:     rentalID,
		TargetStatus: targetStatus,
		ActorID:      actorID,
	})
	return deref(ctx, s, rentalhandlers.ChangeStatusKey, res, err)
}

func (s *Service) CancelRental(ctx context.Context, rentalID, actorID, reason string) result.Result[dto.RefundOutcome] {
	res, err := commands.Dispatch[rentalhandlers.CancelRentalCommand, *dto.RefundOutcome](ctx, s.Commands, rentalhandlers.CancelRentalCommand{
		RentalID: rentalID,
		ActorID:  actorID,
		Reason:   reason,
	})
	return deref(ctx, s, rentalhandlers.CancelRentalKey, res, err)
}

func (s *Service) ExpirePendingRentals(ctx context.Context, at time.Time) result.Result[dto.ExpiryReport] {
	res, err := commands.Dispatch[rentalhandlers.ExpirePendingRentalsCommand, *dto.ExpiryReport](ctx, s.Commands, rentalhandlers.ExpirePendingRentalsCommand{At: at})
	return deref(ctx, s, rentalhandlers.ExpirePendingKey, res, err)
}

func (s *Service) CheckAvailability(ctx context.Context, itemID string, start, end time.Time, excludeRentalID string) result.Result[dto.AvailabilityResult] {
	res, err := queries.Ask[rentalhandlers.CheckAvailabilityQuery, dto.AvailabilityResult](ctx, s.Queries, rentalhandlers.CheckAvailabilityQuery{
		ItemID:          itemID,
		StartDate:       start,
		EndDate:         end,
		ExcludeRentalID: excludeRentalID,
	})
	return wrapResult(ctx, s, rentalhandlers.CheckAvailabilityKey, res, err)
}

func (s *Service) QuotePrice(ctx context.Context, itemID string, start, end time.Time, deliveryRequested bool, deliveryAddress string) result.Result[dto.PriceQuote] {
	res, err := queries.Ask[rentalhandlers.QuotePriceQuery, dto.PriceQuote](ctx, s.Queries, rentalhandlers.QuotePriceQuery{
		ItemID:            itemID,
		StartDate:         start,
		EndDate:           end,
		DeliveryRequested: deliveryRequested,
		DeliveryAddress:   deliveryAddress,
	})
	return wrapResult(ctx, s, rentalhandlers.QuotePriceKey, res, err)
}

func (s *Service) GetRental(ctx context.Context, rentalID string) result.Result[dto.RentalResponse] {
	res, err := queries.Ask[rentalhandlers.GetRentalQuery, dto.RentalResponse](ctx, s.Queries, rentalhandlers.GetRentalQuery{RentalID: rentalID})
	return wrapResult(ctx, s, rentalhandlers.GetRentalKey, res, err)
}

func (s *Service) ItemCalendar(ctx context.Context, itemID string) result.Result[dto.ItemCalendar] {
	res, err := queries.Ask[rentalhandlers.ItemCalendarQuery, dto.ItemCalendar](ctx, s.Queries, rentalhandlers.ItemCalendarQuery{ItemID: itemID})
	return wrapResult(ctx, s, rentalhandlers.ItemCalendarKey, res, err)
}

func deref[T any](ctx context.Context, s *Service, key string, res *T, err error) result.Result[T] {
	var value T
	if err == nil && res != nil {
		value = *res
	}
	return wrapResult(ctx, s, key, value, err)
}

// wrapResult logs unexpected failures before they are reduced to the
// generic internal message.
func wrapResult[T any](ctx context.Context, s *Service, key string, value T, err error) result.Result[T] {
	if err == nil {
		return result.Ok(value)
	}
	if kind, ok := failure.KindOf(err); (!ok || kind == failure.Internal) && s.Logger != nil {
		s.Logger.ErrorContext(ctx, "rental operation failed", "operation", key, "error", err)
	}
	return result.From(value, err)
}
