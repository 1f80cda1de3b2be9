package rentals

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rentals/internal/app/dto"
	"rentals/internal/app/queries"
	"rentals/internal/app/uow"
	domainitems "rentals/internal/domain/items"
	"rentals/internal/domain/pricing"
	domainrental "rentals/internal/domain/rental"
	"rentals/internal/domain/shared/daterange"
	"rentals/internal/domain/shared/failure"
)

const (
	CheckAvailabilityKey = "rentals.availability"
	QuotePriceKey        = "rentals.quote"
	GetRentalKey         = "rentals.get"
	ItemCalendarKey      = "rentals.item_calendar"
)

var (
	ErrItemIDRequired = failure.New(failure.Validation, "rentals: item id is required")
	ErrInvalidRange   = failure.New(failure.Validation, "rentals: end date must be after start date")
)

func parseItemID(raw string) (domainitems.ItemID, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", ErrItemIDRequired
	}
	return domainitems.ItemID(id), nil
}

func parseRange(start, end time.Time) (daterange.DateRange, error) {
	period, err := daterange.New(start, end)
	if err != nil {
		return daterange.DateRange{}, ErrInvalidRange
	}
	return period, nil
}

// Reads below run in read-only units and take no locks; their answers are
// advisory until a command re-checks under the item lock.

type CheckAvailabilityQuery struct {
	ItemID          string    `validate:"required"`
	StartDate       time.Time `validate:"required"`
	EndDate         time.Time `validate:"required"`
	ExcludeRentalID string
}

func (q CheckAvailabilityQuery) Key() string { return CheckAvailabilityKey }

type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.AvailabilityResult, error) {
	itemID, err := parseItemID(q.ItemID)
	if err != nil {
		return dto.AvailabilityResult{}, err
	}
	period, err := parseRange(q.StartDate, q.EndDate)
	if err != nil {
		return dto.AvailabilityResult{}, err
	}
	result := dto.AvailabilityResult{ItemID: string(itemID), StartDate: period.Start, EndDate: period.End}
	err = uow.Run(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		item, err := unit.Items().ByID(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.Available {
			result.Available = false
			result.Reason = "item is not available for rent"
			return nil
		}
		conflict, found, err := unit.Availability().HasConflict(ctx, itemID, period, domainrental.RentalID(strings.TrimSpace(q.ExcludeRentalID)))
		if err != nil {
			return err
		}
		dto.MapConflict(&result, conflict, found)
		return nil
	})
	if err != nil {
		return dto.AvailabilityResult{}, err
	}
	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "availability checked", "item_id", itemID, "available", result.Available)
	}
	return result, nil
}

type QuotePriceQuery struct {
	ItemID            string    `validate:"required"`
	StartDate         time.Time `validate:"required"`
	EndDate           time.Time `validate:"required"`
	DeliveryRequested bool
	DeliveryAddress   string
}

func (q QuotePriceQuery) Key() string { return QuotePriceKey }

type QuotePriceHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    pricing.Calculator
}

func (h *QuotePriceHandler) Handle(ctx context.Context, q QuotePriceQuery) (dto.PriceQuote, error) {
	itemID, err := parseItemID(q.ItemID)
	if err != nil {
		return dto.PriceQuote{}, err
	}
	period, err := parseRange(q.StartDate, q.EndDate)
	if err != nil {
		return dto.PriceQuote{}, err
	}
	var quote pricing.Quote
	err = uow.Run(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		item, err := unit.Items().ByID(ctx, itemID)
		if err != nil {
			return err
		}
		rate, err := platformFeeRate(ctx, unit, nil, nil)
		if err != nil {
			return err
		}
		quote, err = h.Pricing.Compute(item, period, pricing.DeliveryRequest{Requested: q.DeliveryRequested, Address: q.DeliveryAddress}, rate)
		return err
	})
	if err != nil {
		return dto.PriceQuote{}, err
	}
	return dto.MapQuote(string(itemID), quote), nil
}

type GetRentalQuery struct {
	RentalID string `validate:"required"`
}

func (q GetRentalQuery) Key() string { return GetRentalKey }

type GetRentalHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetRentalHandler) Handle(ctx context.Context, q GetRentalQuery) (dto.RentalResponse, error) {
	id, err := parseRentalID(q.RentalID)
	if err != nil {
		return dto.RentalResponse{}, err
	}
	var resp dto.RentalResponse
	err = uow.Run(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := unit.Rentals().ByID(ctx, id)
		if err != nil {
			return err
		}
		resp = dto.MapRental(r)
		return nil
	})
	return resp, err
}

type ItemCalendarQuery struct {
	ItemID string `validate:"required"`
}

func (q ItemCalendarQuery) Key() string { return ItemCalendarKey }

type ItemCalendarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ItemCalendarHandler) Handle(ctx context.Context, q ItemCalendarQuery) (dto.ItemCalendar, error) {
	itemID, err := parseItemID(q.ItemID)
	if err != nil {
		return dto.ItemCalendar{}, err
	}
	var calendar dto.ItemCalendar
	err = uow.Run(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		if _, err := unit.Items().ByID(ctx, itemID); err != nil {
			return err
		}
		list, err := unit.Rentals().ListByItem(ctx, itemID)
		if err != nil {
			return err
		}
		calendar = dto.MapCalendar(string(itemID), list)
		return nil
	})
	return calendar, err
}

var (
	_ queries.Handler[CheckAvailabilityQuery, dto.AvailabilityResult] = (*CheckAvailabilityHandler)(nil)
	_ queries.Handler[QuotePriceQuery, dto.PriceQuote]                = (*QuotePriceHandler)(nil)
	_ queries.Handler[GetRentalQuery, dto.RentalResponse]             = (*GetRentalHandler)(nil)
	_ queries.Handler[ItemCalendarQuery, dto.ItemCalendar]            = (*ItemCalendarHandler)(nil)
)
