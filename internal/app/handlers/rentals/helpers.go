package rentals

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rentals/internal/app/outbox"
	"rentals/internal/app/policies"
	"rentals/internal/app/uow"
	domainrental "rentals/internal/domain/rental"
	domainsettings "rentals/internal/domain/settings"
	"rentals/internal/domain/shared/failure"
	"rentals/internal/domain/shared/money"
)

var ErrRentalIDRequired = failure.New(failure.Validation, "rentals: rental id is required")

// Clock returns the current time; handlers default to UTC wall time.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func parseRentalID(raw string) (domainrental.RentalID, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", ErrRentalIDRequired
	}
	return domainrental.RentalID(id), nil
}

// loadLocked reads the rental, locks its item, then reads it again so that
// the caller works on the state other writers of the item committed.
func loadLocked(ctx context.Context, unit uow.UnitOfWork, id domainrental.RentalID) (*domainrental.Rental, error) {
	r, err := unit.Rentals().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := unit.Lock(ctx, uow.ItemLockKey(r.ItemID)); err != nil {
		return nil, fmt.Errorf("rentals: lock item %s: %w", r.ItemID, err)
	}
	return unit.Rentals().ByID(ctx, id)
}

// platformFeeRate reads the configured fee; fallback is used when the
// settings cannot be read.
func platformFeeRate(ctx context.Context, unit uow.UnitOfWork, fallback *money.Rate, logger *slog.Logger) (money.Rate, error) {
	repo := unit.Settings()
	if repo == nil {
		return domainsettings.DefaultFeeRate, nil
	}
	s, err := repo.PlatformSettings(ctx)
	if err == nil {
		return s.FeeRate, nil
	}
	if fallback == nil {
		return 0, fmt.Errorf("rentals: load platform settings: %w", err)
	}
	if logger != nil {
		logger.WarnContext(ctx, "platform settings unavailable, keeping stored fee rate", "error", err, "fee_rate", fallback.String())
	}
	return *fallback, nil
}

func recordEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, r *domainrental.Rental) error {
	return outbox.RecordDomainEvents(ctx, box, encoder, r.DrainEvents())
}

func notify(ctx context.Context, notifier policies.Notifier, logger *slog.Logger, n policies.Notification) {
	if notifier == nil || n.RecipientID == "" {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil && logger != nil {
		logger.WarnContext(ctx, "notification failed", "template", n.Template, "rental_id", n.RentalID, "error", err)
	}
}

func rentalNotification(r *domainrental.Rental, recipient, template string) policies.Notification {
	return policies.Notification{
		RecipientID: recipient,
		Template:    template,
		RentalID:    string(r.ID),
		Data: map[string]string{
			"item_id":    string(r.ItemID),
			"status":     string(r.Status),
			"start_date": r.Period.Start.Format(time.RFC3339),
			"end_date":   r.Period.End.Format(time.RFC3339),
			"total":      r.Price.Total.Decimal(),
			"currency":   r.Price.Total.Currency,
		},
	}
}

// counterpart is the participant who did not trigger the change.
func counterpart(r *domainrental.Rental, actorID string) string {
	if actorID == r.OwnerID {
		return r.RenterID
	}
	return r.OwnerID
}
