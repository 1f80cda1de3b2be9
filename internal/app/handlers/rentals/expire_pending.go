package rentals

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"rentals/internal/app/commands"
	"rentals/internal/app/dto"
	"rentals/internal/app/outbox"
	"rentals/internal/app/policies"
	"rentals/internal/app/uow"
	domainrental "rentals/internal/domain/rental"
)

const (
	ExpirePendingKey = "rentals.expire_pending"
	expiryReason     = "expired"
)

// ExpirePendingRentalsCommand cancels requests the owner never confirmed
// before their start date. Zero At means now.
type ExpirePendingRentalsCommand struct {
	At time.Time
}

func (c ExpirePendingRentalsCommand) Key() string { return ExpirePendingKey }

type ExpirePendingRentalsHandler struct {
	UoWFactory uow.UoWFactory
	Policy     domainrental.CancellationPolicy
	Payments   policies.PaymentGateway
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      Clock
	Logger     *slog.Logger
}

func (h *ExpirePendingRentalsHandler) Handle(ctx context.Context, cmd ExpirePendingRentalsCommand) (*dto.ExpiryReport, error) {
	now := cmd.At.UTC()
	if cmd.At.IsZero() {
		now = h.Clock.now()
	}

	report := dto.ExpiryReport{Expired: []string{}, Failed: []string{}}
	var pending []*domainrental.Rental
	err := uow.Run(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		pending, err = unit.Rentals().ListByStatus(ctx, domainrental.StatusPending)
		return err
	})
	if err != nil {
		return nil, err
	}
	report.Checked = len(pending)
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })

	for _, candidate := range pending {
		if now.Before(candidate.Period.Start) {
			continue
		}
		r, expired, err := h.expire(ctx, candidate.ID, now)
		if err != nil {
			report.Failed = append(report.Failed, string(candidate.ID))
			if h.Logger != nil {
				h.Logger.WarnContext(ctx, "pending rental not expired", "rental_id", candidate.ID, "error", err)
			}
			continue
		}
		if !expired {
			continue
		}
		report.Expired = append(report.Expired, string(r.ID))
		notify(ctx, h.Notifier, h.Logger, rentalNotification(r, r.RenterID, "rental.expired"))
	}

	if h.Logger != nil && len(report.Expired) > 0 {
		h.Logger.InfoContext(ctx, "pending rentals expired", "count", len(report.Expired), "checked", report.Checked, "failed", len(report.Failed))
	}
	return &report, nil
}

// expire cancels one stale request in its own unit so that a failure leaves
// the others committed.
func (h *ExpirePendingRentalsHandler) expire(ctx context.Context, id domainrental.RentalID, now time.Time) (*domainrental.Rental, bool, error) {
	var (
		expired *domainrental.Rental
		done    bool
	)
	err := uow.Run(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := loadLocked(ctx, unit, id)
		if err != nil {
			return err
		}
		if r.Status != domainrental.StatusPending || now.Before(r.Period.Start) {
			return nil
		}
		if _, _, err := cancel(ctx, h.Policy, h.Payments, r, r.OwnerID, expiryReason, now); err != nil {
			return err
		}
		if err := unit.Rentals().Update(ctx, r); err != nil {
			return err
		}
		if err := recordEvents(ctx, h.Outbox, h.Encoder, r); err != nil {
			return err
		}
		expired, done = r, true
		return nil
	})
	return expired, done, err
}

var _ commands.Handler[ExpirePendingRentalsCommand, *dto.ExpiryReport] = (*ExpirePendingRentalsHandler)(nil)
