package rentals_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	rentalhandlers "rentals/internal/app/handlers/rentals"
	"rentals/internal/app/policies"
	rentalsvc "rentals/internal/app/services/rentals"
	domainitems "rentals/internal/domain/items"
	domainrental "rentals/internal/domain/rental"
	"rentals/internal/domain/shared/money"
	"rentals/internal/infra/payments"
	"rentals/internal/infra/storage/memory"
	"rentals/internal/infra/validation"
)

const (
	ownerID  = "owner-1"
	renterID = "renter-1"
	itemID   = "item-1"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	svc      *rentalsvc.Service
	factory  memory.Factory
	outbox   *memory.Outbox
	payments *payments.StubGateway
	notes    *recordingNotifier
	clock    *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithGateway(t, nil)
}

// newFixtureWithGateway lets wrap put a gateway in front of the recording stub.
func newFixtureWithGateway(t *testing.T, wrap func(*payments.StubGateway) policies.PaymentGateway) *fixture {
	t.Helper()
	f := &fixture{
		factory:  memory.NewFactory(),
		outbox:   memory.NewOutbox(),
		payments: payments.NewStubGateway(),
		notes:    &recordingNotifier{},
		clock:    &clock{now: date(6, 1).Add(9 * time.Hour)},
	}
	var gateway policies.PaymentGateway = f.payments
	if wrap != nil {
		gateway = wrap(f.payments)
	}
	f.svc = rentalsvc.New(rentalsvc.Options{
		Dependencies: rentalhandlers.Dependencies{
			UoWFactory: f.factory,
			Policy:     domainrental.DefaultCancellationPolicy(),
			Payments:   gateway,
			Notifier:   f.notes,
			Outbox:     f.outbox,
			Clock:      f.clock.Now,
		},
		Validator:   validation.New(),
		Idempotency: memory.NewIdempotencyStore(time.Hour),
	})
	f.addItem(t, domainitems.Item{
		ID:          itemID,
		OwnerID:     ownerID,
		Title:       "Cordless drill",
		PricePerDay: money.Must(5000, "USD"),
		Deposit:     money.Must(10000, "USD"),
		Available:   true,
	})
	return f
}

func (f *fixture) addItem(t *testing.T, item domainitems.Item) {
	t.Helper()
	require.NoError(t, f.factory.ItemsRepo.Save(context.Background(), &item))
}

func (f *fixture) create(t *testing.T, start, end time.Time) string {
	t.Helper()
	res := f.svc.CreateRental(context.Background(), rentalsvc.CreateParams{
		ItemID:        itemID,
		RenterID:      renterID,
		StartDate:     start,
		EndDate:       end,
		PaymentMethod: "card",
	})
	require.True(t, res.IsOk(), "create failed: %s %s", res.Kind(), res.Message())
	return res.Value().ID
}

func (f *fixture) confirm(t *testing.T, id string) {
	t.Helper()
	res := f.svc.ChangeStatus(context.Background(), id, "confirmed", ownerID)
	require.True(t, res.IsOk(), "confirm failed: %s %s", res.Kind(), res.Message())
}

func (f *fixture) markPaid(t *testing.T, id string) {
	t.Helper()
	current := f.svc.GetRental(context.Background(), id)
	require.True(t, current.IsOk())
	res := f.svc.UpdateRental(context.Background(), rentalsvc.UpdateParams{
		RentalID:      id,
		StartDate:     current.Value().StartDate,
		EndDate:       current.Value().EndDate,
		PaymentStatus: "paid",
	})
	require.True(t, res.IsOk(), "payment update failed: %s %s", res.Kind(), res.Message())
}

// failingGateway fails the refund call whose 1-based position is failOn and
// counts refunds per payment reference.
type failingGateway struct {
	*payments.StubGateway
	mu     sync.Mutex
	failOn int
	calls  int
	byRef  map[string]int
}

func (g *failingGateway) Refund(ctx context.Context, reference, idempotencyKey string, amount money.Money) (bool, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	if g.byRef == nil {
		g.byRef = make(map[string]int)
	}
	g.byRef[reference]++
	g.mu.Unlock()
	if call == g.failOn {
		return false, errors.New("gateway timeout")
	}
	return g.StubGateway.Refund(ctx, reference, idempotencyKey, amount)
}

func (g *failingGateway) refundCalls(reference string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.byRef[reference]
}

// date returns midnight UTC on the given day of 2030.
func date(month time.Month, day int) time.Time {
	return time.Date(2030, month, day, 0, 0, 0, 0, time.UTC)
}
