package payments

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"rentals/internal/app/policies"
	"rentals/internal/domain/shared/money"
)

// StubGateway accepts every intent and refund. It records calls so tests can
// inspect what would have been charged. Refunds repeating a key are no-ops.
type StubGateway struct {
	mu      sync.Mutex
	Intents []money.Money
	Refunds map[string]money.Money
	keys    map[string]struct{}
}

func NewStubGateway() *StubGateway {
	return &StubGateway{Refunds: make(map[string]money.Money), keys: make(map[string]struct{})}
}

func (g *StubGateway) CreatePaymentIntent(ctx context.Context, amount money.Money, method string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Intents = append(g.Intents, amount)
	return "pi_" + uuid.NewString(), nil
}

func (g *StubGateway) Refund(ctx context.Context, reference, idempotencyKey string, amount money.Money) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Refunds == nil {
		g.Refunds = make(map[string]money.Money)
	}
	if g.keys == nil {
		g.keys = make(map[string]struct{})
	}
	if idempotencyKey != "" {
		if _, seen := g.keys[idempotencyKey]; seen {
			return true, nil
		}
		g.keys[idempotencyKey] = struct{}{}
	}
	if prev, ok := g.Refunds[reference]; ok {
		if sum, err := prev.Add(amount); err == nil {
			amount = sum
		}
	}
	g.Refunds[reference] = amount
	return true, nil
}

// Refunded returns the total refunded for reference, if any.
func (g *StubGateway) Refunded(reference string) (money.Money, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.Refunds[reference]
	return m, ok
}

var _ policies.PaymentGateway = (*StubGateway)(nil)
