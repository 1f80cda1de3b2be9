// Package payments talks to the payment provider that holds rental charges.
package payments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"rentals/internal/app/policies"
	"rentals/internal/domain/shared/money"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrNotConfigured = errors.New("payments: http gateway not configured")
	ErrNoReference   = errors.New("payments: provider returned empty reference")
)

// HTTPGateway calls a JSON payment API: POST {base}/intents and
// POST {base}/refunds. Refunds carry an Idempotency-Key header.
type HTTPGateway struct {
	Client  *http.Client
	BaseURL string
	Logger  *slog.Logger
}

func NewHTTPGateway(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPGateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPGateway{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: strings.TrimRight(baseURL, "/"),
		Logger:  logger,
	}
}

type intentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method,omitempty"`
}

type intentResponse struct {
	Reference string `json:"reference"`
}

type refundRequest struct {
	Reference      string `json:"reference"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type refundResponse struct {
	Refunded bool `json:"refunded"`
}

func (g *HTTPGateway) CreatePaymentIntent(ctx context.Context, amount money.Money, method string) (string, error) {
	var resp intentResponse
	if err := g.post(ctx, "/intents", "", intentRequest{Amount: amount.Amount, Currency: amount.Currency, Method: method}, &resp); err != nil {
		return "", err
	}
	if resp.Reference == "" {
		return "", ErrNoReference
	}
	return resp.Reference, nil
}

func (g *HTTPGateway) Refund(ctx context.Context, reference, idempotencyKey string, amount money.Money) (bool, error) {
	var resp refundResponse
	req := refundRequest{Reference: reference, Amount: amount.Amount, Currency: amount.Currency, IdempotencyKey: idempotencyKey}
	if err := g.post(ctx, "/refunds", idempotencyKey, req, &resp); err != nil {
		return false, err
	}
	return resp.Refunded, nil
}

func (g *HTTPGateway) post(ctx context.Context, path, idempotencyKey string, payload, out any) error {
	if g == nil || g.Client == nil || g.BaseURL == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		request.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := g.Client.Do(request)
	if err != nil {
		g.logError("payment request failed", path, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("payments: %s returned status %d: %s", path, resp.StatusCode, string(snippet))
		g.logError("payment provider returned error", path, err)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		g.logError("payment response decode failed", path, err)
		return err
	}
	return nil
}

func (g *HTTPGateway) logError(msg, path string, err error) {
	if g.Logger == nil {
		return
	}
	g.Logger.Error(msg, "path", path, "error", err)
}

var _ policies.PaymentGateway = (*HTTPGateway)(nil)
