package payments

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentals/internal/domain/shared/money"
)

func TestHTTPGateway_CreatePaymentIntent(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/intents", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reference":"pi_123"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL+"/", time.Second, nil)
	ref, err := gw.CreatePaymentIntent(context.Background(), money.Must(27500, "USD"), "card")
	require.NoError(t, err)
	assert.Equal(t, "pi_123", ref)
	assert.JSONEq(t, `{"amount":27500,"currency":"USD","method":"card"}`, body)
}

func TestHTTPGateway_RefundErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, time.Second, nil)
	ok, err := gw.Refund(context.Background(), "pi_1", "refund:r-1", money.Must(100, "USD"))
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPGateway_NotConfigured(t *testing.T) {
	var gw *HTTPGateway
	_, err := gw.CreatePaymentIntent(context.Background(), money.Must(1, "USD"), "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStubGateway_RecordsRefunds(t *testing.T) {
	gw := NewStubGateway()
	ref, err := gw.CreatePaymentIntent(context.Background(), money.Must(500, "EUR"), "")
	require.NoError(t, err)
	ok, err := gw.Refund(context.Background(), ref, "refund:r-1", money.Must(250, "EUR"))
	require.NoError(t, err)
	assert.True(t, ok)
	got, found := gw.Refunded(ref)
	require.True(t, found)
	assert.Equal(t, money.Must(250, "EUR"), got)
}

func TestStubGateway_RepeatedKeyRefundsOnce(t *testing.T) {
	gw := NewStubGateway()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := gw.Refund(ctx, "pi_9", "refund:r-9", money.Must(400, "USD"))
		require.NoError(t, err)
		assert.True(t, ok)
	}
	got, _ := gw.Refunded("pi_9")
	assert.Equal(t, money.Must(400, "USD"), got)
}

func TestHTTPGateway_RefundSendsIdempotencyKey(t *testing.T) {
	var (
		header string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refunds", r.URL.Path)
		header = r.Header.Get("Idempotency-Key")
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"refunded":true}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, time.Second, nil)
	ok, err := gw.Refund(context.Background(), "pi_7", "refund:r-7", money.Must(13750, "USD"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "refund:r-7", header)
	assert.JSONEq(t, `{"reference":"pi_7","amount":13750,"currency":"USD","idempotency_key":"refund:r-7"}`, body)
}
