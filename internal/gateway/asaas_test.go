package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendalivre/payhub/internal/config"
	"github.com/vendalivre/payhub/internal/httpx"
	"github.com/vendalivre/payhub/internal/model"
	"github.com/vendalivre/payhub/internal/order"
)

func testExecutor() *httpx.Executor {
	return httpx.NewExecutor(
		httpx.NewRateLimiter(1000, time.Minute),
		httpx.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
}

func testOrder() *order.Snapshot {
	return &order.Snapshot{
		OrderID:  "order-1001",
		Total:    10000,
		Name:     "Maria Souza",
		Email:    "maria@example.com",
		Phone:    "11999998888",
		Document: "12345678909",
		Address: order.Address{
			Street:     "Rua das Flores",
			Number:     "42",
			District:   "Centro",
			City:       "São Paulo",
			State:      "SP",
			PostalCode: "01001-000",
		},
	}
}

func TestAsaas_CreatePixPayment_SplitUsesAuthorizedWallet(t *testing.T) {
	var paymentBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("access_token"))

		switch {
		case r.URL.Path == "/customers":
			_, _ = w.Write([]byte(`{"id":"cus_123"}`))
		case r.URL.Path == "/payments" && r.Method == http.MethodPost:
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &paymentBody))
			_, _ = w.Write([]byte(`{"id":"pay_abc","status":"PENDING"}`))
		case r.URL.Path == "/payments/pay_abc/pixQrCode":
			_, _ = w.Write([]byte(`{"encodedImage":"aW1n","payload":"00020126pix","expirationDate":"2025-03-02 23:59:59"}`))
		default:
			t.Fatalf("unexpected call %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	adapter := NewAsaas(config.AsaasConfig{APIKey: "test-key"}, testExecutor())
	adapter.baseURL = srv.URL

	artifact, err := adapter.CreatePixPayment(context.Background(), &ChargeRequest{
		Order:       testOrder(),
		Method:      model.MethodPix,
		AmountMinor: 10000,
		Split:       &model.SplitRule{WalletID: "w1", AmountMinor: 300},
		Fees:        model.FeeBreakdown{GrossMinor: 10000, PluginFeeMinor: 300, GatewayFeeMinor: 150, NetMinor: 9550},
	})
	require.NoError(t, err)

	assert.Equal(t, "pay_abc", artifact.ExternalRef)
	assert.Equal(t, model.StatusPending, artifact.Status)
	assert.Equal(t, "00020126pix", artifact.PixPayload)
	assert.Equal(t, "aW1n", artifact.PixImageBase64)

	assert.InDelta(t, 100.00, paymentBody["value"], 0.001)
	split, ok := paymentBody["split"].([]any)
	require.True(t, ok, "split must be present when a plugin fee exists")
	require.Len(t, split, 1)
	rule := split[0].(map[string]any)
	assert.Equal(t, "w1", rule["walletId"])
	assert.InDelta(t, 3.00, rule["fixedValue"], 0.001)
}

func TestAsaas_CreatePixPayment_NoSplitWithoutPluginFee(t *testing.T) {
	var paymentBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/customers":
			_, _ = w.Write([]byte(`{"id":"cus_123"}`))
		case r.URL.Path == "/payments":
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &paymentBody))
			_, _ = w.Write([]byte(`{"id":"pay_x","status":"PENDING"}`))
		default:
			_, _ = w.Write([]byte(`{"encodedImage":"","payload":"p","expirationDate":""}`))
		}
	}))
	defer srv.Close()

	adapter := NewAsaas(config.AsaasConfig{APIKey: "test-key"}, testExecutor())
	adapter.baseURL = srv.URL

	_, err := adapter.CreatePixPayment(context.Background(), &ChargeRequest{
		Order:       testOrder(),
		Method:      model.MethodPix,
		AmountMinor: 10000,
	})
	require.NoError(t, err)

	_, hasSplit := paymentBody["split"]
	assert.False(t, hasSplit)
}

func TestAsaas_CreateBoletoPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/customers":
			_, _ = w.Write([]byte(`{"id":"cus_9"}`))
		case "/payments":
			var body map[string]any
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, "BOLETO", body["billingType"])
			_, _ = w.Write([]byte(`{"id":"pay_b1","status":"PENDING","bankSlipUrl":"https://asaas/b.pdf","identificationField":"34191.79001","dueDate":"2025-03-10"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	adapter := NewAsaas(config.AsaasConfig{APIKey: "k"}, testExecutor())
	adapter.baseURL = srv.URL

	artifact, err := adapter.CreateBoletoPayment(context.Background(), &ChargeRequest{
		Order:         testOrder(),
		Method:        model.MethodBoleto,
		AmountMinor:   10000,
		BoletoDueDate: "2025-03-10",
	})
	require.NoError(t, err)
	assert.Equal(t, "34191.79001", artifact.BoletoBarcode)
	assert.Equal(t, "https://asaas/b.pdf", artifact.BoletoURL)
	assert.Equal(t, "2025-03-10", artifact.BoletoDueDate)
}

func TestAsaas_ProviderRejectionIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"description":"CPF inválido"}]}`))
	}))
	defer srv.Close()

	adapter := NewAsaas(config.AsaasConfig{APIKey: "k"}, testExecutor())
	adapter.baseURL = srv.URL

	_, err := adapter.CreatePixPayment(context.Background(), &ChargeRequest{
		Order:       testOrder(),
		Method:      model.MethodPix,
		AmountMinor: 10000,
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestAsaas_ParseWebhook(t *testing.T) {
	adapter := NewAsaas(config.AsaasConfig{APIKey: "k"}, nil)

	event, err := adapter.ParseWebhook([]byte(`{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_abc","status":"RECEIVED"}}`))
	require.NoError(t, err)
	assert.Equal(t, "pay_abc", event.ExternalRef)
	assert.Equal(t, model.StatusPaid, event.Status)
	assert.True(t, event.StatusKnown)

	_, err = adapter.ParseWebhook([]byte(`{"event":"PAYMENT_RECEIVED","payment":{"status":"RECEIVED"}}`))
	assert.Error(t, err, "missing payment id is malformed")

	_, err = adapter.ParseWebhook([]byte(`{"event":"X","payment":{"id":"pay_abc","status":"SOMETHING_NEW"}}`))
	assert.Error(t, err, "unmapped status surfaces, never coerced")
}

func TestAsaas_DebitUnsupported(t *testing.T) {
	adapter := NewAsaas(config.AsaasConfig{APIKey: "k"}, nil)
	_, err := adapter.CreateDebitCardPayment(context.Background(), &ChargeRequest{Order: testOrder()})
	assert.Error(t, err)
}
