package validator

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

	"github.com/vendalivre/payhub/internal/httpx"
	"github.com/vendalivre/payhub/internal/model"
	"github.com/vendalivre/payhub/internal/payerr"
)

func newTestExecutor() *httpx.Executor {
	return httpx.NewExecutor(
		httpx.NewRateLimiter(1000, time.Minute),
		httpx.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
}

func TestClient_ValidateApproved(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/transactions/validate", r.URL.Path)
		assert.Equal(t, "Bearer svc-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &received))
		_, _ = w.Write([]byte(`{"approved":true,"wallet_id":"wallet-123","auth_token":"tok-9"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "svc-key", newTestExecutor())
	auth, err := client.Validate(context.Background(), 10000, "merchant-1", model.GatewayAsaas, model.MethodPix)
	require.NoError(t, err)

	assert.Equal(t, "wallet-123", auth.WalletID)
	assert.Equal(t, "tok-9", auth.AuthToken)
	assert.EqualValues(t, 10000, received["amount_minor"])
	assert.Equal(t, "merchant-1", received["merchant_id"])
	assert.Equal(t, "asaas", received["gateway"])
	assert.Equal(t, "pix", received["method"])
}

func TestClient_ValidateDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"approved":false,"reason":"amount exceeds merchant limit"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", newTestExecutor())
	_, err := client.Validate(context.Background(), 10_000_000, "merchant-1", model.GatewayStone, model.MethodPix)
	require.Error(t, err)
	assert.Equal(t, payerr.KindValidation, payerr.KindOf(err))
	assert.Contains(t, err.Error(), "amount exceeds merchant limit")
}

func TestClient_ApprovedWithoutWalletIsDenial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"approved":true,"wallet_id":""}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", newTestExecutor())
	_, err := client.Validate(context.Background(), 10000, "m", model.GatewayAsaas, model.MethodPix)
	require.Error(t, err, "an approval with no wallet cannot build a split")
	assert.Equal(t, payerr.KindValidation, payerr.KindOf(err))
}

func TestClient_ServiceErrorsBecomeValidation(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", newTestExecutor())
	_, err := client.Validate(context.Background(), 10000, "m", model.GatewayAsaas, model.MethodPix)
	require.Error(t, err)
	assert.Equal(t, payerr.KindValidation, payerr.KindOf(err), "an unreachable validator must fail the charge, never skip the check")
	assert.Equal(t, 1, calls, "validation is not retried")
}

func TestClient_MissingURLIsConfiguration(t *testing.T) {
	client := NewClient("", "k", newTestExecutor())
	_, err := client.Validate(context.Background(), 100, "m", model.GatewayAsaas, model.MethodPix)
	assert.Equal(t, payerr.KindConfiguration, payerr.KindOf(err))
}
