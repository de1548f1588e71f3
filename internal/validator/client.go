// Package validator is the client for the central transaction
// validation service. Every charge on every gateway must be cleared
// here before any money-moving provider call; the wallet id it hands
// back is the only one ever allowed into a split payload.
package validator

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vendalivre/payhub/internal/httpx"
	"github.com/vendalivre/payhub/internal/model"
	"github.com/vendalivre/payhub/internal/payerr"
)

const gatewayKey = "validator"

type Client struct {
	baseURL    string
	serviceKey string
	exec       *httpx.Executor
}

func NewClient(baseURL, serviceKey string, exec *httpx.Executor) *Client {
	return &Client{baseURL: baseURL, serviceKey: serviceKey, exec: exec}
}

type validateRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	MerchantID  string `json:"merchant_id"`
	Gateway     string `json:"gateway"`
	Method      string `json:"method"`
}

type validateResponse struct {
	Approved  bool   `json:"approved"`
	WalletID  string `json:"wallet_id"`
	AuthToken string `json:"auth_token"`
	Reason    string `json:"reason"`
}

// Validate authorizes one charge attempt. Transport failures, denials
// and malformed responses all surface as KindValidation so callers
// abort before the provider call.
func (c *Client) Validate(ctx context.Context, amountMinor int64, merchantID string, gateway model.Gateway, method model.Method) (model.Authorization, error) {
	if c.baseURL == "" {
		return model.Authorization{}, payerr.New(payerr.KindConfiguration, "validator URL not configured")
	}

	body, err := json.Marshal(validateRequest{
		AmountMinor: amountMinor,
		MerchantID:  merchantID,
		Gateway:     string(gateway),
		Method:      string(method),
	})
	if err != nil {
		return model.Authorization{}, payerr.Wrap(payerr.KindValidation, err, "encode validation request")
	}

	resp, err := c.exec.Do(ctx, gatewayKey, &httpx.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + "/v1/transactions/validate",
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + c.serviceKey,
		},
		Body: body,
	}, false)
	if err != nil {
		return model.Authorization{}, payerr.Wrap(payerr.KindValidation, err, "transaction validation unavailable")
	}
	if resp.StatusCode != http.StatusOK {
		return model.Authorization{}, &payerr.Error{
			Kind:    payerr.KindValidation,
			Message: "transaction validation rejected with status " + http.StatusText(resp.StatusCode),
			Raw:     resp.Body,
		}
	}

	var vr validateResponse
	if err := json.Unmarshal(resp.Body, &vr); err != nil {
		return model.Authorization{}, payerr.Wrap(payerr.KindValidation, err, "decode validation response")
	}
	if !vr.Approved || vr.WalletID == "" {
		reason := vr.Reason
		if reason == "" {
			reason = "transaction denied by validator"
		}
		return model.Authorization{}, &payerr.Error{Kind: payerr.KindValidation, Message: reason, Raw: resp.Body}
	}

	return model.Authorization{WalletID: vr.WalletID, AuthToken: vr.AuthToken}, nil
}
