// Package gateway holds the six provider adapters and the common
// contract they implement. Each adapter translates the internal charge
// request into its provider's wire format, executes it through the
// shared resilience layer and normalizes the provider's status
// vocabulary back into the internal one.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vendalivre/payhub/internal/httpx"
	"github.com/vendalivre/payhub/internal/model"
	"github.com/vendalivre/payhub/internal/order"
	"github.com/vendalivre/payhub/internal/payerr"
)

// ChargeRequest is the uniform input for all adapters. Split, when
// present, carries only the validator-authorized wallet; adapters must
// never take a wallet id from anywhere else.
type ChargeRequest struct {
	Order        order.Order
	Method       model.Method
	AmountMinor  int64
	Installments int
	Card         *Card
	// PixExpirationSecs bounds the QR code lifetime. Zero means the
	// provider default.
	PixExpirationSecs int
	// BoletoDueDate is YYYY-MM-DD.
	BoletoDueDate string
	Split         *model.SplitRule
	Fees          model.FeeBreakdown
}

type Card struct {
	Number   string
	Holder   string
	ExpMonth string
	ExpYear  string
	CVV      string
}

// WebhookEvent is the normalized form of an inbound provider
// notification. StatusKnown is false for providers (Cielo) whose
// notification carries only the charge id; the reconciler then polls
// GetStatus.
type WebhookEvent struct {
	ExternalRef string
	RawStatus   string
	Status      model.Status
	StatusKnown bool
}

// Adapter is implemented once per provider. Unsupported methods fail
// closed without a network call.
type Adapter interface {
	Gateway() model.Gateway
	Supports(method model.Method) bool

	CreatePixPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error)
	CreateBoletoPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error)
	CreateCreditCardPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error)
	CreateDebitCardPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error)

	GetStatus(ctx context.Context, externalRef string) (model.Status, error)
	Cancel(ctx context.Context, externalRef string) error
	Refund(ctx context.Context, externalRef string, amountMinor int64) error

	NormalizeStatus(code string) (model.Status, error)
	ParseWebhook(body []byte) (*WebhookEvent, error)
}

// UnknownStatusError marks a provider code absent from the gateway's
// closed normalization table. Unmapped codes are a defect and must
// never be coerced into pending.
type UnknownStatusError struct {
	Gateway model.Gateway
	Code    string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown provider status %q for gateway %s", e.Code, e.Gateway)
}

func errUnsupported(gw model.Gateway, method model.Method) error {
	return payerr.New(payerr.KindValidation, "gateway %s does not support method %s", gw, method)
}

// base wires an adapter to the shared executor and carries the helpers
// every adapter uses the same way.
type base struct {
	gw   model.Gateway
	exec *httpx.Executor
}

func (b *base) Gateway() model.Gateway { return b.gw }

func (b *base) doJSON(ctx context.Context, method, url string, headers map[string]string, payload any, allowRetry bool) (*httpx.Response, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, payerr.Wrap(payerr.KindValidation, err, "%s: encode payload", b.gw)
		}
	}
	if headers == nil {
		headers = map[string]string{}
	}
	if _, ok := headers["Content-Type"]; !ok && payload != nil {
		headers["Content-Type"] = "application/json"
	}

	resp, err := b.exec.Do(ctx, string(b.gw), &httpx.Request{
		Method:  method,
		URL:     url,
		Headers: headers,
		Body:    body,
	}, allowRetry)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &payerr.Error{
			Kind:    payerr.KindProvider,
			Message: fmt.Sprintf("%s: provider rejected request (HTTP %d)", b.gw, resp.StatusCode),
			Raw:     resp.Body,
		}
	}
	return resp, nil
}

func decodeInto(gw model.Gateway, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return payerr.Wrap(payerr.KindProvider, err, "%s: decode provider response", gw)
	}
	return nil
}
