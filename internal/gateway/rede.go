package gateway

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/vendalivre/payhub/internal/config"
	"github.com/vendalivre/payhub/internal/httpx"
	"github.com/vendalivre/payhub/internal/model"
	"github.com/vendalivre/payhub/internal/payerr"
)

const (
	redeBaseURL        = "https://gateway.erede.com.br"
	redeSandboxBaseURL = "https://gateway-sandbox.erede.com.br"
)

// Rede is card-only: the acquirer exposes credit and debit
// authorization, no PIX or boleto issuance.
type Rede struct {
	base
	pv      string
	token   string
	baseURL string
}

func NewRede(cfg config.RedeConfig, exec *httpx.Executor) *Rede {
	url := redeBaseURL
	if cfg.Sandbox {
		url = redeSandboxBaseURL
	}
	return &Rede{
		base:    base{gw: model.GatewayRede, exec: exec},
		pv:      cfg.PV,
		token:   cfg.Token,
		baseURL: url,
	}
}

func (r *Rede) headers() map[string]string {
	return map[string]string{
		"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte(r.pv+":"+r.token)),
	}
}

func (r *Rede) Supports(method model.Method) bool {
	return method == model.MethodCreditCard || method == model.MethodDebitCard
}

type redeTransactionRequest struct {
	Capture         bool   `json:"capture"`
	Kind            string `json:"kind"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	Installments    int    `json:"installments,omitempty"`
	CardholderName  string `json:"cardholderName"`
	CardNumber      string `json:"cardNumber"`
	ExpirationMonth string `json:"expirationMonth"`
	ExpirationYear  string `json:"expirationYear"`
	SecurityCode    string `json:"securityCode"`
}

type redeTransactionResponse struct {
	TID               string `json:"tid"`
	ReturnCode        string `json:"returnCode"`
	ReturnMessage     string `json:"returnMessage"`
	AuthorizationCode string `json:"authorizationCode"`
}

func (r *Rede) cardPayment(ctx context.Context, req *ChargeRequest, method model.Method) (*model.PaymentArtifact, error) {
	if req.Card == nil {
		return nil, payerr.New(payerr.KindValidation, "rede: card data required for %s", method)
	}

	kind := "credit"
	if method == model.MethodDebitCard {
		kind = "debit"
	}
	wire := redeTransactionRequest{
		Capture:         true,
		Kind:            kind,
		Reference:       req.Order.ID(),
		Amount:          req.AmountMinor,
		CardholderName:  req.Card.Holder,
		CardNumber:      req.Card.Number,
		ExpirationMonth: req.Card.ExpMonth,
		ExpirationYear:  req.Card.ExpYear,
		SecurityCode:    req.Card.CVV,
	}
	if method == model.MethodCreditCard && req.Installments > 1 {
		wire.Installments = req.Installments
	}

	resp, err := r.doJSON(ctx, http.MethodPost, r.baseURL+"/transactions", r.headers(), wire, true)
	if err != nil {
		return nil, err
	}
	var created redeTransactionResponse
	if err := decodeInto(r.gw, resp.Body, &created); err != nil {
		return nil, err
	}
	status, err := r.NormalizeStatus(created.ReturnCode)
	if err != nil {
		return nil, err
	}
	return &model.PaymentArtifact{
		Gateway:           r.gw,
		Method:            method,
		ExternalRef:       created.TID,
		Status:            status,
		AuthorizationCode: created.AuthorizationCode,
	}, nil
}

func (r *Rede) CreatePixPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	return nil, errUnsupported(r.gw, model.MethodPix)
}

func (r *Rede) CreateBoletoPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	return nil, errUnsupported(r.gw, model.MethodBoleto)
}

func (r *Rede) CreateCreditCardPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	return r.cardPayment(ctx, req, model.MethodCreditCard)
}

func (r *Rede) CreateDebitCardPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	return r.cardPayment(ctx, req, model.MethodDebitCard)
}

func (r *Rede) GetStatus(ctx context.Context, externalRef string) (model.Status, error) {
	resp, err := r.doJSON(ctx, http.MethodGet, r.baseURL+"/transactions/"+externalRef, r.headers(), nil, true)
	if err != nil {
		return "", err
	}
	var tx redeTransactionResponse
	if err := decodeInto(r.gw, resp.Body, &tx); err != nil {
		return "", err
	}
	return r.NormalizeStatus(tx.ReturnCode)
}

func (r *Rede) Cancel(ctx context.Context, externalRef string) error {
	_, err := r.doJSON(ctx, http.MethodPost, r.baseURL+"/transactions/"+externalRef+"/refunds", r.headers(), map[string]any{}, false)
	return err
}

func (r *Rede) Refund(ctx context.Context, externalRef string, amountMinor int64) error {
	payload := map[string]any{}
	if amountMinor > 0 {
		payload["amount"] = amountMinor
	}
	_, err := r.doJSON(ctx, http.MethodPost, r.baseURL+"/transactions/"+externalRef+"/refunds", r.headers(), payload, false)
	return err
}

// NormalizeStatus maps Rede's numeric return codes. The table is
// closed: anything else is an UnknownStatusError.
func (r *Rede) NormalizeStatus(code string) (model.Status, error) {
	switch code {
	case "00":
		return model.StatusPaid, nil
	case "05":
		return model.StatusPending, nil
	case "57":
		return model.StatusExpired, nil
	case "77":
		return model.StatusCancelled, nil
	}
	return "", &UnknownStatusError{Gateway: r.gw, Code: code}
}

type redeWebhook struct {
	TID        string `json:"tid"`
	ReturnCode string `json:"returnCode"`
}

func (r *Rede) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var wh redeWebhook
	if err := decodeInto(r.gw, body, &wh); err != nil {
		return nil, err
	}
	if wh.TID == "" {
		return nil, payerr.New(payerr.KindValidation, "rede: webhook missing tid")
	}
	status, err := r.NormalizeStatus(wh.ReturnCode)
	if err != nil {
		return nil, err
	}
	return &WebhookEvent{
		ExternalRef: wh.TID,
		RawStatus:   wh.ReturnCode,
		Status:      status,
		StatusKnown: true,
	}, nil
}
