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

const pagarmeBaseURL = "https://api.pagar.me/core/v5"

type Pagarme struct {
	base
	secretKey string
	baseURL   string
}

func NewPagarme(cfg config.PagarmeConfig, exec *httpx.Executor) *Pagarme {
	return &Pagarme{
		base:      base{gw: model.GatewayPagarme, exec: exec},
		secretKey: cfg.SecretKey,
		baseURL:   pagarmeBaseURL,
	}
}

// headers: basic auth is "secret_key:" with an empty password.
func (p *Pagarme) headers() map[string]string {
	return map[string]string{
		"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte(p.secretKey+":")),
	}
}

func (p *Pagarme) Supports(method model.Method) bool {
	switch method {
	case model.MethodPix, model.MethodBoleto, model.MethodCreditCard:
		return true
	}
	return false
}

type pagarmeItem struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Code        string `json:"code,omitempty"`
}

type pagarmeCustomer struct {
	Name     string         `json:"name"`
	Email    string         `json:"email,omitempty"`
	Document string         `json:"document,omitempty"`
	Type     string         `json:"type,omitempty"`
	Phones   *pagarmePhones `json:"phones,omitempty"`
}

type pagarmePhones struct {
	MobilePhone *pagarmePhone `json:"mobile_phone,omitempty"`
}

type pagarmePhone struct {
	CountryCode string `json:"country_code"`
	AreaCode    string `json:"area_code"`
	Number      string `json:"number"`
}

type pagarmeSplit struct {
	RecipientID string `json:"recipient_id"`
	Amount      int64  `json:"amount"`
	Type        string `json:"type"`
	Options     struct {
		ChargeProcessingFee bool `json:"charge_processing_fee"`
		Liable              bool `json:"liable"`
	} `json:"options"`
}

type pagarmePayment struct {
	PaymentMethod string              `json:"payment_method"`
	Pix           *pagarmePix         `json:"pix,omitempty"`
	Boleto        *pagarmeBoleto      `json:"boleto,omitempty"`
	CreditCard    *pagarmeCardPayment `json:"credit_card,omitempty"`
	Split         []pagarmeSplit      `json:"split,omitempty"`
}

type pagarmePix struct {
	ExpiresIn int `json:"expires_in"`
}

type pagarmeBoleto struct {
	DueAt string `json:"due_at"`
}

type pagarmeCardPayment struct {
	Installments int         `json:"installments"`
	Card         pagarmeCard `json:"card"`
}

type pagarmeCard struct {
	Number     string `json:"number"`
	HolderName string `json:"holder_name"`
	ExpMonth   string `json:"exp_month"`
	ExpYear    string `json:"exp_year"`
	CVV        string `json:"cvv"`
}

type pagarmeOrderRequest struct {
	Code     string           `json:"code"`
	Items    []pagarmeItem    `json:"items"`
	Customer pagarmeCustomer  `json:"customer"`
	Payments []pagarmePayment `json:"payments"`
}

type pagarmeOrderResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Charges []struct {
		ID              string `json:"id"`
		Status          string `json:"status"`
		LastTransaction struct {
			QrCode           string `json:"qr_code"`
			QrCodeURL        string `json:"qr_code_url"`
			ExpiresAt        string `json:"expires_at"`
			Line             string `json:"line"`
			PDF              string `json:"pdf"`
			DueAt            string `json:"due_at"`
			AcquirerAuthCode string `json:"acquirer_auth_code"`
		} `json:"last_transaction"`
	} `json:"charges"`
}

func (p *Pagarme) createOrder(ctx context.Context, req *ChargeRequest, payment pagarmePayment) (*pagarmeOrderResponse, error) {
	if req.Split != nil {
		split := pagarmeSplit{
			RecipientID: req.Split.WalletID,
			Amount:      req.Split.AmountMinor,
			Type:        "flat",
		}
		split.Options.ChargeProcessingFee = req.Split.ChargeProcessing
		payment.Split = []pagarmeSplit{split}
	}

	wire := pagarmeOrderRequest{
		Code: req.Order.ID(),
		Items: []pagarmeItem{{
			Amount:      req.AmountMinor,
			Description: "Pedido " + req.Order.ID(),
			Quantity:    1,
		}},
		Customer: pagarmeCustomer{
			Name:     req.Order.CustomerName(),
			Email:    req.Order.CustomerEmail(),
			Document: req.Order.CustomerDocument(),
			Type:     "individual",
		},
		Payments: []pagarmePayment{payment},
	}

	resp, err := p.doJSON(ctx, http.MethodPost, p.baseURL+"/orders", p.headers(), wire, true)
	if err != nil {
		return nil, err
	}
	var created pagarmeOrderResponse
	if err := decodeInto(p.gw, resp.Body, &created); err != nil {
		return nil, err
	}
	if len(created.Charges) == 0 {
		return nil, &payerr.Error{Kind: payerr.KindProvider, Message: "pagarme: order created without charges", Raw: resp.Body}
	}
	return &created, nil
}

func (p *Pagarme) CreatePixPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	expires := req.PixExpirationSecs
	if expires <= 0 {
		expires = 3600
	}
	payment := pagarmePayment{
		PaymentMethod: "pix",
		Pix:           &pagarmePix{ExpiresIn: expires},
	}

	created, err := p.createOrder(ctx, req, payment)
	if err != nil {
		return nil, err
	}
	charge := created.Charges[0]
	status, err := p.NormalizeStatus(charge.Status)
	if err != nil {
		return nil, err
	}
	return &model.PaymentArtifact{
		Gateway:        p.gw,
		Method:         model.MethodPix,
		ExternalRef:    charge.ID,
		Status:         status,
		PixPayload:     charge.LastTransaction.QrCode,
		PixImageBase64: charge.LastTransaction.QrCodeURL,
		PixExpiresAt:   charge.LastTransaction.ExpiresAt,
	}, nil
}

func (p *Pagarme) CreateBoletoPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	payment := pagarmePayment{PaymentMethod: "boleto"}
	if req.BoletoDueDate != "" {
		payment.Boleto = &pagarmeBoleto{DueAt: req.BoletoDueDate}
	}

	created, err := p.createOrder(ctx, req, payment)
	if err != nil {
		return nil, err
	}
	charge := created.Charges[0]
	status, err := p.NormalizeStatus(charge.Status)
	if err != nil {
		return nil, err
	}
	return &model.PaymentArtifact{
		Gateway:       p.gw,
		Method:        model.MethodBoleto,
		ExternalRef:   charge.ID,
		Status:        status,
		BoletoBarcode: charge.LastTransaction.Line,
		BoletoURL:     charge.LastTransaction.PDF,
		BoletoDueDate: charge.LastTransaction.DueAt,
	}, nil
}

func (p *Pagarme) CreateCreditCardPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	if req.Card == nil {
		return nil, payerr.New(payerr.KindValidation, "pagarme: card data required for credit_card")
	}
	installments := req.Installments
	if installments < 1 {
		installments = 1
	}
	payment := pagarmePayment{
		PaymentMethod: "credit_card",
		CreditCard: &pagarmeCardPayment{
			Installments: installments,
			Card: pagarmeCard{
				Number:     req.Card.Number,
				HolderName: req.Card.Holder,
				ExpMonth:   req.Card.ExpMonth,
				ExpYear:    req.Card.ExpYear,
				CVV:        req.Card.CVV,
			},
		},
	}

	created, err := p.createOrder(ctx, req, payment)
	if err != nil {
		return nil, err
	}
	charge := created.Charges[0]
	status, err := p.NormalizeStatus(charge.Status)
	if err != nil {
		return nil, err
	}
	return &model.PaymentArtifact{
		Gateway:           p.gw,
		Method:            model.MethodCreditCard,
		ExternalRef:       charge.ID,
		Status:            status,
		AuthorizationCode: charge.LastTransaction.AcquirerAuthCode,
	}, nil
}

func (p *Pagarme) CreateDebitCardPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	return nil, errUnsupported(p.gw, model.MethodDebitCard)
}

func (p *Pagarme) GetStatus(ctx context.Context, externalRef string) (model.Status, error) {
	resp, err := p.doJSON(ctx, http.MethodGet, p.baseURL+"/charges/"+externalRef, p.headers(), nil, true)
	if err != nil {
		return "", err
	}
	var charge struct {
		Status string `json:"status"`
	}
	if err := decodeInto(p.gw, resp.Body, &charge); err != nil {
		return "", err
	}
	return p.NormalizeStatus(charge.Status)
}

func (p *Pagarme) Cancel(ctx context.Context, externalRef string) error {
	_, err := p.doJSON(ctx, http.MethodDelete, p.baseURL+"/charges/"+externalRef, p.headers(), nil, false)
	return err
}

func (p *Pagarme) Refund(ctx context.Context, externalRef string, amountMinor int64) error {
	payload := map[string]any{}
	if amountMinor > 0 {
		payload["amount"] = amountMinor
	}
	_, err := p.doJSON(ctx, http.MethodDelete, p.baseURL+"/charges/"+externalRef, p.headers(), payload, false)
	return err
}

// NormalizeStatus maps Pagar.me's v5 charge status vocabulary.
func (p *Pagarme) NormalizeStatus(code string) (model.Status, error) {
	switch code {
	case "pending", "processing":
		return model.StatusPending, nil
	case "paid":
		return model.StatusPaid, nil
	case "failed":
		return model.StatusFailed, nil
	case "canceled":
		return model.StatusCancelled, nil
	}
	return "", &UnknownStatusError{Gateway: p.gw, Code: code}
}

type pagarmeWebhook struct {
	Type string `json:"type"`
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

func (p *Pagarme) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var wh pagarmeWebhook
	if err := decodeInto(p.gw, body, &wh); err != nil {
		return nil, err
	}
	if wh.Data.ID == "" {
		return nil, payerr.New(payerr.KindValidation, "pagarme: webhook missing data.id")
	}
	status, err := p.NormalizeStatus(wh.Data.Status)
	if err != nil {
		return nil, err
	}
	return &WebhookEvent{
		ExternalRef: wh.Data.ID,
		RawStatus:   wh.Data.Status,
		Status:      status,
		StatusKnown: true,
	}, nil
}
