package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/vendalivre/payhub/internal/config"
	"github.com/vendalivre/payhub/internal/httpx"
	"github.com/vendalivre/payhub/internal/model"
	"github.com/vendalivre/payhub/internal/payerr"
)

const (
	cieloBaseURL         = "https://api.cieloecommerce.cielo.com.br"
	cieloQueryURL        = "https://apiquery.cieloecommerce.cielo.com.br"
	cieloSandboxBaseURL  = "https://apisandbox.cieloecommerce.cielo.com.br"
	cieloSandboxQueryURL = "https://apiquerysandbox.cieloecommerce.cielo.com.br"
)

type Cielo struct {
	base
	merchantID  string
	merchantKey string
	baseURL     string
	queryURL    string
}

func NewCielo(cfg config.CieloConfig, exec *httpx.Executor) *Cielo {
	baseURL, queryURL := cieloBaseURL, cieloQueryURL
	if cfg.Sandbox {
		baseURL, queryURL = cieloSandboxBaseURL, cieloSandboxQueryURL
	}
	return &Cielo{
		base:        base{gw: model.GatewayCielo, exec: exec},
		merchantID:  cfg.MerchantID,
		merchantKey: cfg.MerchantKey,
		baseURL:     baseURL,
		queryURL:    queryURL,
	}
}

// headers issues a fresh RequestId per request, as the API requires.
func (c *Cielo) headers() map[string]string {
	return map[string]string{
		"MerchantId":  c.merchantID,
		"MerchantKey": c.merchantKey,
		"RequestId":   uuid.NewString(),
	}
}

func (c *Cielo) Supports(method model.Method) bool {
	switch method {
	case model.MethodPix, model.MethodCreditCard, model.MethodDebitCard:
		return true
	}
	return false
}

type cieloSaleRequest struct {
	MerchantOrderID string        `json:"MerchantOrderId"`
	Customer        cieloCustomer `json:"Customer"`
	Payment         cieloPayment  `json:"Payment"`
}

type cieloCustomer struct {
	Name         string `json:"Name"`
	Email        string `json:"Email,omitempty"`
	Identity     string `json:"Identity,omitempty"`
	IdentityType string `json:"IdentityType,omitempty"`
}

type cieloPayment struct {
	Type         string     `json:"Type"`
	Amount       int64      `json:"Amount"`
	Installments int        `json:"Installments,omitempty"`
	Capture      bool       `json:"Capture,omitempty"`
	CreditCard   *cieloCard `json:"CreditCard,omitempty"`
	DebitCard    *cieloCard `json:"DebitCard,omitempty"`
}

type cieloCard struct {
	CardNumber     string `json:"CardNumber"`
	Holder         string `json:"Holder"`
	ExpirationDate string `json:"ExpirationDate"`
	SecurityCode   string `json:"SecurityCode"`
	Brand          string `json:"Brand"`
}

type cieloSaleResponse struct {
	Payment struct {
		PaymentID         string `json:"PaymentId"`
		Status            int    `json:"Status"`
		AuthorizationCode string `json:"AuthorizationCode"`
		QrCodeString      string `json:"QrCodeString"`
		QrCodeBase64Image string `json:"QrCodeBase64Image"`
	} `json:"Payment"`
}

func (c *Cielo) createSale(ctx context.Context, req *ChargeRequest, payment cieloPayment) (*cieloSaleResponse, error) {
	sale := cieloSaleRequest{
		MerchantOrderID: req.Order.ID(),
		Customer: cieloCustomer{
			Name:         req.Order.CustomerName(),
			Email:        req.Order.CustomerEmail(),
			Identity:     req.Order.CustomerDocument(),
			IdentityType: "CPF",
		},
		Payment: payment,
	}

	resp, err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/1/sales", c.headers(), sale, true)
	if err != nil {
		return nil, err
	}
	var created cieloSaleResponse
	if err := decodeInto(c.gw, resp.Body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Cielo) CreatePixPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	created, err := c.createSale(ctx, req, cieloPayment{
		Type:   "Pix",
		Amount: req.AmountMinor,
	})
	if err != nil {
		return nil, err
	}
	status, err := c.NormalizeStatus(strconv.Itoa(created.Payment.Status))
	if err != nil {
		return nil, err
	}
	return &model.PaymentArtifact{
		Gateway:        c.gw,
		Method:         model.MethodPix,
		ExternalRef:    created.Payment.PaymentID,
		Status:         status,
		PixPayload:     created.Payment.QrCodeString,
		PixImageBase64: created.Payment.QrCodeBase64Image,
	}, nil
}

func (c *Cielo) CreateBoletoPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	return nil, errUnsupported(c.gw, model.MethodBoleto)
}

func (c *Cielo) cardPayment(ctx context.Context, req *ChargeRequest, method model.Method) (*model.PaymentArtifact, error) {
	if req.Card == nil {
		return nil, payerr.New(payerr.KindValidation, "cielo: card data required for %s", method)
	}
	card := &cieloCard{
		CardNumber:     req.Card.Number,
		Holder:         req.Card.Holder,
		ExpirationDate: req.Card.ExpMonth + "/" + req.Card.ExpYear,
		SecurityCode:   req.Card.CVV,
		Brand:          DetectCardBrand(req.Card.Number),
	}

	payment := cieloPayment{Amount: req.AmountMinor, Capture: true}
	if method == model.MethodDebitCard {
		payment.Type = "DebitCard"
		payment.DebitCard = card
	} else {
		payment.Type = "CreditCard"
		payment.CreditCard = card
		payment.Installments = req.Installments
		if payment.Installments < 1 {
			payment.Installments = 1
		}
	}

	created, err := c.createSale(ctx, req, payment)
	if err != nil {
		return nil, err
	}
	status, err := c.NormalizeStatus(strconv.Itoa(created.Payment.Status))
	if err != nil {
		return nil, err
	}
	return &model.PaymentArtifact{
		Gateway:           c.gw,
		Method:            method,
		ExternalRef:       created.Payment.PaymentID,
		Status:            status,
		AuthorizationCode: created.Payment.AuthorizationCode,
	}, nil
}

func (c *Cielo) CreateCreditCardPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	return c.cardPayment(ctx, req, model.MethodCreditCard)
}

func (c *Cielo) CreateDebitCardPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	return c.cardPayment(ctx, req, model.MethodDebitCard)
}

func (c *Cielo) GetStatus(ctx context.Context, externalRef string) (model.Status, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, c.queryURL+"/1/sales/"+externalRef, c.headers(), nil, true)
	if err != nil {
		return "", err
	}
	var sale cieloSaleResponse
	if err := decodeInto(c.gw, resp.Body, &sale); err != nil {
		return "", err
	}
	return c.NormalizeStatus(strconv.Itoa(sale.Payment.Status))
}

func (c *Cielo) Cancel(ctx context.Context, externalRef string) error {
	_, err := c.doJSON(ctx, http.MethodPut, c.baseURL+"/1/sales/"+externalRef+"/void", c.headers(), nil, false)
	return err
}

func (c *Cielo) Refund(ctx context.Context, externalRef string, amountMinor int64) error {
	url := c.baseURL + "/1/sales/" + externalRef + "/void"
	if amountMinor > 0 {
		url += "?amount=" + strconv.FormatInt(amountMinor, 10)
	}
	_, err := c.doJSON(ctx, http.MethodPut, url, c.headers(), nil, false)
	return err
}

// NormalizeStatus maps Cielo's numeric transaction status:
// PaymentConfirmed lands on confirmed and Denied/Voided/Aborted on
// overdue, which the order projection folds into cancelled.
func (c *Cielo) NormalizeStatus(code string) (model.Status, error) {
	switch code {
	case "0", "1", "12": // NotFinished, Authorized, Pending
		return model.StatusPending, nil
	case "2": // PaymentConfirmed
		return model.StatusConfirmed, nil
	case "3", "10", "13": // Denied, Voided, Aborted
		return model.StatusOverdue, nil
	case "11": // Refunded
		return model.StatusRefunded, nil
	}
	return "", &UnknownStatusError{Gateway: c.gw, Code: code}
}

type cieloWebhook struct {
	PaymentID  string `json:"PaymentId"`
	ChangeType int    `json:"ChangeType"`
}

// ParseWebhook: Cielo notifications carry only the payment id, so the
// event's status must be fetched from the query API afterwards.
func (c *Cielo) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var wh cieloWebhook
	if err := decodeInto(c.gw, body, &wh); err != nil {
		return nil, err
	}
	if wh.PaymentID == "" {
		return nil, payerr.New(payerr.KindValidation, "cielo: webhook missing PaymentId")
	}
	return &WebhookEvent{ExternalRef: wh.PaymentID, StatusKnown: false}, nil
}
