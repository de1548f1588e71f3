package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/vendalivre/payhub/internal/config"
	"github.com/vendalivre/payhub/internal/fees"
	"github.com/vendalivre/payhub/internal/httpx"
	"github.com/vendalivre/payhub/internal/model"
	"github.com/vendalivre/payhub/internal/payerr"
)

const (
	asaasBaseURL    = "https://api.asaas.com/v3"
	asaasSandboxURL = "https://sandbox.asaas.com/api/v3"
)

type Asaas struct {
	base
	apiKey  string
	baseURL string
}

func NewAsaas(cfg config.AsaasConfig, exec *httpx.Executor) *Asaas {
	url := asaasBaseURL
	if cfg.Sandbox {
		url = asaasSandboxURL
	}
	return &Asaas{
		base:    base{gw: model.GatewayAsaas, exec: exec},
		apiKey:  cfg.APIKey,
		baseURL: url,
	}
}

func (a *Asaas) headers() map[string]string {
	return map[string]string{"access_token": a.apiKey}
}

func (a *Asaas) Supports(method model.Method) bool {
	switch method {
	case model.MethodPix, model.MethodBoleto, model.MethodCreditCard:
		return true
	}
	return false
}

type asaasCustomerRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	CpfCnpj       string `json:"cpfCnpj"`
	PostalCode    string `json:"postalCode,omitempty"`
	Address       string `json:"address,omitempty"`
	AddressNumber string `json:"addressNumber,omitempty"`
	Province      string `json:"province,omitempty"`
}

type asaasSplit struct {
	WalletID   string  `json:"walletId"`
	FixedValue float64 `json:"fixedValue"`
}

type asaasPaymentRequest struct {
	Customer    string       `json:"customer"`
	BillingType string       `json:"billingType"`
	Value       float64      `json:"value"`
	DueDate     string       `json:"dueDate"`
	Description string       `json:"description,omitempty"`
	ExternalRef string       `json:"externalReference,omitempty"`
	Split       []asaasSplit `json:"split,omitempty"`

	CreditCard           *asaasCreditCard `json:"creditCard,omitempty"`
	CreditCardHolderInfo *asaasHolderInfo `json:"creditCardHolderInfo,omitempty"`
	InstallmentCount     int              `json:"installmentCount,omitempty"`
}

type asaasCreditCard struct {
	HolderName  string `json:"holderName"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	Ccv         string `json:"ccv"`
}

type asaasHolderInfo struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	CpfCnpj       string `json:"cpfCnpj"`
	PostalCode    string `json:"postalCode"`
	AddressNumber string `json:"addressNumber"`
	Phone         string `json:"phone,omitempty"`
}

type asaasPaymentResponse struct {
	ID                  string `json:"id"`
	Status              string `json:"status"`
	BankSlipURL         string `json:"bankSlipUrl"`
	IdentificationField string `json:"identificationField"`
	DueDate             string `json:"dueDate"`
}

type asaasPixQrResponse struct {
	EncodedImage   string `json:"encodedImage"`
	Payload        string `json:"payload"`
	ExpirationDate string `json:"expirationDate"`
}

func (a *Asaas) createCustomer(ctx context.Context, req *ChargeRequest) (string, error) {
	addr := req.Order.BillingAddress()
	resp, err := a.doJSON(ctx, http.MethodPost, a.baseURL+"/customers", a.headers(), asaasCustomerRequest{
		Name:          req.Order.CustomerName(),
		Email:         req.Order.CustomerEmail(),
		Phone:         req.Order.CustomerPhone(),
		CpfCnpj:       req.Order.CustomerDocument(),
		PostalCode:    addr.PostalCode,
		Address:       addr.Street,
		AddressNumber: addr.Number,
		Province:      addr.District,
	}, false)
	if err != nil {
		return "", err
	}
	var customer struct {
		ID string `json:"id"`
	}
	if err := decodeInto(a.gw, resp.Body, &customer); err != nil {
		return "", err
	}
	return customer.ID, nil
}

func (a *Asaas) createPayment(ctx context.Context, req *ChargeRequest, billingType string) (*asaasPaymentResponse, error) {
	customerID, err := a.createCustomer(ctx, req)
	if err != nil {
		return nil, err
	}

	payment := asaasPaymentRequest{
		Customer:    customerID,
		BillingType: billingType,
		Value:       fees.ToMajor(req.AmountMinor),
		DueDate:     req.BoletoDueDate,
		Description: "Pedido " + req.Order.ID(),
		ExternalRef: req.Order.ID(),
	}
	if payment.DueDate == "" {
		payment.DueDate = time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	}
	if req.Split != nil {
		payment.Split = []asaasSplit{{
			WalletID:   req.Split.WalletID,
			FixedValue: fees.ToMajor(req.Split.AmountMinor),
		}}
	}
	if billingType == "CREDIT_CARD" && req.Card != nil {
		addr := req.Order.BillingAddress()
		payment.CreditCard = &asaasCreditCard{
			HolderName:  req.Card.Holder,
			Number:      req.Card.Number,
			ExpiryMonth: req.Card.ExpMonth,
			ExpiryYear:  req.Card.ExpYear,
			Ccv:         req.Card.CVV,
		}
		payment.CreditCardHolderInfo = &asaasHolderInfo{
			Name:          req.Order.CustomerName(),
			Email:         req.Order.CustomerEmail(),
			CpfCnpj:       req.Order.CustomerDocument(),
			PostalCode:    addr.PostalCode,
			AddressNumber: addr.Number,
			Phone:         req.Order.CustomerPhone(),
		}
		if req.Installments > 1 {
			payment.InstallmentCount = req.Installments
		}
	}

	resp, err := a.doJSON(ctx, http.MethodPost, a.baseURL+"/payments", a.headers(), payment, true)
	if err != nil {
		return nil, err
	}
	var created asaasPaymentResponse
	if err := decodeInto(a.gw, resp.Body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (a *Asaas) CreatePixPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	created, err := a.createPayment(ctx, req, "PIX")
	if err != nil {
		return nil, err
	}

	status, err := a.NormalizeStatus(created.Status)
	if err != nil {
		return nil, err
	}

	qrResp, err := a.doJSON(ctx, http.MethodGet, a.baseURL+"/payments/"+created.ID+"/pixQrCode", a.headers(), nil, true)
	if err != nil {
		return nil, err
	}
	var qr asaasPixQrResponse
	if err := decodeInto(a.gw, qrResp.Body, &qr); err != nil {
		return nil, err
	}

	return &model.PaymentArtifact{
		Gateway:        a.gw,
		Method:         model.MethodPix,
		ExternalRef:    created.ID,
		Status:         status,
		PixPayload:     qr.Payload,
		PixImageBase64: qr.EncodedImage,
		PixExpiresAt:   qr.ExpirationDate,
	}, nil
}

func (a *Asaas) CreateBoletoPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	created, err := a.createPayment(ctx, req, "BOLETO")
	if err != nil {
		return nil, err
	}
	status, err := a.NormalizeStatus(created.Status)
	if err != nil {
		return nil, err
	}
	return &model.PaymentArtifact{
		Gateway:       a.gw,
		Method:        model.MethodBoleto,
		ExternalRef:   created.ID,
		Status:        status,
		BoletoBarcode: created.IdentificationField,
		BoletoURL:     created.BankSlipURL,
		BoletoDueDate: created.DueDate,
	}, nil
}

func (a *Asaas) CreateCreditCardPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	created, err := a.createPayment(ctx, req, "CREDIT_CARD")
	if err != nil {
		return nil, err
	}
	status, err := a.NormalizeStatus(created.Status)
	if err != nil {
		return nil, err
	}
	return &model.PaymentArtifact{
		Gateway:     a.gw,
		Method:      model.MethodCreditCard,
		ExternalRef: created.ID,
		Status:      status,
	}, nil
}

func (a *Asaas) CreateDebitCardPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	return nil, errUnsupported(a.gw, model.MethodDebitCard)
}

func (a *Asaas) GetStatus(ctx context.Context, externalRef string) (model.Status, error) {
	resp, err := a.doJSON(ctx, http.MethodGet, a.baseURL+"/payments/"+externalRef, a.headers(), nil, true)
	if err != nil {
		return "", err
	}
	var payment asaasPaymentResponse
	if err := decodeInto(a.gw, resp.Body, &payment); err != nil {
		return "", err
	}
	return a.NormalizeStatus(payment.Status)
}

func (a *Asaas) Cancel(ctx context.Context, externalRef string) error {
	_, err := a.doJSON(ctx, http.MethodDelete, a.baseURL+"/payments/"+externalRef, a.headers(), nil, false)
	return err
}

func (a *Asaas) Refund(ctx context.Context, externalRef string, amountMinor int64) error {
	payload := map[string]any{}
	if amountMinor > 0 {
		payload["value"] = fees.ToMajor(amountMinor)
	}
	_, err := a.doJSON(ctx, http.MethodPost, a.baseURL+"/payments/"+externalRef+"/refund", a.headers(), payload, false)
	return err
}

// NormalizeStatus maps Asaas's vocabulary onto the internal one. The
// table is closed: anything else is an UnknownStatusError.
func (a *Asaas) NormalizeStatus(code string) (model.Status, error) {
	switch code {
	case "PENDING":
		return model.StatusPending, nil
	case "RECEIVED", "CONFIRMED":
		return model.StatusPaid, nil
	case "OVERDUE":
		return model.StatusExpired, nil
	case "REFUNDED":
		return model.StatusRefunded, nil
	}
	return "", &UnknownStatusError{Gateway: a.gw, Code: code}
}

type asaasWebhook struct {
	Event   string `json:"event"`
	Payment struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"payment"`
}

func (a *Asaas) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var wh asaasWebhook
	if err := decodeInto(a.gw, body, &wh); err != nil {
		return nil, err
	}
	if wh.Payment.ID == "" {
		return nil, payerr.New(payerr.KindValidation, "asaas: webhook missing payment.id")
	}
	status, err := a.NormalizeStatus(wh.Payment.Status)
	if err != nil {
		return nil, err
	}
	return &WebhookEvent{
		ExternalRef: wh.Payment.ID,
		RawStatus:   wh.Payment.Status,
		Status:      status,
		StatusKnown: true,
	}, nil
}
