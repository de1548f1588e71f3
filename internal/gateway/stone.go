package gateway

import (
	"context"
	"net/http"

	"github.com/vendalivre/payhub/internal/config"
	"github.com/vendalivre/payhub/internal/httpx"
	"github.com/vendalivre/payhub/internal/model"
	"github.com/vendalivre/payhub/internal/payerr"
)

const stoneBaseURL = "https://api.stone.com.br/v1"

type Stone struct {
	base
	apiKey  string
	baseURL string
}

func NewStone(cfg config.StoneConfig, exec *httpx.Executor) *Stone {
	return &Stone{
		base:    base{gw: model.GatewayStone, exec: exec},
		apiKey:  cfg.APIKey,
		baseURL: stoneBaseURL,
	}
}

func (s *Stone) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.apiKey}
}

func (s *Stone) Supports(method model.Method) bool {
	return method == model.MethodPix || method == model.MethodCreditCard
}

type stoneChargeRequest struct {
	Amount       int64            `json:"amount"`
	Currency     string           `json:"currency"`
	Method       string           `json:"method"`
	Reference    string           `json:"reference"`
	Customer     stoneCustomer    `json:"customer"`
	Card         *stoneCard       `json:"card,omitempty"`
	Installments int              `json:"installments,omitempty"`
	PixExpiresIn int              `json:"pix_expires_in,omitempty"`
	Split        []stoneSplitRule `json:"split,omitempty"`
}

type stoneCustomer struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Document string `json:"document,omitempty"`
}

type stoneCard struct {
	Number   string `json:"number"`
	Holder   string `json:"holder"`
	ExpMonth string `json:"exp_month"`
	ExpYear  string `json:"exp_year"`
	CVV      string `json:"cvv"`
}

type stoneSplitRule struct {
	WalletID string `json:"wallet_id"`
	Amount   int64  `json:"amount"`
}

type stoneChargeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Pix    struct {
		QrCode      string `json:"qr_code"`
		QrCodeImage string `json:"qr_code_image"`
		ExpiresAt   string `json:"expires_at"`
	} `json:"pix"`
	AuthorizationCode string `json:"authorization_code"`
}

func (s *Stone) createCharge(ctx context.Context, req *ChargeRequest, wire stoneChargeRequest) (*stoneChargeResponse, error) {
	wire.Currency = "BRL"
	wire.Reference = req.Order.ID()
	wire.Customer = stoneCustomer{
		Name:     req.Order.CustomerName(),
		Email:    req.Order.CustomerEmail(),
		Document: req.Order.CustomerDocument(),
	}
	if req.Split != nil {
		wire.Split = []stoneSplitRule{{WalletID: req.Split.WalletID, Amount: req.Split.AmountMinor}}
	}

	resp, err := s.doJSON(ctx, http.MethodPost, s.baseURL+"/charges", s.headers(), wire, true)
	if err != nil {
		return nil, err
	}
	var created stoneChargeResponse
	if err := decodeInto(s.gw, resp.Body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Stone) CreatePixPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	created, err := s.createCharge(ctx, req, stoneChargeRequest{
		Amount:       req.AmountMinor,
		Method:       "pix",
		PixExpiresIn: req.PixExpirationSecs,
	})
	if err != nil {
		return nil, err
	}
	status, err := s.NormalizeStatus(created.Status)
	if err != nil {
		return nil, err
	}
	return &model.PaymentArtifact{
		Gateway:        s.gw,
		Method:         model.MethodPix,
		ExternalRef:    created.ID,
		Status:         status,
		PixPayload:     created.Pix.QrCode,
		PixImageBase64: created.Pix.QrCodeImage,
		PixExpiresAt:   created.Pix.ExpiresAt,
	}, nil
}

func (s *Stone) CreateBoletoPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	return nil, errUnsupported(s.gw, model.MethodBoleto)
}

func (s *Stone) CreateCreditCardPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	if req.Card == nil {
		return nil, payerr.New(payerr.KindValidation, "stone: card data required for credit_card")
	}
	installments := req.Installments
	if installments < 1 {
		installments = 1
	}
	created, err := s.createCharge(ctx, req, stoneChargeRequest{
		Amount:       req.AmountMinor,
		Method:       "credit_card",
		Installments: installments,
		Card: &stoneCard{
			Number:   req.Card.Number,
			Holder:   req.Card.Holder,
			ExpMonth: req.Card.ExpMonth,
			ExpYear:  req.Card.ExpYear,
			CVV:      req.Card.CVV,
		},
	})
	if err != nil {
		return nil, err
	}
	status, err := s.NormalizeStatus(created.Status)
	if err != nil {
		return nil, err
	}
	return &model.PaymentArtifact{
		Gateway:           s.gw,
		Method:            model.MethodCreditCard,
		ExternalRef:       created.ID,
		Status:            status,
		AuthorizationCode: created.AuthorizationCode,
	}, nil
}

func (s *Stone) CreateDebitCardPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	return nil, errUnsupported(s.gw, model.MethodDebitCard)
}

func (s *Stone) GetStatus(ctx context.Context, externalRef string) (model.Status, error) {
	resp, err := s.doJSON(ctx, http.MethodGet, s.baseURL+"/charges/"+externalRef, s.headers(), nil, true)
	if err != nil {
		return "", err
	}
	var charge stoneChargeResponse
	if err := decodeInto(s.gw, resp.Body, &charge); err != nil {
		return "", err
	}
	return s.NormalizeStatus(charge.Status)
}

func (s *Stone) Cancel(ctx context.Context, externalRef string) error {
	_, err := s.doJSON(ctx, http.MethodPost, s.baseURL+"/charges/"+externalRef+"/cancel", s.headers(), map[string]any{}, false)
	return err
}

func (s *Stone) Refund(ctx context.Context, externalRef string, amountMinor int64) error {
	payload := map[string]any{}
	if amountMinor > 0 {
		payload["amount"] = amountMinor
	}
	_, err := s.doJSON(ctx, http.MethodPost, s.baseURL+"/charges/"+externalRef+"/refund", s.headers(), payload, false)
	return err
}

// NormalizeStatus: Stone's names match the internal vocabulary, modulo
// the US spelling of canceled.
func (s *Stone) NormalizeStatus(code string) (model.Status, error) {
	switch code {
	case "paid":
		return model.StatusPaid, nil
	case "pending":
		return model.StatusPending, nil
	case "failed":
		return model.StatusFailed, nil
	case "canceled":
		return model.StatusCancelled, nil
	case "refunded":
		return model.StatusRefunded, nil
	}
	return "", &UnknownStatusError{Gateway: s.gw, Code: code}
}

type stoneWebhook struct {
	Event string `json:"event"`
	Data  struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

func (s *Stone) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var wh stoneWebhook
	if err := decodeInto(s.gw, body, &wh); err != nil {
		return nil, err
	}
	if wh.Data.ID == "" {
		return nil, payerr.New(payerr.KindValidation, "stone: webhook missing data.id")
	}
	status, err := s.NormalizeStatus(wh.Data.Status)
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
