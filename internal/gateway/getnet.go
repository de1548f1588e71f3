package gateway

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/vendalivre/payhub/internal/config"
	"github.com/vendalivre/payhub/internal/httpx"
	"github.com/vendalivre/payhub/internal/model"
	"github.com/vendalivre/payhub/internal/payerr"
)

const (
	getnetBaseURL        = "https://api.getnet.com.br"
	getnetSandboxBaseURL = "https://api-sandbox.getnet.com.br"
)

type Getnet struct {
	base
	clientID     string
	clientSecret string
	sellerID     string
	baseURL      string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	now func() time.Time
}

func NewGetnet(cfg config.GetnetConfig, exec *httpx.Executor) *Getnet {
	url := getnetBaseURL
	if cfg.Sandbox {
		url = getnetSandboxBaseURL
	}
	return &Getnet{
		base:         base{gw: model.GatewayGetnet, exec: exec},
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		sellerID:     cfg.SellerID,
		baseURL:      url,
		now:          time.Now,
	}
}

func (g *Getnet) Supports(method model.Method) bool {
	switch method {
	case model.MethodPix, model.MethodBoleto, model.MethodCreditCard, model.MethodDebitCard:
		return true
	}
	return false
}

type getnetTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns the cached OAuth2 bearer token, fetching a fresh one
// via client credentials when missing or close to expiry.
func (g *Getnet) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accessToken != "" && g.now().Before(g.tokenExpiry) {
		return g.accessToken, nil
	}

	creds := base64.StdEncoding.EncodeToString([]byte(g.clientID + ":" + g.clientSecret))
	form := url.Values{"grant_type": {"client_credentials"}, "scope": {"oob"}}

	resp, err := g.exec.Do(ctx, string(g.gw), &httpx.Request{
		Method: http.MethodPost,
		URL:    g.baseURL + "/auth/oauth/v2/token",
		Headers: map[string]string{
			"Authorization": "Basic " + creds,
			"Content-Type":  "application/x-www-form-urlencoded",
		},
		Body: []byte(form.Encode()),
	}, true)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &payerr.Error{Kind: payerr.KindConfiguration, Message: "getnet: token request rejected", Raw: resp.Body}
	}

	var tr getnetTokenResponse
	if err := decodeInto(g.gw, resp.Body, &tr); err != nil {
		return "", err
	}
	if tr.AccessToken == "" {
		return "", &payerr.Error{Kind: payerr.KindConfiguration, Message: "getnet: empty access token", Raw: resp.Body}
	}

	g.accessToken = tr.AccessToken
	// Renew one minute early to avoid using a token mid-expiry.
	g.tokenExpiry = g.now().Add(time.Duration(tr.ExpiresIn)*time.Second - time.Minute)
	return g.accessToken, nil
}

func (g *Getnet) authHeaders(ctx context.Context) (map[string]string, error) {
	token, err := g.token(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}

type getnetCustomer struct {
	CustomerID     string `json:"customer_id"`
	FirstName      string `json:"first_name,omitempty"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
}

type getnetOrder struct {
	OrderID string `json:"order_id"`
}

type getnetPixRequest struct {
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
}

type getnetPixResponse struct {
	PaymentID      string `json:"payment_id"`
	Status         string `json:"status"`
	AdditionalData struct {
		QrCode           string `json:"qr_code"`
		CreationDateQr   string `json:"creation_date_qrcode"`
		ExpirationDateQr string `json:"expiration_date_qrcode"`
	} `json:"additional_data"`
}

type getnetCardTokenRequest struct {
	CardNumber string `json:"card_number"`
	CustomerID string `json:"customer_id"`
}

type getnetCardTokenResponse struct {
	NumberToken string `json:"number_token"`
}

type getnetCardPayment struct {
	Delayed            bool       `json:"delayed"`
	SaveCardData       bool       `json:"save_card_data"`
	TransactionType    string     `json:"transaction_type"`
	NumberInstallments int        `json:"number_installments"`
	Card               getnetCard `json:"card"`
}

type getnetCard struct {
	NumberToken     string `json:"number_token"`
	CardholderName  string `json:"cardholder_name"`
	SecurityCode    string `json:"security_code"`
	ExpirationMonth string `json:"expiration_month"`
	ExpirationYear  string `json:"expiration_year"`
}

type getnetCardRequest struct {
	SellerID string             `json:"seller_id"`
	Amount   int64              `json:"amount"`
	Currency string             `json:"currency"`
	Order    getnetOrder        `json:"order"`
	Customer getnetCustomer     `json:"customer"`
	Credit   *getnetCardPayment `json:"credit,omitempty"`
	Debit    *getnetCardPayment `json:"debit,omitempty"`
}

type getnetPaymentResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Credit    struct {
		AuthorizationCode string `json:"authorization_code"`
	} `json:"credit"`
	Debit struct {
		AuthorizationCode string `json:"authorization_code"`
	} `json:"debit"`
	Boleto struct {
		TypefulLine string `json:"typeful_line"`
		Links       []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"_links"`
		ExpirationDate string `json:"expiration_date"`
	} `json:"boleto"`
}

func (g *Getnet) CreatePixPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	headers, err := g.authHeaders(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := g.doJSON(ctx, http.MethodPost, g.baseURL+"/v1/payments/pix", headers, getnetPixRequest{
		Amount:     req.AmountMinor,
		Currency:   "BRL",
		OrderID:    req.Order.ID(),
		CustomerID: req.Order.CustomerDocument(),
	}, true)
	if err != nil {
		return nil, err
	}
	var created getnetPixResponse
	if err := decodeInto(g.gw, resp.Body, &created); err != nil {
		return nil, err
	}
	status, err := g.NormalizeStatus(created.Status)
	if err != nil {
		return nil, err
	}
	return &model.PaymentArtifact{
		Gateway:      g.gw,
		Method:       model.MethodPix,
		ExternalRef:  created.PaymentID,
		Status:       status,
		PixPayload:   created.AdditionalData.QrCode,
		PixExpiresAt: created.AdditionalData.ExpirationDateQr,
	}, nil
}

func (g *Getnet) CreateBoletoPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	headers, err := g.authHeaders(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"seller_id": g.sellerID,
		"amount":    req.AmountMinor,
		"currency":  "BRL",
		"order":     getnetOrder{OrderID: req.Order.ID()},
		"boleto": map[string]any{
			"document_number": req.Order.ID(),
			"expiration_date": req.BoletoDueDate,
		},
		"customer": getnetCustomer{
			CustomerID:     req.Order.CustomerDocument(),
			Name:           req.Order.CustomerName(),
			Email:          req.Order.CustomerEmail(),
			DocumentType:   "CPF",
			DocumentNumber: req.Order.CustomerDocument(),
		},
	}
	resp, err := g.doJSON(ctx, http.MethodPost, g.baseURL+"/v1/payments/boleto", headers, payload, true)
	if err != nil {
		return nil, err
	}
	var created getnetPaymentResponse
	if err := decodeInto(g.gw, resp.Body, &created); err != nil {
		return nil, err
	}
	status := model.StatusPending
	if created.Status != "" {
		if status, err = g.NormalizeStatus(created.Status); err != nil {
			return nil, err
		}
	}
	boletoURL := ""
	for _, link := range created.Boleto.Links {
		if link.Rel == "boleto_pdf" || boletoURL == "" {
			boletoURL = link.Href
		}
	}
	return &model.PaymentArtifact{
		Gateway:       g.gw,
		Method:        model.MethodBoleto,
		ExternalRef:   created.PaymentID,
		Status:        status,
		BoletoBarcode: created.Boleto.TypefulLine,
		BoletoURL:     boletoURL,
		BoletoDueDate: created.Boleto.ExpirationDate,
	}, nil
}

// tokenizeCard exchanges a PAN for a number token; Getnet card charges
// never carry the raw number.
func (g *Getnet) tokenizeCard(ctx context.Context, headers map[string]string, req *ChargeRequest) (string, error) {
	resp, err := g.doJSON(ctx, http.MethodPost, g.baseURL+"/v1/tokens/card", headers, getnetCardTokenRequest{
		CardNumber: req.Card.Number,
		CustomerID: req.Order.CustomerDocument(),
	}, false)
	if err != nil {
		return "", err
	}
	var tr getnetCardTokenResponse
	if err := decodeInto(g.gw, resp.Body, &tr); err != nil {
		return "", err
	}
	return tr.NumberToken, nil
}

func (g *Getnet) cardPayment(ctx context.Context, req *ChargeRequest, method model.Method) (*model.PaymentArtifact, error) {
	if req.Card == nil {
		return nil, payerr.New(payerr.KindValidation, "getnet: card data required for %s", method)
	}
	headers, err := g.authHeaders(ctx)
	if err != nil {
		return nil, err
	}
	numberToken, err := g.tokenizeCard(ctx, headers, req)
	if err != nil {
		return nil, err
	}

	installments := req.Installments
	if installments < 1 {
		installments = 1
	}
	payment := &getnetCardPayment{
		TransactionType:    "FULL",
		NumberInstallments: installments,
		Card: getnetCard{
			NumberToken:     numberToken,
			CardholderName:  req.Card.Holder,
			SecurityCode:    req.Card.CVV,
			ExpirationMonth: req.Card.ExpMonth,
			ExpirationYear:  req.Card.ExpYear,
		},
	}
	if installments > 1 {
		payment.TransactionType = "INSTALL_NO_INTEREST"
	}

	wire := getnetCardRequest{
		SellerID: g.sellerID,
		Amount:   req.AmountMinor,
		Currency: "BRL",
		Order:    getnetOrder{OrderID: req.Order.ID()},
		Customer: getnetCustomer{
			CustomerID:     req.Order.CustomerDocument(),
			Name:           req.Order.CustomerName(),
			Email:          req.Order.CustomerEmail(),
			DocumentType:   "CPF",
			DocumentNumber: req.Order.CustomerDocument(),
		},
	}
	path := "/v1/payments/credit"
	if method == model.MethodDebitCard {
		wire.Debit = payment
		path = "/v1/payments/debit"
	} else {
		wire.Credit = payment
	}

	resp, err := g.doJSON(ctx, http.MethodPost, g.baseURL+path, headers, wire, false)
	if err != nil {
		return nil, err
	}
	var created getnetPaymentResponse
	if err := decodeInto(g.gw, resp.Body, &created); err != nil {
		return nil, err
	}
	status, err := g.NormalizeStatus(created.Status)
	if err != nil {
		return nil, err
	}
	authCode := created.Credit.AuthorizationCode
	if method == model.MethodDebitCard {
		authCode = created.Debit.AuthorizationCode
	}
	return &model.PaymentArtifact{
		Gateway:           g.gw,
		Method:            method,
		ExternalRef:       created.PaymentID,
		Status:            status,
		AuthorizationCode: authCode,
	}, nil
}

func (g *Getnet) CreateCreditCardPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	return g.cardPayment(ctx, req, model.MethodCreditCard)
}

func (g *Getnet) CreateDebitCardPayment(ctx context.Context, req *ChargeRequest) (*model.PaymentArtifact, error) {
	return g.cardPayment(ctx, req, model.MethodDebitCard)
}

func (g *Getnet) GetStatus(ctx context.Context, externalRef string) (model.Status, error) {
	headers, err := g.authHeaders(ctx)
	if err != nil {
		return "", err
	}
	resp, err := g.doJSON(ctx, http.MethodGet, g.baseURL+"/v1/payments/"+externalRef, headers, nil, true)
	if err != nil {
		return "", err
	}
	var payment getnetPaymentResponse
	if err := decodeInto(g.gw, resp.Body, &payment); err != nil {
		return "", err
	}
	return g.NormalizeStatus(payment.Status)
}

func (g *Getnet) Cancel(ctx context.Context, externalRef string) error {
	headers, err := g.authHeaders(ctx)
	if err != nil {
		return err
	}
	_, err = g.doJSON(ctx, http.MethodPost, g.baseURL+"/v1/payments/"+externalRef+"/cancel", headers, map[string]any{}, false)
	return err
}

func (g *Getnet) Refund(ctx context.Context, externalRef string, amountMinor int64) error {
	headers, err := g.authHeaders(ctx)
	if err != nil {
		return err
	}
	payload := map[string]any{}
	if amountMinor > 0 {
		payload["cancel_amount"] = amountMinor
	}
	_, err = g.doJSON(ctx, http.MethodPost, g.baseURL+"/v1/payments/"+externalRef+"/cancel", headers, payload, false)
	return err
}

func (g *Getnet) NormalizeStatus(code string) (model.Status, error) {
	switch code {
	case "APPROVED":
		return model.StatusPaid, nil
	case "PENDING":
		return model.StatusPending, nil
	case "DENIED", "ERROR":
		return model.StatusFailed, nil
	case "CANCELED":
		return model.StatusCancelled, nil
	}
	return "", &UnknownStatusError{Gateway: g.gw, Code: code}
}

type getnetWebhook struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

func (g *Getnet) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var wh getnetWebhook
	if err := decodeInto(g.gw, body, &wh); err != nil {
		return nil, err
	}
	if wh.PaymentID == "" {
		return nil, payerr.New(payerr.KindValidation, "getnet: webhook missing payment_id")
	}
	status, err := g.NormalizeStatus(wh.Status)
	if err != nil {
		return nil, err
	}
	return &WebhookEvent{
		ExternalRef: wh.PaymentID,
		RawStatus:   wh.Status,
		Status:      status,
		StatusKnown: true,
	}, nil
}
