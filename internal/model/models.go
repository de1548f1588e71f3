package model

import (
	"encoding/json"
	"time"
)

type Gateway string

const (
	GatewayAsaas   Gateway = "asaas"
	GatewayCielo   Gateway = "cielo"
	GatewayGetnet  Gateway = "getnet"
	GatewayPagarme Gateway = "pagarme"
	GatewayRede    Gateway = "rede"
	GatewayStone   Gateway = "stone"
)

func AllGateways() []Gateway {
	return []Gateway{GatewayAsaas, GatewayCielo, GatewayGetnet, GatewayPagarme, GatewayRede, GatewayStone}
}

func ParseGateway(s string) (Gateway, bool) {
	for _, g := range AllGateways() {
		if string(g) == s {
			return g, true
		}
	}
	return "", false
}

type Method string

const (
	MethodPix        Method = "pix"
	MethodBoleto     Method = "boleto"
	MethodCreditCard Method = "credit_card"
	MethodDebitCard  Method = "debit_card"
)

func ParseMethod(s string) (Method, bool) {
	switch Method(s) {
	case MethodPix, MethodBoleto, MethodCreditCard, MethodDebitCard:
		return Method(s), true
	}
	return "", false
}

// Charge is the durable record of a single provider charge attempt.
// Created once by an adapter call, mutated only by the reconciler.
type Charge struct {
	ID          string       `json:"id"`
	OrderID     string       `json:"order_id"`
	Gateway     Gateway      `json:"gateway"`
	Method      Method       `json:"method"`
	AmountMinor int64        `json:"amount_minor"`
	Status      Status       `json:"status"`
	ExternalRef string       `json:"external_ref"`
	Fees        FeeBreakdown `json:"fees"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// FeeBreakdown is computed once per charge attempt. All amounts are in
// minor units (centavos). net == gross - plugin - gateway holds by
// construction: net is derived by subtraction.
type FeeBreakdown struct {
	GrossMinor      int64  `json:"gross_minor"`
	PluginFeeMinor  int64  `json:"plugin_fee_minor"`
	GatewayFeeMinor int64  `json:"gateway_fee_minor"`
	NetMinor        int64  `json:"net_minor"`
	Tier            string `json:"tier"`
}

// SplitRule routes part of a charge to a platform wallet. The wallet id
// must come from the transaction validator, never from caller payment data.
type SplitRule struct {
	WalletID         string `json:"wallet_id"`
	AmountMinor      int64  `json:"amount_minor"`
	ChargeProcessing bool   `json:"charge_processing_fee"`
}

type EntryType string

const (
	EntryCharge     EntryType = "charge"
	EntryRefund     EntryType = "refund"
	EntryAdjustment EntryType = "adjustment"
)

// LedgerEntry is append-only. (gateway, external_ref, status) is the
// idempotency key: redelivered webhooks must not produce a second row
// for the same transition.
type LedgerEntry struct {
	ID          string          `json:"id"`
	Type        EntryType       `json:"type"`
	Gateway     Gateway         `json:"gateway"`
	ExternalRef string          `json:"external_ref"`
	GrossMinor  int64           `json:"gross_minor"`
	FeeMinor    int64           `json:"fee_minor"`
	NetMinor    int64           `json:"net_minor"`
	Status      Status          `json:"status"`
	Meta        json.RawMessage `json:"meta,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Authorization is the validator's short-lived grant for one charge
// attempt. It is never persisted.
type Authorization struct {
	WalletID  string `json:"wallet_id"`
	AuthToken string `json:"auth_token"`
}

// PaymentArtifact is what the checkout needs to finish the payment:
// a PIX QR code, a boleto slip, or a card authorization result.
type PaymentArtifact struct {
	Gateway     Gateway `json:"gateway"`
	Method      Method  `json:"method"`
	ExternalRef string  `json:"external_ref"`
	Status      Status  `json:"status"`

	PixPayload     string `json:"pix_payload,omitempty"`
	PixImageBase64 string `json:"pix_image_base64,omitempty"`
	PixExpiresAt   string `json:"pix_expires_at,omitempty"`

	BoletoBarcode string `json:"boleto_barcode,omitempty"`
	BoletoURL     string `json:"boleto_url,omitempty"`
	BoletoDueDate string `json:"boleto_due_date,omitempty"`

	AuthorizationCode string `json:"authorization_code,omitempty"`
}
