package dto

import (
	"time"

	"github.com/vendalivre/payhub/internal/model"
)

type ChargeResponse struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	Gateway     string    `json:"gateway"`
	Method      string    `json:"method"`
	AmountMinor int64     `json:"amount_minor"`
	Status      string    `json:"status"`
	OrderStatus string    `json:"order_status"`
	ExternalRef string    `json:"external_ref"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Fees     FeesResponse           `json:"fees"`
	Artifact *model.PaymentArtifact `json:"artifact,omitempty"`
	Notes    []string               `json:"notes,omitempty"`
}

type FeesResponse struct {
	GrossMinor      int64  `json:"gross_minor"`
	PluginFeeMinor  int64  `json:"plugin_fee_minor"`
	GatewayFeeMinor int64  `json:"gateway_fee_minor"`
	NetMinor        int64  `json:"net_minor"`
	Tier            string `json:"tier"`
}

type WebhookResponse struct {
	Received   bool   `json:"received"`
	Transition bool   `json:"transition"`
	Status     string `json:"status,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func NewChargeResponse(c *model.Charge, artifact *model.PaymentArtifact, notes []string) ChargeResponse {
	return ChargeResponse{
		ID:          c.ID,
		OrderID:     c.OrderID,
		Gateway:     string(c.Gateway),
		Method:      string(c.Method),
		AmountMinor: c.AmountMinor,
		Status:      string(c.Status),
		OrderStatus: c.Status.OrderStatus(),
		ExternalRef: c.ExternalRef,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Fees: FeesResponse{
			GrossMinor:      c.Fees.GrossMinor,
			PluginFeeMinor:  c.Fees.PluginFeeMinor,
			GatewayFeeMinor: c.Fees.GatewayFeeMinor,
			NetMinor:        c.Fees.NetMinor,
			Tier:            c.Fees.Tier,
		},
		Artifact: artifact,
		Notes:    notes,
	}
}
