package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/vendalivre/payhub/internal/dto"
	"github.com/vendalivre/payhub/internal/gateway"
	"github.com/vendalivre/payhub/internal/middleware"
	"github.com/vendalivre/payhub/internal/model"
	"github.com/vendalivre/payhub/internal/order"
	"github.com/vendalivre/payhub/internal/service"
)

type ChargeHandler struct {
	svc *service.ChargeService
}

func NewChargeHandler(svc *service.ChargeService) *ChargeHandler {
	return &ChargeHandler{svc: svc}
}

func (h *ChargeHandler) Create(c *gin.Context) {
	var req dto.CreateChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "validation failed: " + err.Error()})
		return
	}

	gw, _ := model.ParseGateway(req.Gateway)
	method, _ := model.ParseMethod(req.Method)

	snapshot := &order.Snapshot{
		OrderID:  req.OrderID,
		Total:    req.AmountMinor,
		Name:     req.Customer.Name,
		Email:    req.Customer.Email,
		Phone:    req.Customer.Phone,
		Document: req.Customer.Document,
		Address: order.Address{
			Street:     req.Customer.Address.Street,
			Number:     req.Customer.Address.Number,
			District:   req.Customer.Address.District,
			City:       req.Customer.Address.City,
			State:      req.Customer.Address.State,
			PostalCode: req.Customer.Address.PostalCode,
		},
	}

	in := &service.CreateChargeInput{
		Order:             snapshot,
		Gateway:           gw,
		Method:            method,
		ProductType:       req.ProductType,
		Installments:      req.Installments,
		PixExpirationSecs: req.PixExpirationSecs,
		BoletoDueDate:     req.BoletoDueDate,
	}
	// req.WalletID is intentionally dropped here: split wallets are
	// sourced from the validator, never from checkout payment data.
	if req.Card != nil {
		in.Card = &gateway.Card{
			Number:   req.Card.Number,
			Holder:   req.Card.Holder,
			ExpMonth: req.Card.ExpMonth,
			ExpYear:  req.Card.ExpYear,
			CVV:      req.Card.CVV,
		}
	}

	result, err := h.svc.CreateCharge(c.Request.Context(), in)
	if err != nil {
		status, resp := middleware.MapPaymentError(err)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusCreated, dto.NewChargeResponse(result.Charge, result.Artifact, snapshot.Notes))
}

func (h *ChargeHandler) Get(c *gin.Context) {
	refresh := c.Query("refresh") == "true"

	charge, err := h.svc.GetCharge(c.Request.Context(), c.Param("id"), refresh)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, service.ErrChargeNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "charge not found"})
			return
		}
		status, resp := middleware.MapPaymentError(err)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, dto.NewChargeResponse(charge, nil, nil))
}

func (h *ChargeHandler) Cancel(c *gin.Context) {
	charge, err := h.svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "charge not found"})
			return
		}
		status, resp := middleware.MapPaymentError(err)
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, dto.NewChargeResponse(charge, nil, nil))
}

func (h *ChargeHandler) Refund(c *gin.Context) {
	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "validation failed: " + err.Error()})
		return
	}

	charge, err := h.svc.Refund(c.Request.Context(), c.Param("id"), req.AmountMinor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "charge not found"})
			return
		}
		status, resp := middleware.MapPaymentError(err)
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, dto.NewChargeResponse(charge, nil, nil))
}
