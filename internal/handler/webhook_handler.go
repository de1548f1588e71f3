package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/vendalivre/payhub/internal/dto"
	"github.com/vendalivre/payhub/internal/model"
	"github.com/vendalivre/payhub/internal/service"
)

type WebhookHandler struct {
	reconciler *service.Reconciler
}

func NewWebhookHandler(reconciler *service.Reconciler) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// Handle acknowledges provider notifications. Business-logic no-ops
// (replays, sunk terminal states) still answer 200 so providers stop
// redelivering; only malformed payloads and unknown refs are refused.
func (h *WebhookHandler) Handle(c *gin.Context) {
	gw, ok := model.ParseGateway(c.Param("gateway"))
	if !ok {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "unknown gateway"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "empty webhook body"})
		return
	}

	result, err := h.reconciler.HandleWebhook(c.Request.Context(), gw, body)
	if err != nil {
		if errors.Is(err, service.ErrChargeNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "charge not found"})
			return
		}
		log.Warn().Err(err).Str("gateway", string(gw)).Msg("webhook rejected")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.WebhookResponse{
		Received:   true,
		Transition: result.Transition,
		Status:     string(result.Charge.Status),
	})
}
