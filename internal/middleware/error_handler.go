package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/vendalivre/payhub/internal/dto"
	"github.com/vendalivre/payhub/internal/gateway"
	"github.com/vendalivre/payhub/internal/payerr"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MapPaymentError translates the payment error taxonomy into HTTP
// codes: configuration 503, validation 422, rate limit 429, provider
// rejection 502, transient exhaustion 504.
func MapPaymentError(err error) (int, dto.ErrorResponse) {
	var unknown *gateway.UnknownStatusError
	if errors.As(err, &unknown) {
		return http.StatusBadGateway, dto.ErrorResponse{Error: unknown.Error(), Kind: string(payerr.KindProvider)}
	}

	switch payerr.KindOf(err) {
	case payerr.KindConfiguration:
		return http.StatusServiceUnavailable, dto.ErrorResponse{Error: err.Error(), Kind: string(payerr.KindConfiguration)}
	case payerr.KindValidation:
		return http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error(), Kind: string(payerr.KindValidation)}
	case payerr.KindRateLimited:
		return http.StatusTooManyRequests, dto.ErrorResponse{Error: err.Error(), Kind: string(payerr.KindRateLimited)}
	case payerr.KindProvider:
		return http.StatusBadGateway, dto.ErrorResponse{Error: err.Error(), Kind: string(payerr.KindProvider)}
	case payerr.KindTransient:
		return http.StatusGatewayTimeout, dto.ErrorResponse{Error: err.Error(), Kind: string(payerr.KindTransient)}
	}

	log.Error().Err(err).Msg("unhandled payment error")
	return http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"}
}

func MapDBError(err error) (int, ErrorResponse) {
	if errors.Is(err, pgx.ErrNoRows) {
		return http.StatusNotFound, ErrorResponse{Error: "resource not found"}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return http.StatusConflict, ErrorResponse{
				Error:   "resource already exists",
				Details: pgErr.Detail,
			}
		case "23503": // foreign_key_violation
			return http.StatusBadRequest, ErrorResponse{
				Error:   "referenced resource does not exist",
				Details: pgErr.Detail,
			}
		case "23514": // check_violation
			return http.StatusBadRequest, ErrorResponse{
				Error:   "constraint violation",
				Details: pgErr.Detail,
			}
		}
	}

	log.Error().Err(err).Msg("unhandled database error")
	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
}

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			status, resp := MapDBError(err)
			c.JSON(status, resp)
		}
	}
}
