package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moonfolio/moonfolio-backend/internal/domain"
)

// errorResponse is the JSON shape of every non-2xx response: a stable code
// the UI can branch on and a human-readable message.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondMapped translates a domain error into an HTTP response
func (s *Server) respondMapped(c *gin.Context, err error) {
	status, code := mapError(err)
	if status >= http.StatusInternalServerError {
		s.Log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	respondError(c, status, code, err.Error())
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Message: message})
}

// mapError converts the domain error taxonomy to HTTP status + error code.
// Validation failures are client errors; ErrHistoryWriteFailed stays a
// server error with its own code so callers can alert and reconcile rather
// than resubmit.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidOrder):
		return http.StatusBadRequest, "invalid_order"
	case errors.Is(err, domain.ErrPriceUnavailable):
		return http.StatusServiceUnavailable, "price_unavailable"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "insufficient_funds"
	case errors.Is(err, domain.ErrInsufficientQuantity):
		return http.StatusUnprocessableEntity, "insufficient_quantity"
	case errors.Is(err, domain.ErrNoSuchHolding):
		return http.StatusUnprocessableEntity, "no_such_holding"
	case errors.Is(err, domain.ErrLedgerConflict):
		return http.StatusConflict, "ledger_conflict"
	case errors.Is(err, domain.ErrHistoryWriteFailed):
		return http.StatusInternalServerError, "history_write_failed"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
