package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"paystack-service/internal/payment"
)

type response struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, response{Status: true, Message: message, Data: data})
}

func respondError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, response{Status: false, Message: message})
}

// respondPaymentError maps a reconciliation error to a status code and a
// message safe to show the customer.
func respondPaymentError(c *gin.Context, err error) {
	kind := payment.Kind(err)
	respondError(c, statusForKind(kind), messageForKind(kind))
}

func statusForKind(kind string) int {
	switch kind {
	case "invalid_reference":
		return http.StatusBadRequest
	case "signature":
		return http.StatusUnauthorized
	case "not_found":
		return http.StatusNotFound
	case "already_processed":
		return http.StatusConflict
	case "amount_mismatch", "not_successful":
		return http.StatusUnprocessableEntity
	case "gateway":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageForKind(kind string) string {
	switch kind {
	case "invalid_reference":
		return "Invalid transaction reference"
	case "signature":
		return "Invalid signature"
	case "not_found":
		return "Order not found"
	case "already_processed":
		return "Order has already been paid"
	case "amount_mismatch":
		return "Payment amount does not match the order total"
	case "not_successful":
		return "Payment was not successful"
	case "gateway":
		return "Payment provider is unavailable, please try again"
	default:
		return "Payment could not be processed"
	}
}
