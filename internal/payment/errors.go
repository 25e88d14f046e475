package payment

import (
	"github.com/pkg/errors"

	"paystack-service/internal/paystack"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrInvalidReference = errors.New("invalid transaction reference")
	ErrGateway          = paystack.ErrGateway
	ErrSignature        = errors.New("invalid webhook signature")
	ErrAmountMismatch   = errors.New("payment amount mismatch")
	ErrNotSuccessful    = errors.New("payment not successful")

	// ErrAlreadyProcessed is informational: the order is already paid and the
	// confirmation was a no-op.
	ErrAlreadyProcessed = errors.New("payment already processed")
)

// Kind names the error class of err for logs, metrics and client messages.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, ErrGateway):
		return "gateway"
	case errors.Is(err, ErrSignature):
		return "signature"
	case errors.Is(err, ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, ErrNotSuccessful):
		return "not_successful"
	case errors.Is(err, ErrAlreadyProcessed):
		return "already_processed"
	default:
		return "internal"
	}
}
