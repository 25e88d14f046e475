package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const referencePrefix = "order"

// NewReference builds the transaction reference order_<number>_<unix seconds>.
func NewReference(orderNumber string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%d", referencePrefix, orderNumber, now.Unix())
}

// CheckOrderNumber rejects order numbers that would not survive the round
// trip through a reference.
func CheckOrderNumber(orderNumber string) error {
	if orderNumber == "" || strings.Contains(orderNumber, "_") {
		return errors.Wrapf(ErrInvalidReference, "order number %q cannot be carried in a reference", orderNumber)
	}
	return nil
}

// ParseReference returns the order number carried in the second
// underscore-delimited segment of reference.
func ParseReference(reference string) (string, error) {
	parts := strings.Split(reference, "_")
	if len(parts) < 2 || parts[1] == "" {
		return "", errors.Wrapf(ErrInvalidReference, "%q", reference)
	}
	return parts[1], nil
}
