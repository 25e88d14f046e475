package message

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const EventOrderPaid = "order.paid"

// OrderPaid is published once per order when it transitions to paid.
type OrderPaid struct {
	ID          uuid.UUID       `json:"id"`
	Event       string          `json:"event"`
	OrderID     int64           `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	Reference   string          `json:"reference"`
	ChargeID    string          `json:"chargeId"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PaidAt      time.Time       `json:"paidAt"`
}

// WebhookDelivery carries a raw Paystack webhook through Kafka in queue mode.
// Body is the exact request body; the signature is checked against it on
// consumption.
type WebhookDelivery struct {
	ID         uuid.UUID `json:"id"`
	Signature  string    `json:"signature"`
	Body       []byte    `json:"body"`
	ReceivedAt time.Time `json:"receivedAt"`
}
