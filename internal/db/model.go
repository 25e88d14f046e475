package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderEntity struct {
	ID            int64
	Number        string
	Total         decimal.Decimal
	CurrencyCode  string
	CurrencyValue decimal.Decimal
	Email         string
	CustomerID    int64
	CustomerName  string
	Status        string
	PaidAt        *time.Time
	CreatedAt     time.Time
}

type PaymentEntity struct {
	ID         int64
	OrderID    int64
	Reference  string
	ChargeID   *string
	Amount     decimal.Decimal
	Paid       bool
	RawPayload []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OutboxMessageEntity struct {
	ID              uuid.UUID
	OrderID         int64
	TopicKey        string
	Payload         string
	CreatedAt       time.Time
	ScheduledAt     *time.Time
	PublishedAt     *time.Time
	PublishAttempts int
	Error           *string
}
