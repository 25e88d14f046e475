package payment

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"paystack-service/internal/paystack"
)

// Order is the storefront order as far as payment reconciliation needs it.
type Order struct {
	ID            int64
	Number        string
	Total         decimal.Decimal
	CurrencyCode  string
	CurrencyValue decimal.Decimal
	Email         string
	CustomerID    int64
	CustomerName  string
	Status        string
}

const OrderStatusPaid = "paid"

func (o *Order) Paid() bool {
	return o.Status == OrderStatusPaid
}

// Record is the per-order payment record.
type Record struct {
	OrderID    int64
	Reference  string
	ChargeID   string
	Amount     decimal.Decimal
	Paid       bool
	RawPayload json.RawMessage
}

// Channel identifies the entry point an event arrived through.
type Channel string

const (
	ChannelVerify   Channel = "verify"
	ChannelWebhook  Channel = "webhook"
	ChannelCallback Channel = "callback"
)

// Event is a provider notification normalised from any channel.
type Event struct {
	Channel Channel
	// OrderNumber is the order the entry point resolved.
	OrderNumber string
	// ProviderOrderNumber is the order number Paystack echoed back in the
	// transaction metadata, empty when absent.
	ProviderOrderNumber string
	Reference           string
	Status              string
	Amount              int64
	ChargeID            string
	Raw                 json.RawMessage
}

type State string

const (
	StateInitiated State = "INITIATED"
	StateConfirmed State = "CONFIRMED"
	StateRejected  State = "REJECTED"
	// StateIgnored is used for webhook events that carry nothing to reconcile.
	StateIgnored State = "IGNORED"
)

type Result struct {
	State            State
	OrderNumber      string
	Reference        string
	AlreadyProcessed bool
}

// Checkout is what the storefront needs to send the customer to Paystack.
type Checkout struct {
	OrderNumber      string `json:"-"`
	Reference        string `json:"reference"`
	AccessCode       string `json:"access_code"`
	AuthorizationURL string `json:"authorization_url"`
}

// MobilePayment is the parameter set app clients use to open the Paystack SDK.
type MobilePayment struct {
	IsAllowDelay     bool   `json:"isAllowDelay"`
	MerchantName     string `json:"merchantName"`
	AccessCode       string `json:"accessCode"`
	AuthorizationURL string `json:"authorizationUrl"`
	Reference        string `json:"reference"`
	PublicKey        string `json:"publicKey"`
}

type Orders interface {
	FindOrder(ctx context.Context, number string) (*Order, error)
}

type Records interface {
	FindRecord(ctx context.Context, orderID int64) (*Record, error)
	UpsertRecord(ctx context.Context, rec Record) error
}

// Ledger applies the paid transition. The record upsert and the order status
// change take effect together or not at all; ErrAlreadyProcessed is returned
// when the record was already paid.
type Ledger interface {
	MarkPaid(ctx context.Context, order *Order, rec Record) error
}

type Store interface {
	Orders
	Records
	Ledger
}

type Gateway interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.Transaction, error)
	Verify(ctx context.Context, reference string) (*paystack.Verification, error)
}
