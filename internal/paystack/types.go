package paystack

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// StatusSuccess is the transaction status Paystack reports for a settled charge.
const StatusSuccess = "success"

// EventChargeSuccess is the webhook event emitted once a charge settles.
const EventChargeSuccess = "charge.success"

// Metadata is the custom data attached to a transaction at initialization.
type Metadata struct {
	OrderNumber  string `json:"order_number"`
	CustomerID   int64  `json:"customer_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
}

// UnmarshalJSON accepts the shapes Paystack echoes back: an object, an empty
// string or null. Numeric order numbers are kept as their decimal text.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		*m = Metadata{}
		return nil
	}

	var raw struct {
		OrderNumber  json.RawMessage `json:"order_number"`
		CustomerID   json.RawMessage `json:"customer_id"`
		CustomerName string          `json:"customer_name"`
	}
	if trimmed[0] == '"' {
		// metadata sent as a JSON encoded string
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return err
		}
		if inner == "" {
			*m = Metadata{}
			return nil
		}
		trimmed = []byte(inner)
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}

	*m = Metadata{
		OrderNumber:  scalarText(raw.OrderNumber),
		CustomerName: raw.CustomerName,
	}
	if id := scalarText(raw.CustomerID); id != "" {
		n, err := strconv.ParseInt(id, 10, 64)
		if err == nil {
			m.CustomerID = n
		}
	}
	return nil
}

func scalarText(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

type InitializeRequest struct {
	Amount      int64    `json:"amount"`
	Email       string   `json:"email"`
	Reference   string   `json:"reference"`
	Currency    string   `json:"currency,omitempty"`
	CallbackURL string   `json:"callback_url,omitempty"`
	Metadata    Metadata `json:"metadata"`
}

// Transaction is the checkout session created by Initialize.
type Transaction struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Charge is the transaction object returned by verify and carried by
// charge.* webhook events.
type Charge struct {
	ID              int64    `json:"id"`
	Status          string   `json:"status"`
	Reference       string   `json:"reference"`
	Amount          int64    `json:"amount"`
	Currency        string   `json:"currency"`
	GatewayResponse string   `json:"gateway_response"`
	PaidAt          string   `json:"paid_at"`
	Metadata        Metadata `json:"metadata"`
}

// ChargeID is the identifier recorded against a confirmed payment.
func (c Charge) ChargeID() string {
	if c.ID != 0 {
		return strconv.FormatInt(c.ID, 10)
	}
	return c.Reference
}

// Verification is the outcome of a verify call together with the raw
// data object for auditing.
type Verification struct {
	Charge
	Raw json.RawMessage
}

// Event is the webhook envelope.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}
