// Command paystack-mock stands in for api.paystack.co during local runs.
// Point paystack.base-url at it; opening an authorization URL completes the
// payment, sends a signed charge.success webhook and redirects to the
// callback URL.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"paystack-service/internal/paystack"
)

const contentType = "application/json"

type envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type transaction struct {
	ID          int64             `json:"id"`
	Status      string            `json:"status"`
	Reference   string            `json:"reference"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	PaidAt      string            `json:"paid_at,omitempty"`
	Metadata    paystack.Metadata `json:"metadata"`
	callbackURL string
}

type mock struct {
	mu           sync.Mutex
	transactions map[string]*transaction
	nextID       int64
	baseURL      string
	secretKey    string
	webhookURL   string
	client       *http.Client
}

func main() {
	_ = godotenv.Load()

	m := &mock{
		transactions: make(map[string]*transaction),
		nextID:       4_000_000_000,
		baseURL:      getenv("MOCK_BASE_URL", "http://localhost:8085"),
		secretKey:    os.Getenv("PAYSTACK_SECRET_KEY"),
		webhookURL:   getenv("MOCK_WEBHOOK_URL", "http://localhost:8080/webhook/paystack"),
		client:       &http.Client{Timeout: 10 * time.Second},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /transaction/initialize", m.initialize)
	mux.HandleFunc("GET /transaction/verify/{reference}", m.verify)
	mux.HandleFunc("GET /checkout/{reference}", m.checkout)

	addr := getenv("MOCK_ADDR", ":8085")
	log.Printf("Paystack mock listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, loggingMiddleware(countMiddleware(authMiddleware(m.secretKey, mux)))))
}

func (m *mock) initialize(w http.ResponseWriter, r *http.Request) {
	var req paystack.InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reference == "" || req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, envelope{Status: false, Message: "Invalid request"})
		return
	}

	m.mu.Lock()
	if _, ok := m.transactions[req.Reference]; ok {
		m.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, envelope{Status: false, Message: "Duplicate Transaction Reference"})
		return
	}
	m.nextID++
	m.transactions[req.Reference] = &transaction{
		ID:          m.nextID,
		Status:      "abandoned",
		Reference:   req.Reference,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Metadata:    req.Metadata,
		callbackURL: req.CallbackURL,
	}
	m.mu.Unlock()

	accessCode := uuid.NewString()
	writeJSON(w, http.StatusOK, envelope{
		Status:  true,
		Message: "Authorization URL created",
		Data: paystack.Transaction{
			AuthorizationURL: m.baseURL + "/checkout/" + url.PathEscape(req.Reference),
			AccessCode:       accessCode,
			Reference:        req.Reference,
		},
	})
}

func (m *mock) verify(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	trx, ok := m.transactions[r.PathValue("reference")]
	var snapshot transaction
	if ok {
		snapshot = *trx
	}
	m.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusBadRequest, envelope{Status: false, Message: "Transaction reference not found"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: true, Message: "Verification successful", Data: snapshot})
}

// checkout completes the payment. ?outcome=failed leaves it unpaid and
// ?outcome=underpay charges one kobo less than requested.
func (m *mock) checkout(w http.ResponseWriter, r *http.Request) {
	reference := r.PathValue("reference")
	outcome := r.URL.Query().Get("outcome")

	m.mu.Lock()
	trx, ok := m.transactions[reference]
	if ok {
		switch outcome {
		case "failed":
			trx.Status = "failed"
		case "underpay":
			trx.Status = paystack.StatusSuccess
			trx.Amount--
		default:
			trx.Status = paystack.StatusSuccess
		}
		trx.PaidAt = time.Now().UTC().Format(time.RFC3339)
	}
	var snapshot transaction
	if ok {
		snapshot = *trx
	}
	m.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if snapshot.Status == paystack.StatusSuccess {
		if err := m.sendWebhook(snapshot); err != nil {
			log.Printf("Error sending webhook: %v", err)
		}
	}

	if snapshot.callbackURL == "" {
		writeJSON(w, http.StatusOK, envelope{Status: true, Message: "Payment " + snapshot.Status})
		return
	}
	target := fmt.Sprintf("%s?reference=%s&trxref=%s", snapshot.callbackURL,
		url.QueryEscape(reference), url.QueryEscape(reference))
	http.Redirect(w, r, target, http.StatusFound)
}

func (m *mock) sendWebhook(trx transaction) error {
	body, err := json.Marshal(map[string]any{"event": paystack.EventChargeSuccess, "data": trx})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, m.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(paystack.SignatureHeader, paystack.Sign(body, m.secretKey))

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	log.Printf("Webhook for %s answered %s", trx.Reference, resp.Status)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
