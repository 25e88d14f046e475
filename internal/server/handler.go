package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"paystack-service/internal/config"
	"paystack-service/internal/payment"
	"paystack-service/internal/paystack"
)

const (
	customerIDHeader = "X-Customer-ID"
	maxWebhookBody   = 1 << 20
)

type Service interface {
	Initialize(ctx context.Context, orderNumber string, customerID int64) (*payment.Checkout, error)
	MobilePaymentData(ctx context.Context, orderNumber string, customerID int64) (*payment.MobilePayment, error)
	Verify(ctx context.Context, reference, orderNumber string) (payment.Result, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (payment.Result, error)
	HandleCallback(ctx context.Context, reference string) (payment.Result, error)
}

// Publisher queues a webhook delivery for asynchronous processing.
type Publisher interface {
	Publish(ctx context.Context, body []byte, signature string) error
}

type Handler struct {
	service    Service
	publisher  Publisher
	storefront config.Storefront
	logger     *slog.Logger
}

// NewHandler builds the HTTP handlers. A nil publisher processes webhooks
// inline.
func NewHandler(service Service, publisher Publisher, storefront config.Storefront, logger *slog.Logger) *Handler {
	return &Handler{
		service:    service,
		publisher:  publisher,
		storefront: storefront,
		logger:     logger,
	}
}

type orderRequest struct {
	OrderNumber string `json:"order_number" binding:"required"`
}

type verifyRequest struct {
	Reference   string `json:"reference" binding:"required"`
	OrderNumber string `json:"order_number" binding:"required"`
}

type verifyData struct {
	OrderNumber      string `json:"order_number"`
	AlreadyProcessed bool   `json:"already_processed"`
}

func (h *Handler) Initialize(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "order_number is required")
		return
	}
	customerID, ok := customerIDFrom(c)
	if !ok {
		return
	}

	checkout, err := h.service.Initialize(c.Request.Context(), req.OrderNumber, customerID)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	respondOK(c, "Authorization URL created", checkout)
}

func (h *Handler) MobilePayment(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "order_number is required")
		return
	}
	customerID, ok := customerIDFrom(c)
	if !ok {
		return
	}

	data, err := h.service.MobilePaymentData(c.Request.Context(), req.OrderNumber, customerID)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	respondOK(c, "Payment data created", data)
}

func (h *Handler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "reference and order_number are required")
		return
	}

	result, err := h.service.Verify(c.Request.Context(), req.Reference, req.OrderNumber)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	respondOK(c, "Payment verified", verifyData{
		OrderNumber:      result.OrderNumber,
		AlreadyProcessed: result.AlreadyProcessed,
	})
}

// Webhook always acknowledges. Paystack keeps redelivering anything else,
// and every outcome is already logged by the reconciler.
func (h *Handler) Webhook(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.WarnContext(ctx, "Error reading webhook body", "error", err)
		respondOK(c, "Event received", nil)
		return
	}
	signature := c.GetHeader(paystack.SignatureHeader)

	if h.publisher != nil {
		err := h.publisher.Publish(ctx, body, signature)
		if err == nil {
			respondOK(c, "Event received", nil)
			return
		}
		h.logger.WarnContext(ctx, "Error queueing webhook, processing inline", "error", err)
	}

	_, _ = h.service.HandleWebhook(ctx, body, signature)
	respondOK(c, "Event received", nil)
}

func (h *Handler) Callback(c *gin.Context) {
	reference := firstNonEmpty(
		c.Query("reference"), c.Query("trxref"),
		c.PostForm("reference"), c.PostForm("trxref"),
	)

	result, err := h.service.HandleCallback(c.Request.Context(), reference)
	if err != nil {
		c.Redirect(http.StatusFound, h.redirectURL(h.storefront.FailPath, result.OrderNumber, messageForKind(payment.Kind(err))))
		return
	}
	c.Redirect(http.StatusFound, h.redirectURL(h.storefront.SuccessPath, result.OrderNumber, ""))
}

func (h *Handler) redirectURL(path, orderNumber, errMsg string) string {
	query := url.Values{}
	if orderNumber != "" {
		query.Set("order_number", orderNumber)
	}
	if errMsg != "" {
		query.Set("error", errMsg)
	}

	target := strings.TrimRight(h.storefront.BaseURL, "/") + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

func customerIDFrom(c *gin.Context) (int64, bool) {
	raw := c.GetHeader(customerIDHeader)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid customer id")
		return 0, false
	}
	return id, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
