package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"

	"paystack-service/internal/config"
	"paystack-service/internal/logcontext"
	"paystack-service/internal/paystack"
)

// Reconciler turns Paystack notifications from the verify API, the webhook
// and the browser callback into a single exactly-once paid transition.
type Reconciler struct {
	store         Store
	gateway       Gateway
	signingSecret string
	callbackURL   string
	publicKey     string
	merchantName  string
	logger        *slog.Logger
	now           func() time.Time
}

type Option func(*Reconciler)

// WithClock replaces the clock used to stamp references.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func NewReconciler(store Store, gateway Gateway, cfg config.Paystack, logger *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:         store,
		gateway:       gateway,
		signingSecret: cfg.SigningSecret(),
		callbackURL:   cfg.CallbackURL,
		publicKey:     cfg.PublicKey,
		merchantName:  cfg.MerchantName,
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize creates a Paystack checkout for the order and records the
// reference against it. A non-zero customerID restricts the lookup to that
// customer's orders.
func (r *Reconciler) Initialize(ctx context.Context, orderNumber string, customerID int64) (*Checkout, error) {
	ctx = logcontext.AppendCtx(ctx, slog.String("orderNumber", orderNumber))

	if err := CheckOrderNumber(orderNumber); err != nil {
		return nil, err
	}

	order, err := r.store.FindOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if customerID != 0 && order.CustomerID != customerID {
		return nil, errors.Wrapf(ErrNotFound, "order %s does not belong to customer %d", orderNumber, customerID)
	}
	if order.Paid() {
		return nil, errors.Wrapf(ErrAlreadyProcessed, "order %s", orderNumber)
	}

	rec, err := r.store.FindRecord(ctx, order.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err == nil && rec.Paid {
		return nil, errors.Wrapf(ErrAlreadyProcessed, "order %s", orderNumber)
	}

	r.logger.InfoContext(ctx, "Initializing paystack payment")

	trx, err := r.gateway.Initialize(ctx, paystack.InitializeRequest{
		Amount:      MinorUnits(order.Total, order.CurrencyValue),
		Email:       order.Email,
		Reference:   NewReference(order.Number, r.now()),
		Currency:    order.CurrencyCode,
		CallbackURL: r.callbackURL,
		Metadata: paystack.Metadata{
			OrderNumber:  order.Number,
			CustomerID:   order.CustomerID,
			CustomerName: order.CustomerName,
		},
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "Paystack initialization failed", "error", err.Error())
		return nil, err
	}

	if err := r.store.UpsertRecord(ctx, Record{
		OrderID:   order.ID,
		Reference: trx.Reference,
		Amount:    order.Total,
		Paid:      false,
	}); err != nil {
		r.logger.ErrorContext(ctx, "Error recording payment reference", "reference", trx.Reference, "error", err.Error())
		return nil, err
	}

	r.logger.InfoContext(ctx, "Paystack initialization successful", "reference", trx.Reference)

	return &Checkout{
		OrderNumber:      order.Number,
		Reference:        trx.Reference,
		AccessCode:       trx.AccessCode,
		AuthorizationURL: trx.AuthorizationURL,
	}, nil
}

// MobilePaymentData initializes a transaction and returns what the app
// payment sheet needs.
func (r *Reconciler) MobilePaymentData(ctx context.Context, orderNumber string, customerID int64) (*MobilePayment, error) {
	checkout, err := r.Initialize(ctx, orderNumber, customerID)
	if err != nil {
		return nil, err
	}
	return &MobilePayment{
		IsAllowDelay:     true,
		MerchantName:     r.merchantName,
		AccessCode:       checkout.AccessCode,
		AuthorizationURL: checkout.AuthorizationURL,
		Reference:        checkout.Reference,
		PublicKey:        r.publicKey,
	}, nil
}

// Verify answers a client asking whether its payment went through.
func (r *Reconciler) Verify(ctx context.Context, reference, orderNumber string) (Result, error) {
	ctx = logcontext.AppendCtx(ctx, slog.String("channel", string(ChannelVerify)))
	ctx = logcontext.AppendCtx(ctx, slog.String("reference", reference))

	if reference == "" || orderNumber == "" {
		return r.reject(ctx, ChannelVerify, orderNumber, reference,
			errors.Wrap(ErrInvalidReference, "reference and order number are required"))
	}

	parsed, err := ParseReference(reference)
	if err != nil {
		return r.reject(ctx, ChannelVerify, orderNumber, reference, err)
	}
	if parsed != orderNumber {
		return r.reject(ctx, ChannelVerify, orderNumber, reference,
			errors.Wrapf(ErrNotFound, "reference does not belong to order %s", orderNumber))
	}

	order, err := r.store.FindOrder(ctx, orderNumber)
	if err != nil {
		return r.reject(ctx, ChannelVerify, orderNumber, reference, err)
	}

	event, err := r.verifiedEvent(ctx, ChannelVerify, order, reference)
	if err != nil {
		return r.reject(ctx, ChannelVerify, order.Number, reference, err)
	}

	return r.confirm(ctx, order, event)
}

// HandleWebhook processes a Paystack push notification. The caller
// acknowledges the delivery whatever the outcome.
func (r *Reconciler) HandleWebhook(ctx context.Context, body []byte, signature string) (Result, error) {
	ctx = logcontext.AppendCtx(ctx, slog.String("channel", string(ChannelWebhook)))

	if !paystack.VerifySignature(body, signature, r.signingSecret) {
		return r.reject(ctx, ChannelWebhook, "", "", ErrSignature)
	}

	var envelope paystack.Event
	if err := json.Unmarshal(body, &envelope); err != nil {
		return r.reject(ctx, ChannelWebhook, "", "", errors.Wrap(err, "decode webhook envelope"))
	}

	if envelope.Event != paystack.EventChargeSuccess {
		r.logger.InfoContext(ctx, "Ignoring paystack event", "event", envelope.Event)
		countConfirm(ChannelWebhook, "ignored")
		return Result{State: StateIgnored}, nil
	}

	var charge paystack.Charge
	if err := json.Unmarshal(envelope.Data, &charge); err != nil {
		return r.reject(ctx, ChannelWebhook, "", "", errors.Wrap(err, "decode charge"))
	}
	ctx = logcontext.AppendCtx(ctx, slog.String("reference", charge.Reference))

	orderNumber := charge.Metadata.OrderNumber
	if orderNumber == "" {
		return r.reject(ctx, ChannelWebhook, "", charge.Reference,
			errors.Wrap(ErrNotFound, "charge without order number in metadata"))
	}

	order, err := r.store.FindOrder(ctx, orderNumber)
	if err != nil {
		return r.reject(ctx, ChannelWebhook, orderNumber, charge.Reference, err)
	}

	return r.confirm(ctx, order, Event{
		Channel:             ChannelWebhook,
		OrderNumber:         order.Number,
		ProviderOrderNumber: orderNumber,
		Reference:           charge.Reference,
		Status:              charge.Status,
		Amount:              charge.Amount,
		ChargeID:            charge.ChargeID(),
		Raw:                 envelope.Data,
	})
}

// HandleCallback processes the browser redirect back from checkout. Only the
// reference is taken from the request; status and amount come from Paystack.
func (r *Reconciler) HandleCallback(ctx context.Context, reference string) (Result, error) {
	ctx = logcontext.AppendCtx(ctx, slog.String("channel", string(ChannelCallback)))
	ctx = logcontext.AppendCtx(ctx, slog.String("reference", reference))

	orderNumber, err := ParseReference(reference)
	if err != nil {
		return r.reject(ctx, ChannelCallback, "", reference, err)
	}

	order, err := r.store.FindOrder(ctx, orderNumber)
	if err != nil {
		return r.reject(ctx, ChannelCallback, orderNumber, reference, err)
	}

	event, err := r.verifiedEvent(ctx, ChannelCallback, order, reference)
	if err != nil {
		return r.reject(ctx, ChannelCallback, order.Number, reference, err)
	}

	return r.confirm(ctx, order, event)
}

func (r *Reconciler) verifiedEvent(ctx context.Context, channel Channel, order *Order, reference string) (Event, error) {
	v, err := r.gateway.Verify(ctx, reference)
	if err != nil {
		return Event{}, err
	}

	ref := v.Reference
	if ref == "" {
		ref = reference
	}

	return Event{
		Channel:             channel,
		OrderNumber:         order.Number,
		ProviderOrderNumber: v.Metadata.OrderNumber,
		Reference:           ref,
		Status:              v.Status,
		Amount:              v.Amount,
		ChargeID:            v.ChargeID(),
		Raw:                 v.Raw,
	}, nil
}

func (r *Reconciler) confirm(ctx context.Context, order *Order, event Event) (Result, error) {
	ctx = logcontext.AppendCtx(ctx, slog.String("orderNumber", order.Number))

	if event.ProviderOrderNumber != "" && event.ProviderOrderNumber != order.Number {
		return r.reject(ctx, event.Channel, order.Number, event.Reference,
			errors.Wrapf(ErrNotFound, "transaction belongs to order %s", event.ProviderOrderNumber))
	}

	if event.Status != paystack.StatusSuccess {
		return r.reject(ctx, event.Channel, order.Number, event.Reference,
			errors.Wrapf(ErrNotSuccessful, "status %q", event.Status))
	}

	expected := MinorUnits(order.Total, order.CurrencyValue)
	if !Reconcile(expected, event.Amount) {
		r.logger.WarnContext(ctx, "Paystack amount mismatch",
			"orderNumber", order.Number,
			"reference", event.Reference,
			"expected", expected,
			"actual", event.Amount,
		)
		return r.reject(ctx, event.Channel, order.Number, event.Reference,
			errors.Wrapf(ErrAmountMismatch, "expected %d, got %d", expected, event.Amount))
	}

	rec, err := r.store.FindRecord(ctx, order.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return r.reject(ctx, event.Channel, order.Number, event.Reference, err)
	}
	if err == nil && rec.Paid {
		return r.alreadyProcessed(ctx, event, order)
	}

	err = r.store.MarkPaid(ctx, order, Record{
		OrderID:    order.ID,
		Reference:  event.Reference,
		ChargeID:   event.ChargeID,
		Amount:     order.Total,
		Paid:       true,
		RawPayload: event.Raw,
	})
	if errors.Is(err, ErrAlreadyProcessed) {
		return r.alreadyProcessed(ctx, event, order)
	}
	if err != nil {
		return r.reject(ctx, event.Channel, order.Number, event.Reference, err)
	}

	r.logger.InfoContext(ctx, "Order paid via paystack", "chargeId", event.ChargeID, "amount", event.Amount)
	countConfirm(event.Channel, "confirmed")

	return Result{State: StateConfirmed, OrderNumber: order.Number, Reference: event.Reference}, nil
}

func (r *Reconciler) alreadyProcessed(ctx context.Context, event Event, order *Order) (Result, error) {
	r.logger.InfoContext(ctx, "Payment already processed, skipping")
	countConfirm(event.Channel, "already_processed")

	return Result{
		State:            StateConfirmed,
		OrderNumber:      order.Number,
		Reference:        event.Reference,
		AlreadyProcessed: true,
	}, nil
}

func (r *Reconciler) reject(ctx context.Context, channel Channel, orderNumber, reference string, err error) (Result, error) {
	kind := Kind(err)
	level := slog.LevelWarn
	if kind == "internal" || kind == "gateway" {
		level = slog.LevelError
	}
	r.logger.Log(ctx, level, "Payment rejected",
		"channel", channel,
		"kind", kind,
		"orderNumber", orderNumber,
		"reference", reference,
		"error", err.Error(),
	)
	countConfirm(channel, kind)

	return Result{State: StateRejected, OrderNumber: orderNumber, Reference: reference}, err
}

func countConfirm(channel Channel, result string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`paystack_confirm_total{channel=%q,result=%q}`, channel, result)).Inc()
}
