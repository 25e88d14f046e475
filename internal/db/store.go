package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"paystack-service/internal/message"
	"paystack-service/internal/payment"
)

// Store backs the reconciler with Postgres.
type Store struct {
	pool     *pgxpool.Pool
	orders   *OrderRepository
	payments *PaymentRepository
	outbox   *OutboxRepository
	now      func() time.Time
}

var _ payment.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:     pool,
		orders:   NewOrderRepository(pool),
		payments: NewPaymentRepository(pool),
		outbox:   NewOutboxRepository(pool),
		now:      time.Now,
	}
}

func (s *Store) FindOrder(ctx context.Context, number string) (*payment.Order, error) {
	entity, err := s.orders.GetByNumber(ctx, number)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(payment.ErrNotFound, "order %s", number)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", number)
	}

	return &payment.Order{
		ID:            entity.ID,
		Number:        entity.Number,
		Total:         entity.Total,
		CurrencyCode:  entity.CurrencyCode,
		CurrencyValue: entity.CurrencyValue,
		Email:         entity.Email,
		CustomerID:    entity.CustomerID,
		CustomerName:  entity.CustomerName,
		Status:        entity.Status,
	}, nil
}

func (s *Store) FindRecord(ctx context.Context, orderID int64) (*payment.Record, error) {
	entity, err := s.payments.GetByOrderID(ctx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(payment.ErrNotFound, "payment for order %d", orderID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get payment for order %d", orderID)
	}

	rec := &payment.Record{
		OrderID:    entity.OrderID,
		Reference:  entity.Reference,
		Amount:     entity.Amount,
		Paid:       entity.Paid,
		RawPayload: entity.RawPayload,
	}
	if entity.ChargeID != nil {
		rec.ChargeID = *entity.ChargeID
	}
	return rec, nil
}

func (s *Store) UpsertRecord(ctx context.Context, rec payment.Record) error {
	err := s.payments.Upsert(ctx, &PaymentEntity{
		OrderID:   rec.OrderID,
		Reference: rec.Reference,
		Amount:    rec.Amount,
	})
	return errors.Wrapf(err, "upsert payment for order %d", rec.OrderID)
}

// MarkPaid confirms the payment, moves the order to paid and queues the
// order.paid event in one transaction.
func (s *Store) MarkPaid(ctx context.Context, order *payment.Order, rec payment.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback(ctx)

	entity := &PaymentEntity{
		OrderID:    order.ID,
		Reference:  rec.Reference,
		Amount:     rec.Amount,
		Paid:       true,
		RawPayload: rec.RawPayload,
	}
	if rec.ChargeID != "" {
		entity.ChargeID = &rec.ChargeID
	}

	applied, err := s.payments.UpsertPaid(ctx, tx, entity)
	if err != nil {
		return errors.Wrapf(err, "confirm payment for order %s", order.Number)
	}
	if !applied {
		return errors.Wrapf(payment.ErrAlreadyProcessed, "order %s", order.Number)
	}

	paidAt := s.now().UTC()
	transitioned, err := s.orders.MarkPaid(ctx, tx, order.ID, paidAt)
	if err != nil {
		return errors.Wrapf(err, "mark order %s paid", order.Number)
	}

	if transitioned {
		if err := s.queueOrderPaid(ctx, tx, order, rec, paidAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

func (s *Store) queueOrderPaid(ctx context.Context, tx pgx.Tx, order *payment.Order, rec payment.Record, paidAt time.Time) error {
	event := message.OrderPaid{
		ID:          uuid.New(),
		Event:       message.EventOrderPaid,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Reference:   rec.Reference,
		ChargeID:    rec.ChargeID,
		Amount:      order.Total,
		Currency:    order.CurrencyCode,
		PaidAt:      paidAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order paid event")
	}

	err = s.outbox.Create(ctx, tx, &OutboxMessageEntity{
		ID:          event.ID,
		OrderID:     order.ID,
		TopicKey:    order.Number,
		Payload:     string(payload),
		CreatedAt:   paidAt,
		ScheduledAt: &paidAt,
	})
	return errors.Wrapf(err, "queue order paid event for %s", order.Number)
}
