package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID int64) (*PaymentEntity, error) {
	query := `SELECT id, order_id, reference, charge_id, amount, paid, raw_payload, created_at, updated_at
	          FROM payments WHERE order_id = $1`
	row := r.pool.QueryRow(ctx, query, orderID)

	var entity PaymentEntity
	err := row.Scan(&entity.ID, &entity.OrderID, &entity.Reference, &entity.ChargeID, &entity.Amount, &entity.Paid,
		&entity.RawPayload, &entity.CreatedAt, &entity.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// Upsert records the reference of a fresh checkout. A paid row is left as is.
func (r *PaymentRepository) Upsert(ctx context.Context, entity *PaymentEntity) error {
	query := `INSERT INTO payments (order_id, reference, amount, paid)
	          VALUES ($1, $2, $3, false)
	          ON CONFLICT (order_id) DO UPDATE
	          SET reference = EXCLUDED.reference, amount = EXCLUDED.amount, updated_at = now()
	          WHERE payments.paid = false`
	_, err := r.pool.Exec(ctx, query, entity.OrderID, entity.Reference, entity.Amount)
	return err
}

// UpsertPaid writes the confirmed payment inside tx. It reports false when
// the row was already paid, which means another writer confirmed first.
func (r *PaymentRepository) UpsertPaid(ctx context.Context, tx pgx.Tx, entity *PaymentEntity) (bool, error) {
	query := `INSERT INTO payments (order_id, reference, charge_id, amount, paid, raw_payload)
	          VALUES ($1, $2, $3, $4, true, $5)
	          ON CONFLICT (order_id) DO UPDATE
	          SET reference = EXCLUDED.reference, charge_id = EXCLUDED.charge_id, amount = EXCLUDED.amount,
	              paid = true, raw_payload = EXCLUDED.raw_payload, updated_at = now()
	          WHERE payments.paid = false`
	tag, err := tx.Exec(ctx, query, entity.OrderID, entity.Reference, entity.ChargeID, entity.Amount, entity.RawPayload)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
