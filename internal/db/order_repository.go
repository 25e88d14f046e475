package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, number, total, currency_code, currency_value, email, customer_id, customer_name, status, paid_at, created_at`

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) Create(ctx context.Context, entity *OrderEntity) (*OrderEntity, error) {
	query := `INSERT INTO orders (number, total, currency_code, currency_value, email, customer_id, customer_name, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query, entity.Number, entity.Total, entity.CurrencyCode, entity.CurrencyValue,
		entity.Email, entity.CustomerID, entity.CustomerName, entity.Status).Scan(&entity.ID, &entity.CreatedAt)
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*OrderEntity, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE number = $1`
	return scanOrder(r.pool.QueryRow(ctx, query, number))
}

// MarkPaid moves the order to paid. It reports false when the order was
// already paid and nothing changed.
func (r *OrderRepository) MarkPaid(ctx context.Context, tx pgx.Tx, id int64, paidAt time.Time) (bool, error) {
	query := `UPDATE orders SET status = 'paid', paid_at = $2 WHERE id = $1 AND status <> 'paid'`
	tag, err := tx.Exec(ctx, query, id, paidAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanOrder(row pgx.Row) (*OrderEntity, error) {
	var entity OrderEntity
	err := row.Scan(&entity.ID, &entity.Number, &entity.Total, &entity.CurrencyCode, &entity.CurrencyValue,
		&entity.Email, &entity.CustomerID, &entity.CustomerName, &entity.Status, &entity.PaidAt, &entity.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}
