package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const outboxColumns = `id, order_id, topic_key, payload, created_at, scheduled_at, published_at, publish_attempts, error`

type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func (r *OutboxRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *OutboxRepository) Create(ctx context.Context, tx pgx.Tx, entity *OutboxMessageEntity) error {
	query := `INSERT INTO outbox_message (id, order_id, topic_key, payload, created_at, scheduled_at, publish_attempts)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := tx.Exec(ctx, query, entity.ID, entity.OrderID, entity.TopicKey, entity.Payload, entity.CreatedAt,
		entity.ScheduledAt, entity.PublishAttempts)
	return err
}

// GetUnpublished locks up to limit due messages. Rows held by a concurrent
// producer are skipped.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]*OutboxMessageEntity, error) {
	query := `SELECT ` + outboxColumns + ` FROM outbox_message
	          WHERE scheduled_at IS NOT NULL AND scheduled_at <= now()
	          ORDER BY scheduled_at
	          LIMIT $1
	          FOR UPDATE SKIP LOCKED`
	rows, err := tx.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []*OutboxMessageEntity
	for rows.Next() {
		entity, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func (r *OutboxRepository) Update(ctx context.Context, tx pgx.Tx, entity *OutboxMessageEntity) error {
	query := `UPDATE outbox_message
	          SET scheduled_at = $2, published_at = $3, publish_attempts = $4, error = $5
	          WHERE id = $1`
	_, err := tx.Exec(ctx, query, entity.ID, entity.ScheduledAt, entity.PublishedAt, entity.PublishAttempts, entity.Error)
	return err
}

func (r *OutboxRepository) SelectByID(ctx context.Context, id uuid.UUID) (*OutboxMessageEntity, error) {
	query := `SELECT ` + outboxColumns + ` FROM outbox_message WHERE id = $1`
	return scanOutbox(r.pool.QueryRow(ctx, query, id))
}

func (r *OutboxRepository) SelectByOrderID(ctx context.Context, orderID int64) ([]*OutboxMessageEntity, error) {
	query := `SELECT ` + outboxColumns + ` FROM outbox_message WHERE order_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []*OutboxMessageEntity
	for rows.Next() {
		entity, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func scanOutbox(row pgx.Row) (*OutboxMessageEntity, error) {
	var entity OutboxMessageEntity
	err := row.Scan(&entity.ID, &entity.OrderID, &entity.TopicKey, &entity.Payload, &entity.CreatedAt,
		&entity.ScheduledAt, &entity.PublishedAt, &entity.PublishAttempts, &entity.Error)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}
