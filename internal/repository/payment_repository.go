package repository

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// paymentRepository implements the PaymentRepository interface using PostgreSQL.
type paymentRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(pool *pgxpool.Pool, logger zerolog.Logger) PaymentRepository {
	return &paymentRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payment").Logger(),
	}
}

// Create records a payment. The processor returns the same intent for a
// repeated idempotency key, so a duplicate transaction ID yields the stored row.
func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (order_id, transaction_id, payment_status, method, amount, currency)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (transaction_id) DO UPDATE SET updated_at = NOW()
		RETURNING id, payment_status, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		payment.OrderID,
		payment.TransactionID,
		payment.Status,
		payment.Method,
		payment.Amount,
		payment.Currency,
	).Scan(&payment.ID, &payment.Status, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).
			Int64("order_id", payment.OrderID).
			Str("transaction_id", payment.TransactionID).
			Msg("failed to record payment")
		return fmt.Errorf("failed to record payment: %w", err)
	}

	return nil
}

// UpdateStatusByTransaction sets the status of the payment with the given transaction ID.
func (r *paymentRepository) UpdateStatusByTransaction(ctx context.Context, tx pgx.Tx, transactionID string, status model.PaymentStatus) (bool, error) {
	query := `
		UPDATE payments
		SET payment_status = $2, updated_at = NOW()
		WHERE transaction_id = $1
	`

	tag, err := tx.Exec(ctx, query, transactionID, status)
	if err != nil {
		r.logger.Error().Err(err).Str("transaction_id", transactionID).Msg("failed to update payment status")
		return false, fmt.Errorf("failed to update payment status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkEventProcessed records a webhook event ID.
func (r *paymentRepository) MarkEventProcessed(ctx context.Context, tx pgx.Tx, eventID, eventType string) (bool, error) {
	query := `
		INSERT INTO webhook_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, query, eventID, eventType)
	if err != nil {
		r.logger.Error().Err(err).Str("event_id", eventID).Msg("failed to record webhook event")
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
