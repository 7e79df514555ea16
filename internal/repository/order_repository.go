package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

const orderColumns = `id, user_id, total_amount, status, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	if err := row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Items = []model.OrderItem{}
	return &o, nil
}

// GetOrCreatePending returns the user's Pending order, creating it when absent.
// The conflict target is the partial unique index on Pending orders.
func (r *orderRepository) GetOrCreatePending(ctx context.Context, tx pgx.Tx, userID int64) (*model.Order, error) {
	query := `
		INSERT INTO orders (user_id, status)
		VALUES ($1, 'Pending')
		ON CONFLICT (user_id) WHERE status = 'Pending' DO UPDATE SET status = orders.status
		RETURNING ` + orderColumns

	order, err := scanOrder(tx.QueryRow(ctx, query, userID))
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get or create pending order")
		return nil, fmt.Errorf("failed to get or create pending order: %w", err)
	}

	return order, nil
}

// UpsertItem writes the (order, product) line, overwriting quantity and price.
func (r *orderRepository) UpsertItem(ctx context.Context, tx pgx.Tx, item *model.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity, price = EXCLUDED.price
		RETURNING id
	`

	err := tx.QueryRow(ctx, query, item.OrderID, item.ProductID, item.Quantity, item.Price).Scan(&item.ID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("order_id", item.OrderID).
			Int64("product_id", item.ProductID).
			Msg("failed to upsert order item")
		return fmt.Errorf("failed to upsert order item: %w", err)
	}

	return nil
}

// RecalculateTotal sets the order total to the sum of its line prices.
func (r *orderRepository) RecalculateTotal(ctx context.Context, tx pgx.Tx, orderID int64) (decimal.Decimal, error) {
	query := `
		UPDATE orders
		SET total_amount = COALESCE((SELECT SUM(price) FROM order_items WHERE order_id = $1), 0),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING total_amount
	`

	var total decimal.Decimal
	if err := tx.QueryRow(ctx, query, orderID).Scan(&total); err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to recalculate order total")
		return decimal.Zero, fmt.Errorf("failed to recalculate order total: %w", err)
	}

	return total, nil
}

// ListByUser retrieves the user's orders with their items, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	index := map[int64]int{}
	var ids []int64
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		index[order.ID] = len(orders)
		ids = append(ids, order.ID)
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if len(ids) == 0 {
		return orders, nil
	}

	items, err := r.itemsForOrders(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}

	return orders, nil
}

// GetByIDForUser retrieves one of the user's orders with its items.
func (r *orderRepository) GetByIDForUser(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, orderID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("order_id", orderID).Int64("user_id", userID).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.itemsForOrders(ctx, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = append(order.Items, items...)

	return order, nil
}

// GetPendingByUser retrieves the user's Pending order.
func (r *orderRepository) GetPendingByUser(ctx context.Context, userID int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND status = 'Pending'`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to query pending order")
		return nil, fmt.Errorf("failed to query pending order: %w", err)
	}

	return order, nil
}

// GetByIDForUpdate retrieves an order inside tx holding a row lock.
func (r *orderRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, orderID int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	order, err := scanOrder(tx.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to lock order")
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	return order, nil
}

// UpdateStatus persists a new order status.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, orderID int64, status model.OrderStatus) error {
	tag, err := tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, orderID, status)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Str("status", string(status)).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	r.logger.Debug().Int64("order_id", orderID).Str("status", string(status)).Msg("order status updated")
	return nil
}

func (r *orderRepository) itemsForOrders(ctx context.Context, orderIDs []int64) ([]model.OrderItem, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, ` + productColumnsP + `
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.id
	`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var (
			item    model.OrderItem
			product model.Product
		)
		dest := append([]any{&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price}, productDest(&product)...)
		if err := rows.Scan(dest...); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.Product = &product
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}
