package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// GetOrCreate returns the user's cart, creating it when absent.
// The no-op update makes RETURNING yield the existing row on conflict.
func (r *cartRepository) GetOrCreate(ctx context.Context, tx pgx.Tx, userID int64) (*model.Cart, error) {
	query := `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, created_at
	`

	var cart model.Cart
	if err := tx.QueryRow(ctx, query, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get or create cart")
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}

	return &cart, nil
}

// ListItems retrieves the lines of a cart with their products.
func (r *cartRepository) ListItems(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ` + productColumnsP + `
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id
	`

	rows, err := r.pool.Query(ctx, query, cartID)
	if err != nil {
		r.logger.Error().Err(err).Int64("cart_id", cartID).Msg("failed to query cart items")
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	items := []model.CartItem{}
	for rows.Next() {
		var (
			item    model.CartItem
			product model.Product
		)
		dest := append([]any{&item.ID, &item.CartID, &item.ProductID, &item.Quantity}, productDest(&product)...)
		if err := rows.Scan(dest...); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart item row")
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		item.Product = &product
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart item rows")
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// AddItem adds quantity to the (cart, product) line, creating it when absent.
func (r *cartRepository) AddItem(ctx context.Context, tx pgx.Tx, cartID, productID int64, quantity int) (*model.CartItem, error) {
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, cart_id, product_id, quantity
	`

	item, err := scanCartItem(tx.QueryRow(ctx, query, cartID, productID, quantity))
	if err != nil {
		r.logger.Error().Err(err).
			Int64("cart_id", cartID).
			Int64("product_id", productID).
			Msg("failed to add cart item")
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	return item, nil
}

// EnsureItem returns the (cart, product) line, creating it with quantity 1 when absent.
func (r *cartRepository) EnsureItem(ctx context.Context, tx pgx.Tx, cartID, productID int64) (*model.CartItem, error) {
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, 1)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity
		RETURNING id, cart_id, product_id, quantity
	`

	item, err := scanCartItem(tx.QueryRow(ctx, query, cartID, productID))
	if err != nil {
		r.logger.Error().Err(err).
			Int64("cart_id", cartID).
			Int64("product_id", productID).
			Msg("failed to ensure cart item")
		return nil, fmt.Errorf("failed to ensure cart item: %w", err)
	}

	return item, nil
}

// UpdateItemQuantity sets the quantity of a line in the user's cart.
func (r *cartRepository) UpdateItemQuantity(ctx context.Context, userID, itemID int64, quantity int) (*model.CartItem, error) {
	query := `
		UPDATE cart_items ci
		SET quantity = $3
		FROM carts c
		WHERE ci.cart_id = c.id AND c.user_id = $1 AND ci.id = $2
		RETURNING ci.id, ci.cart_id, ci.product_id, ci.quantity
	`

	item, err := scanCartItem(r.pool.QueryRow(ctx, query, userID, itemID, quantity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("user_id", userID).Int64("item_id", itemID).Msg("cart item not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("item_id", itemID).Msg("failed to update cart item")
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	return item, nil
}

// DeleteItem removes a line from the user's cart.
func (r *cartRepository) DeleteItem(ctx context.Context, userID, itemID int64) (bool, error) {
	query := `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.cart_id = c.id AND c.user_id = $1 AND ci.id = $2
	`

	tag, err := r.pool.Exec(ctx, query, userID, itemID)
	if err != nil {
		r.logger.Error().Err(err).Int64("item_id", itemID).Msg("failed to delete cart item")
		return false, fmt.Errorf("failed to delete cart item: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func scanCartItem(row pgx.Row) (*model.CartItem, error) {
	var item model.CartItem
	if err := row.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity); err != nil {
		return nil, err
	}
	return &item, nil
}
