package service

import (
	"context"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// cartService implements CartService.
type cartService struct {
	tx       repository.Transactor
	users    repository.UserRepository
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	tx repository.Transactor,
	users repository.UserRepository,
	carts repository.CartRepository,
	products repository.ProductRepository,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		tx:       tx,
		users:    users,
		carts:    carts,
		products: products,
		logger:   logger.With().Str("service", "cart").Logger(),
	}
}

// GetCart returns the user's cart with its items, creating the cart when absent.
func (s *cartService) GetCart(ctx context.Context, userID int64) (*model.Cart, error) {
	var cart *model.Cart
	err := repository.RunInTx(ctx, s.tx, func(tx pgx.Tx) error {
		var err error
		cart, err = s.carts.GetOrCreate(ctx, tx, userID)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to load cart")
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	items, err := s.carts.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	cart.Items = items

	return cart, nil
}

// AddItem adds quantity of a product to the user's cart. An omitted quantity counts as one.
func (s *cartService) AddItem(ctx context.Context, userID int64, req *model.AddCartItemRequest) (*model.CartItem, error) {
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, model.ErrInvalidQuantity
	}

	var item *model.CartItem
	err := repository.RunInTx(ctx, s.tx, func(tx pgx.Tx) error {
		if err := s.users.LockForUpdate(ctx, tx, userID); err != nil {
			return err
		}

		product, err := s.products.GetByIDTx(ctx, tx, req.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return model.ErrProductNotFound
		}

		cart, err := s.carts.GetOrCreate(ctx, tx, userID)
		if err != nil {
			return err
		}

		item, err = s.carts.AddItem(ctx, tx, cart.ID, product.ID, quantity)
		if err != nil {
			return err
		}
		item.Product = product
		return nil
	})
	if err != nil {
		return nil, wrapDomain(err, "failed to add cart item")
	}

	s.logger.Info().
		Int64("user_id", userID).
		Int64("product_id", req.ProductID).
		Int("quantity", item.Quantity).
		Msg("cart item added")

	return item, nil
}

// UpdateItem sets the quantity of a line in the user's cart. Zero removes the line.
func (s *cartService) UpdateItem(ctx context.Context, userID, itemID int64, req *model.UpdateCartItemRequest) (*model.CartItem, error) {
	if req.Quantity < 0 {
		return nil, model.ErrInvalidQuantity
	}
	if req.Quantity == 0 {
		if err := s.RemoveItem(ctx, userID, itemID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	item, err := s.carts.UpdateItemQuantity(ctx, userID, itemID, req.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	if item == nil {
		return nil, model.ErrCartItemNotFound
	}

	return item, nil
}

// RemoveItem deletes a line from the user's cart.
func (s *cartService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	deleted, err := s.carts.DeleteItem(ctx, userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	if !deleted {
		return model.ErrCartItemNotFound
	}

	s.logger.Info().Int64("user_id", userID).Int64("item_id", itemID).Msg("cart item removed")
	return nil
}
