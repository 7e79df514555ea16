package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// orderService implements OrderService.
type orderService struct {
	tx          repository.Transactor
	userRepo    repository.UserRepository
	cartRepo    repository.CartRepository
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		tx:          tx,
		userRepo:    userRepo,
		cartRepo:    cartRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// AddOrderItem snapshots the user's cart line for a product into their Pending order.
// The whole sequence runs in one transaction holding the user's row lock, so
// concurrent calls for the same user are serialised and the order total always
// equals the sum of its line prices.
func (s *orderService) AddOrderItem(ctx context.Context, userID int64, req *model.AddOrderItemRequest) (*model.OrderItem, error) {
	ctx, span := tracer.Start(ctx, "OrderService.AddOrderItem")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("product_id", req.ProductID),
	)

	var (
		item  *model.OrderItem
		total decimal.Decimal
	)

	err := repository.RunInTx(ctx, s.tx, func(tx pgx.Tx) error {
		if err := s.userRepo.LockForUpdate(ctx, tx, userID); err != nil {
			return err
		}

		cart, err := s.cartRepo.GetOrCreate(ctx, tx, userID)
		if err != nil {
			return err
		}

		order, err := s.orderRepo.GetOrCreatePending(ctx, tx, userID)
		if err != nil {
			return err
		}

		product, err := s.productRepo.GetByIDTx(ctx, tx, req.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return model.ErrProductNotFound
		}

		cartItem, err := s.cartRepo.EnsureItem(ctx, tx, cart.ID, product.ID)
		if err != nil {
			return err
		}

		item = &model.OrderItem{
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  cartItem.Quantity,
			Price:     product.Price.Mul(decimal.NewFromInt(int64(cartItem.Quantity))),
		}
		if err := s.orderRepo.UpsertItem(ctx, tx, item); err != nil {
			return err
		}
		item.Product = product

		total, err = s.orderRepo.RecalculateTotal(ctx, tx, order.ID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "add order item failed")
		var domainErr *model.DomainError
		if !errors.As(err, &domainErr) {
			s.logger.Error().Err(err).
				Int64("user_id", userID).
				Int64("product_id", req.ProductID).
				Msg("failed to add order item")
		}
		return nil, wrapDomain(err, "failed to add order item")
	}

	span.SetAttributes(attribute.Int64("order_id", item.OrderID))

	s.logger.Info().
		Int64("user_id", userID).
		Int64("order_id", item.OrderID).
		Int64("product_id", item.ProductID).
		Int("quantity", item.Quantity).
		Str("total", total.StringFixed(2)).
		Msg("order item added")

	return item, nil
}

// List retrieves the user's orders.
func (s *orderService) List(ctx context.Context, userID int64) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetByID retrieves one of the user's orders. Orders of other users are reported as not found.
func (s *orderService) GetByID(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	order, err := s.orderRepo.GetByIDForUser(ctx, userID, orderID)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		s.logger.Debug().Int64("order_id", orderID).Int64("user_id", userID).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}
