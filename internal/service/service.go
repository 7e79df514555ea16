package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/storage"

	"go.opentelemetry.io/otel"
)

// tracer opens spans around multi-step service operations.
var tracer = otel.Tracer("storefront/internal/service")

// UserService defines operations for accounts and authentication.
type UserService interface {
	// Register creates a customer account.
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)

	// Login verifies credentials and issues an access and refresh token.
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenPair, error)

	// Refresh issues a new access token from a valid refresh token.
	Refresh(ctx context.Context, refreshToken string) (*model.AccessToken, error)

	// List retrieves all users.
	List(ctx context.Context) ([]model.User, error)

	// EnsureAdmin creates the bootstrap admin or promotes an existing user with that name.
	EnsureAdmin(ctx context.Context, username, email, password string) error
}

// ProductService defines operations for product management.
type ProductService interface {
	// GetAll retrieves products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// Create adds a product to the catalogue.
	Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error)

	// Update replaces every mutable field of a product.
	Update(ctx context.Context, id int64, req *model.ProductRequest) (*model.Product, error)

	// Patch changes only the fields set in req.
	Patch(ctx context.Context, id int64, req *model.ProductPatchRequest) (*model.Product, error)

	// Delete removes a product.
	Delete(ctx context.Context, id int64) error

	// SetImage stores an image and attaches it to the product.
	SetImage(ctx context.Context, id int64, body []byte, contentType string) (*model.Product, error)

	// OpenImage returns the stored image of a product.
	OpenImage(ctx context.Context, id int64) (*storage.Object, error)
}

// CartService defines operations on the caller's shopping cart.
type CartService interface {
	// GetCart returns the user's cart with its items, creating the cart when absent.
	GetCart(ctx context.Context, userID int64) (*model.Cart, error)

	// AddItem adds quantity of a product to the user's cart.
	AddItem(ctx context.Context, userID int64, req *model.AddCartItemRequest) (*model.CartItem, error)

	// UpdateItem sets the quantity of a line in the user's cart.
	UpdateItem(ctx context.Context, userID, itemID int64, req *model.UpdateCartItemRequest) (*model.CartItem, error)

	// RemoveItem deletes a line from the user's cart.
	RemoveItem(ctx context.Context, userID, itemID int64) error
}

// OrderService defines operations for order management.
type OrderService interface {
	// AddOrderItem snapshots a cart line into the user's Pending order.
	AddOrderItem(ctx context.Context, userID int64, req *model.AddOrderItemRequest) (*model.OrderItem, error)

	// List retrieves the user's orders.
	List(ctx context.Context, userID int64) ([]model.Order, error)

	// GetByID retrieves one of the user's orders.
	GetByID(ctx context.Context, userID, orderID int64) (*model.Order, error)
}

// PaymentService defines the checkout and payment reconciliation operations.
type PaymentService interface {
	// CreateIntent requests a payment intent for the user's Pending order.
	CreateIntent(ctx context.Context, userID int64) (*model.PaymentIntentResponse, error)

	// HandleWebhook verifies and applies a processor notification.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// wrapDomain passes domain errors through untouched and wraps everything else with msg.
func wrapDomain(err error, msg string) error {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
