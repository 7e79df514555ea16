package repository

import (
	"context"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Transactor starts database transactions for multi-step mutations.
type Transactor interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// UserRepository defines the interface for user data access operations.
type UserRepository interface {
	// Create inserts a user and fills in its ID and creation time.
	// Returns model.ErrUsernameTaken when the username already exists.
	Create(ctx context.Context, user *model.User) error

	// GetByID retrieves a user by ID. Returns nil when absent.
	GetByID(ctx context.Context, id int64) (*model.User, error)

	// GetByUsername retrieves a user by username. Returns nil when absent.
	GetByUsername(ctx context.Context, username string) (*model.User, error)

	// List retrieves all users ordered by ID.
	List(ctx context.Context) ([]model.User, error)

	// UpdateRole changes the role of an existing user.
	UpdateRole(ctx context.Context, id int64, role model.Role) error

	// LockForUpdate takes a row lock on the user for the lifetime of tx.
	// Concurrent cart and order mutations for the same user queue behind it.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id int64) error
}

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// GetAll retrieves products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil when absent.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// GetByIDTx retrieves a product inside tx, holding a share lock until commit.
	GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Product, error)

	// Create inserts a product and fills in its ID and timestamps.
	Create(ctx context.Context, product *model.Product) error

	// Update overwrites the mutable fields of an existing product.
	Update(ctx context.Context, product *model.Product) error

	// Delete removes a product.
	Delete(ctx context.Context, id int64) error

	// SetImage records the storage key of the product image.
	SetImage(ctx context.Context, id int64, image string) (*model.Product, error)
}

// CartRepository defines the interface for cart data access operations.
type CartRepository interface {
	// GetOrCreate returns the user's cart, creating it when absent.
	GetOrCreate(ctx context.Context, tx pgx.Tx, userID int64) (*model.Cart, error)

	// ListItems retrieves the lines of a cart with their products.
	ListItems(ctx context.Context, cartID int64) ([]model.CartItem, error)

	// AddItem adds quantity to the (cart, product) line, creating it when absent.
	AddItem(ctx context.Context, tx pgx.Tx, cartID, productID int64, quantity int) (*model.CartItem, error)

	// EnsureItem returns the (cart, product) line, creating it with quantity 1 when absent.
	EnsureItem(ctx context.Context, tx pgx.Tx, cartID, productID int64) (*model.CartItem, error)

	// UpdateItemQuantity sets the quantity of a line in the user's cart.
	// Returns nil when the line does not belong to the user.
	UpdateItemQuantity(ctx context.Context, userID, itemID int64, quantity int) (*model.CartItem, error)

	// DeleteItem removes a line from the user's cart.
	// Returns false when the line does not belong to the user.
	DeleteItem(ctx context.Context, userID, itemID int64) (bool, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// GetOrCreatePending returns the user's Pending order, creating it when absent.
	GetOrCreatePending(ctx context.Context, tx pgx.Tx, userID int64) (*model.Order, error)

	// UpsertItem writes the (order, product) line, overwriting quantity and price.
	UpsertItem(ctx context.Context, tx pgx.Tx, item *model.OrderItem) error

	// RecalculateTotal sets the order total to the sum of its line prices.
	RecalculateTotal(ctx context.Context, tx pgx.Tx, orderID int64) (decimal.Decimal, error)

	// ListByUser retrieves the user's orders with their items, newest first.
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)

	// GetByIDForUser retrieves one of the user's orders with its items.
	// Returns nil when absent or owned by another user.
	GetByIDForUser(ctx context.Context, userID, orderID int64) (*model.Order, error)

	// GetPendingByUser retrieves the user's Pending order. Returns nil when absent.
	GetPendingByUser(ctx context.Context, userID int64) (*model.Order, error)

	// GetByIDForUpdate retrieves an order inside tx holding a row lock.
	// Returns nil when absent.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, orderID int64) (*model.Order, error)

	// UpdateStatus persists a new order status.
	UpdateStatus(ctx context.Context, tx pgx.Tx, orderID int64, status model.OrderStatus) error
}

// PaymentRepository defines the interface for payment data access operations.
type PaymentRepository interface {
	// Create records a payment. Recording the same transaction twice returns the existing row.
	Create(ctx context.Context, payment *model.Payment) error

	// UpdateStatusByTransaction sets the status of the payment with the given transaction ID.
	// Returns false when no such payment exists.
	UpdateStatusByTransaction(ctx context.Context, tx pgx.Tx, transactionID string, status model.PaymentStatus) (bool, error)

	// MarkEventProcessed records a webhook event ID.
	// Returns false when the event was already recorded.
	MarkEventProcessed(ctx context.Context, tx pgx.Tx, eventID, eventType string) (bool, error)
}
