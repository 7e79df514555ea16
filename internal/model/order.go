package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusSuccessful OrderStatus = "Successful"
	OrderStatusFailed     OrderStatus = "Failed"
)

// orderTransitions lists the states reachable from each state.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusSuccessful, OrderStatusFailed},
	OrderStatusSuccessful: {},
	OrderStatusFailed:     {},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible from s.
func (s OrderStatus) IsTerminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether an order in state s may move to next.
// Assigning the current state is always allowed and is a no-op.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order represents a customer order.
type Order struct {
	ID          int64           `json:"id" db:"id"`
	UserID      int64           `json:"user" db:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status      OrderStatus     `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
	Items       []OrderItem     `json:"items"`
}

// OrderItem is a product line within an order with its price snapshot.
type OrderItem struct {
	ID        int64           `json:"id" db:"id"`
	OrderID   int64           `json:"order" db:"order_id"`
	ProductID int64           `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Product   *Product        `json:"product,omitempty"`
}

// AddOrderItemRequest is the payload for POST /api/order/.
type AddOrderItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

// OrderStatusChanged is published whenever an order leaves Pending.
type OrderStatusChanged struct {
	OrderID       int64       `json:"order_id"`
	UserID        int64       `json:"user_id"`
	From          OrderStatus `json:"from"`
	To            OrderStatus `json:"to"`
	TransactionID string      `json:"transaction_id,omitempty"`
	OccurredAt    time.Time   `json:"occurred_at"`
}
