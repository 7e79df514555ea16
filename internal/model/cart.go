package model

import "time"

// Cart is the per-user shopping cart. A user owns at most one.
type Cart struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"user" db:"user_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	Items     []CartItem `json:"items"`
}

// CartItem is a product line within a cart.
type CartItem struct {
	ID        int64    `json:"id" db:"id"`
	CartID    int64    `json:"cart" db:"cart_id"`
	ProductID int64    `json:"product_id" db:"product_id"`
	Quantity  int      `json:"quantity" db:"quantity"`
	Product   *Product `json:"product,omitempty"`
}

// AddCartItemRequest is the payload for POST /api/cart/add.
type AddCartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"omitempty,gt=0,lte=1000"`
}

// UpdateCartItemRequest is the payload for PUT/PATCH /api/cart/update/{id}/.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=1000"`
}
