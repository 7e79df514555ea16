package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus mirrors the processor's view of a payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusSucceeded PaymentStatus = "Succeeded"
	PaymentStatusFailed    PaymentStatus = "Failed"
)

// Payment records one payment intent raised for an order.
type Payment struct {
	ID            int64           `json:"id" db:"id"`
	OrderID       int64           `json:"order" db:"order_id"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	Status        PaymentStatus   `json:"payment_status" db:"payment_status"`
	Method        string          `json:"method" db:"method"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Currency      string          `json:"currency" db:"currency"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// PaymentIntentResponse is returned by POST /api/payment/create-intent/.
type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// WebhookAck acknowledges a processed webhook delivery.
type WebhookAck struct {
	Received bool `json:"received"`
}
