// Package payment wraps the external payment processor: intent creation and
// signed webhook verification.
package payment

import (
	"context"
	"errors"
)

// Processor errors. Callers branch on these with errors.Is.
var (
	// ErrInvalidSignature means a webhook failed verification or could not be decoded.
	ErrInvalidSignature = errors.New("payment: invalid webhook signature or payload")
	// ErrUnavailable means the processor could not be reached in time. Safe to retry.
	ErrUnavailable = errors.New("payment: processor unavailable")
	// ErrRejected means the processor definitively refused the request.
	ErrRejected = errors.New("payment: request rejected by processor")
)

// Webhook event types the service reacts to.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// IntentRequest describes a payment intent to create.
type IntentRequest struct {
	OrderID        int64
	Amount         int64 // minor units
	Currency       string
	IdempotencyKey string
}

// Intent is a created payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// Event is a verified webhook notification about a payment intent.
type Event struct {
	ID              string
	Type            string
	PaymentIntentID string
	// OrderID is taken from the intent metadata; zero when absent or malformed.
	OrderID int64
}

// Processor is the contract of the external payment processor.
type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
