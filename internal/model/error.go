package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string            `json:"error"`
	Code          string            `json:"code"`
	Fields        map[string]string `json:"fields,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeProductNotFound   = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeCartItemNotFound  = "CART_ITEM_NOT_FOUND"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeInvalidQuantity   = "INVALID_QUANTITY"
	ErrCodeUsernameTaken     = "USERNAME_TAKEN"
	ErrCodeWeakPassword      = "WEAK_PASSWORD"
	ErrCodeInvalidCreds      = "INVALID_CREDENTIALS"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNoPendingOrder    = "NO_PENDING_ORDER"
	ErrCodeInvalidWebhook    = "INVALID_WEBHOOK"
	ErrCodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeInvalidImage      = "INVALID_IMAGE"
	ErrCodePaymentRejected   = "PAYMENT_REJECTED"
	ErrCodePaymentDown       = "PAYMENT_UNAVAILABLE"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidJSON             = NewDomainError(ErrCodeInvalidJSON, "Invalid request body")
	ErrValidation              = NewDomainError(ErrCodeValidation, "Request validation failed")
	ErrProductNotFound         = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrOrderNotFound           = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrCartItemNotFound        = NewDomainError(ErrCodeCartItemNotFound, "Cart item not found")
	ErrUserNotFound            = NewDomainError(ErrCodeUserNotFound, "User not found")
	ErrInvalidQuantity         = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrUsernameTaken           = NewDomainError(ErrCodeUsernameTaken, "A user with that username already exists")
	ErrWeakPassword            = NewDomainError(ErrCodeWeakPassword, "Password must be at least 8 characters and contain a letter and a digit")
	ErrInvalidCredentials      = NewDomainError(ErrCodeInvalidCreds, "No active account found with the given credentials")
	ErrUnauthorised            = NewDomainError(ErrCodeUnauthorised, "Authentication credentials were not provided or are invalid")
	ErrForbidden               = NewDomainError(ErrCodeForbidden, "You do not have permission to perform this action")
	ErrNoPendingOrder          = NewDomainError(ErrCodeNoPendingOrder, "No pending order with a payable total")
	ErrInvalidWebhook          = NewDomainError(ErrCodeInvalidWebhook, "Invalid webhook payload or signature")
	ErrInvalidStatusTransition = NewDomainError(ErrCodeInvalidTransition, "Order status transition is not allowed")
	ErrInvalidImage            = NewDomainError(ErrCodeInvalidImage, "A valid image file is required")
	ErrPaymentRejected         = NewDomainError(ErrCodePaymentRejected, "The payment processor rejected the request")
	ErrPaymentUnavailable      = NewDomainError(ErrCodePaymentDown, "The payment processor is temporarily unavailable")
)
