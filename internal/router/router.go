package router

import (
	"net/http"
	"strings"

	"storefront/internal/auth"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/telemetry"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	Health  *handler.HealthHandler
	User    *handler.UserHandler
	Product *handler.ProductHandler
	Cart    *handler.CartHandler
	Order   *handler.OrderHandler
	Payment *handler.PaymentHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(
	h Handlers,
	tokens *auth.TokenManager,
	metrics *telemetry.Metrics,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Public endpoints
	handle(mux, http.MethodGet, "/health", http.HandlerFunc(h.Health.Check))
	handle(mux, http.MethodGet, "/metrics", metrics.Handler())

	// Accounts
	handle(mux, http.MethodPost, "/api/register/", http.HandlerFunc(h.User.Register))
	handle(mux, http.MethodPost, "/api/login/", http.HandlerFunc(h.User.Login))
	handle(mux, http.MethodPost, "/api/token/refresh/", http.HandlerFunc(h.User.Refresh))
	handle(mux, http.MethodGet, "/api/users/", admin(h.User.List))

	// Catalogue: reads are public, writes are admin only
	handle(mux, http.MethodGet, "/api/products/", http.HandlerFunc(h.Product.GetAll))
	handle(mux, http.MethodPost, "/api/products/", admin(h.Product.Create))
	handle(mux, http.MethodGet, "/api/products/{id}/", http.HandlerFunc(h.Product.GetByID))
	handle(mux, http.MethodPut, "/api/products/{id}/", admin(h.Product.Update))
	handle(mux, http.MethodPatch, "/api/products/{id}/", admin(h.Product.Patch))
	handle(mux, http.MethodDelete, "/api/products/{id}/", admin(h.Product.Delete))
	handle(mux, http.MethodGet, "/api/products/{id}/image/", http.HandlerFunc(h.Product.GetImage))
	handle(mux, http.MethodPut, "/api/products/{id}/image/", admin(h.Product.UploadImage))

	// Cart
	handle(mux, http.MethodGet, "/api/cart/", authenticated(h.Cart.Get))
	handle(mux, http.MethodPost, "/api/cart/add", authenticated(h.Cart.Add))
	handle(mux, http.MethodPut, "/api/cart/update/{id}/", authenticated(h.Cart.Update))
	handle(mux, http.MethodPatch, "/api/cart/update/{id}/", authenticated(h.Cart.Update))
	handle(mux, http.MethodDelete, "/api/cart/update/{id}/", authenticated(h.Cart.Remove))

	// Orders
	handle(mux, http.MethodPost, "/api/order/", authenticated(h.Order.AddItem))
	handle(mux, http.MethodGet, "/api/orders/", authenticated(h.Order.List))
	handle(mux, http.MethodGet, "/api/orders/{id}/", authenticated(h.Order.GetByID))

	// Payments; the webhook authenticates by signature instead of a token
	handle(mux, http.MethodPost, "/api/payment/create-intent/", authenticated(h.Payment.CreateIntent))
	handle(mux, http.MethodPost, "/api/payment/webhook/", http.HandlerFunc(h.Payment.Webhook))

	// Apply middleware in order: Recovery -> RequestID -> Logging -> CORS -> Authenticate -> Metrics.
	// Metrics wraps the mux directly so it can read the matched pattern.
	var handler http.Handler = mux
	handler = middleware.Metrics(metrics)(handler)
	handler = middleware.Authenticate(tokens, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}

// handle registers h for method on path both with and without the trailing slash.
func handle(mux *http.ServeMux, method, path string, h http.Handler) {
	trimmed := strings.TrimSuffix(path, "/")
	mux.Handle(method+" "+trimmed, h)
	mux.Handle(method+" "+trimmed+"/{$}", h)
}

func authenticated(fn http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(fn)
}

func admin(fn http.HandlerFunc) http.Handler {
	return middleware.RequireAdmin(fn)
}
