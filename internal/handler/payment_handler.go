package handler

import (
	"io"
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// maxWebhookBytes caps webhook payloads.
const maxWebhookBytes = 64 << 10

// signatureHeader is the header the processor signs webhook deliveries with.
const signatureHeader = "Stripe-Signature"

// PaymentHandler handles checkout and processor webhooks.
type PaymentHandler struct {
	service service.PaymentService
	logger  zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(service service.PaymentService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.With().Str("handler", "payment").Logger(),
	}
}

// CreateIntent handles POST /api/payment/create-intent/.
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	resp, err := h.service.CreateIntent(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Webhook handles POST /api/payment/webhook/. Deliveries that pass signature
// verification are always acknowledged, so the processor stops retrying.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, r, model.ErrInvalidWebhook, h.logger)
		return
	}

	if err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get(signatureHeader)); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, model.WebhookAck{Received: true})
}
