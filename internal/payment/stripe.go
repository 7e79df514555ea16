package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/config"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"
)

const metadataOrderID = "order_id"

// stripeProcessor implements Processor against the Stripe API.
type stripeProcessor struct {
	intents       paymentintent.Client
	webhookSecret string
	timeout       time.Duration
	breaker       *gobreaker.CircuitBreaker
	logger        zerolog.Logger
}

// NewStripeProcessor creates a Stripe-backed Processor. Outbound calls are
// bounded by cfg.Timeout and guarded by a circuit breaker.
func NewStripeProcessor(cfg config.PaymentConfig, logger zerolog.Logger) Processor {
	logger = logger.With().Str("component", "stripe").Logger()

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}

	settings := gobreaker.Settings{
		Name:        "PaymentProcessor",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		// A rejection means the processor is healthy.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &stripeProcessor{
		intents: paymentintent.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		webhookSecret: cfg.WebhookSecret,
		timeout:       cfg.Timeout,
		breaker:       gobreaker.NewCircuitBreaker(settings),
		logger:        logger,
	}
}

// CreateIntent creates a payment intent for the given amount.
func (p *stripeProcessor) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(metadataOrderID, strconv.FormatInt(req.OrderID, 10))
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		pi, err := p.intents.New(params)
		if err != nil {
			return nil, classify(ctx, err)
		}
		return pi, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		p.logger.Error().Err(err).
			Int64("order_id", req.OrderID).
			Int64("amount", req.Amount).
			Msg("failed to create payment intent")
		return nil, err
	}

	pi := result.(*stripe.PaymentIntent)
	p.logger.Info().
		Int64("order_id", req.OrderID).
		Str("payment_intent", pi.ID).
		Msg("payment intent created")

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (p *stripeProcessor) ParseWebhook(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: event id missing", ErrInvalidSignature)
	}

	if event.Type != EventPaymentSucceeded && event.Type != EventPaymentFailed {
		return out, nil
	}

	if event.Data == nil {
		return nil, fmt.Errorf("%w: event data missing", ErrInvalidSignature)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out.PaymentIntentID = pi.ID
	if raw, ok := pi.Metadata[metadataOrderID]; ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			out.OrderID = id
		}
	}

	return out, nil
}

// classify maps a Stripe client error onto ErrRejected or ErrUnavailable.
func classify(ctx context.Context, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= 500 || stripeErr.HTTPStatusCode == http.StatusTooManyRequests || stripeErr.HTTPStatusCode == 0 {
			return fmt.Errorf("%w: %s", ErrUnavailable, stripeErr.Msg)
		}
		return fmt.Errorf("%w: %s", ErrRejected, stripeErr.Msg)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
