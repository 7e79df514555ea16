package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/telemetry"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Webhook delivery outcomes, used as metric labels.
const (
	webhookInvalid      = "invalid"
	webhookDuplicate    = "duplicate"
	webhookIgnored      = "ignored"
	webhookUnknownOrder = "unknown_order"
	webhookNoop         = "noop"
	webhookRejected     = "rejected"
	webhookApplied      = "applied"
	webhookError        = "error"
)

const paymentMethodCard = "card"

// paymentService implements PaymentService.
type paymentService struct {
	tx          repository.Transactor
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	processor   payment.Processor
	publisher   events.Publisher
	metrics     *telemetry.Metrics
	currency    string
	logger      zerolog.Logger
}

// NewPaymentService creates a new payment service charging in currency.
func NewPaymentService(
	tx repository.Transactor,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	processor payment.Processor,
	publisher events.Publisher,
	metrics *telemetry.Metrics,
	currency string,
	logger zerolog.Logger,
) PaymentService {
	return &paymentService{
		tx:          tx,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		processor:   processor,
		publisher:   publisher,
		metrics:     metrics,
		currency:    currency,
		logger:      logger.With().Str("service", "payment").Logger(),
	}
}

// CreateIntent requests a payment intent for the total of the user's Pending order.
// The amount is submitted in minor units.
func (s *paymentService) CreateIntent(ctx context.Context, userID int64) (*model.PaymentIntentResponse, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.CreateIntent")
	defer span.End()

	span.SetAttributes(attribute.Int64("user_id", userID))

	order, err := s.orderRepo.GetPendingByUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load pending order: %w", err)
	}
	if order == nil || !order.TotalAmount.IsPositive() {
		s.logger.Debug().Int64("user_id", userID).Msg("no payable pending order")
		return nil, model.ErrNoPendingOrder
	}

	amount := order.TotalAmount.Shift(2).IntPart()
	span.SetAttributes(
		attribute.Int64("order_id", order.ID),
		attribute.Int64("amount", amount),
	)

	intent, err := s.processor.CreateIntent(ctx, payment.IntentRequest{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: s.currency,
		// Same order and total yields the same intent on retry.
		IdempotencyKey: fmt.Sprintf("order-%d-%s", order.ID, order.TotalAmount.StringFixed(2)),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment intent failed")
		switch {
		case errors.Is(err, payment.ErrUnavailable):
			s.metrics.PaymentIntents.WithLabelValues("unavailable").Inc()
			return nil, model.ErrPaymentUnavailable
		case errors.Is(err, payment.ErrRejected):
			s.metrics.PaymentIntents.WithLabelValues("rejected").Inc()
			return nil, model.ErrPaymentRejected
		default:
			s.metrics.PaymentIntents.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to create payment intent: %w", err)
		}
	}

	record := &model.Payment{
		OrderID:       order.ID,
		TransactionID: intent.ID,
		Status:        model.PaymentStatusPending,
		Method:        paymentMethodCard,
		Amount:        order.TotalAmount,
		Currency:      s.currency,
	}
	if err := s.paymentRepo.Create(ctx, record); err != nil {
		s.logger.Error().Err(err).
			Int64("order_id", order.ID).
			Str("payment_intent", intent.ID).
			Msg("failed to record payment")
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.metrics.PaymentIntents.WithLabelValues("created").Inc()
	s.logger.Info().
		Int64("user_id", userID).
		Int64("order_id", order.ID).
		Str("payment_intent", intent.ID).
		Int64("amount", amount).
		Msg("payment intent created")

	return &model.PaymentIntentResponse{ClientSecret: intent.ClientSecret}, nil
}

// HandleWebhook verifies a processor notification and applies it to the referenced order.
// Events are recorded by ID in the same transaction as the status change, so a
// redelivered event is acknowledged without being applied twice.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	evt, err := s.processor.ParseWebhook(payload, signature)
	if err != nil {
		s.metrics.WebhookDeliveries.WithLabelValues(webhookInvalid).Inc()
		s.logger.Warn().Err(err).Msg("rejected webhook delivery")
		return model.ErrInvalidWebhook
	}

	ctx, span := tracer.Start(ctx, "PaymentService.HandleWebhook")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", evt.ID),
		attribute.String("event_type", evt.Type),
		attribute.Int64("order_id", evt.OrderID),
	)

	logger := s.logger.With().
		Str("event_id", evt.ID).
		Str("event_type", evt.Type).
		Int64("order_id", evt.OrderID).
		Logger()

	var (
		outcome string
		changed *model.OrderStatusChanged
	)

	err = repository.RunInTx(ctx, s.tx, func(tx pgx.Tx) error {
		outcome, changed = "", nil

		fresh, err := s.paymentRepo.MarkEventProcessed(ctx, tx, evt.ID, evt.Type)
		if err != nil {
			return err
		}
		if !fresh {
			outcome = webhookDuplicate
			return nil
		}

		target, paymentStatus, ok := statusForEvent(evt.Type)
		if !ok {
			outcome = webhookIgnored
			return nil
		}

		if evt.OrderID == 0 {
			outcome = webhookUnknownOrder
			return nil
		}

		order, err := s.orderRepo.GetByIDForUpdate(ctx, tx, evt.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			outcome = webhookUnknownOrder
			return nil
		}

		if !order.Status.CanTransitionTo(target) {
			outcome = webhookRejected
			logger.Warn().
				Str("from", string(order.Status)).
				Str("to", string(target)).
				Msg("ignoring webhook with disallowed status transition")
			return nil
		}

		if _, err := s.paymentRepo.UpdateStatusByTransaction(ctx, tx, evt.PaymentIntentID, paymentStatus); err != nil {
			return err
		}

		if order.Status == target {
			outcome = webhookNoop
			return nil
		}

		if err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, target); err != nil {
			return err
		}

		outcome = webhookApplied
		changed = &model.OrderStatusChanged{
			OrderID:       order.ID,
			UserID:        order.UserID,
			From:          order.Status,
			To:            target,
			TransactionID: evt.PaymentIntentID,
			OccurredAt:    time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook processing failed")
		s.metrics.WebhookDeliveries.WithLabelValues(webhookError).Inc()
		logger.Error().Err(err).Msg("failed to apply webhook")
		return fmt.Errorf("failed to apply webhook: %w", err)
	}

	s.metrics.WebhookDeliveries.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("outcome", outcome))

	switch outcome {
	case webhookUnknownOrder:
		logger.Warn().Msg("webhook references unknown order")
	case webhookDuplicate:
		logger.Info().Msg("webhook event already processed")
	case webhookApplied:
		s.metrics.OrderTransitions.WithLabelValues(string(changed.To)).Inc()
		logger.Info().
			Str("from", string(changed.From)).
			Str("to", string(changed.To)).
			Msg("order status updated")

		if err := s.publisher.PublishOrderStatusChanged(ctx, *changed); err != nil {
			logger.Error().Err(err).Msg("failed to publish order status change")
		}
	default:
		logger.Debug().Str("outcome", outcome).Msg("webhook acknowledged")
	}

	return nil
}

// statusForEvent maps a processor event type to the order and payment status it implies.
func statusForEvent(eventType string) (model.OrderStatus, model.PaymentStatus, bool) {
	switch eventType {
	case payment.EventPaymentSucceeded:
		return model.OrderStatusSuccessful, model.PaymentStatusSucceeded, true
	case payment.EventPaymentFailed:
		return model.OrderStatusFailed, model.PaymentStatusFailed, true
	default:
		return "", "", false
	}
}
