// Package events publishes order lifecycle events to downstream consumers.
package events

import (
	"context"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// EventOrderStatusChanged is the type header value of status change events.
const EventOrderStatusChanged = "order.status_changed"

// Publisher publishes order events.
type Publisher interface {
	PublishOrderStatusChanged(ctx context.Context, evt model.OrderStatusChanged) error
	Close() error
}

// noopPublisher drops every event. Used when no broker is configured.
type noopPublisher struct {
	logger zerolog.Logger
}

// NewNoopPublisher creates a Publisher that only logs events at debug level.
func NewNoopPublisher(logger zerolog.Logger) Publisher {
	return &noopPublisher{logger: logger.With().Str("component", "noop-publisher").Logger()}
}

func (p *noopPublisher) PublishOrderStatusChanged(_ context.Context, evt model.OrderStatusChanged) error {
	p.logger.Debug().
		Int64("order_id", evt.OrderID).
		Str("to", string(evt.To)).
		Msg("event publishing disabled, dropping order status change")
	return nil
}

func (p *noopPublisher) Close() error { return nil }
