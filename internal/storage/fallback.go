package storage

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// fallbackStore tries the primary store first and falls back to the secondary.
type fallbackStore struct {
	primary   ImageStore
	secondary ImageStore
	logger    zerolog.Logger
}

// NewFallbackStore creates a store that uses primary when it is configured and
// healthy, and secondary otherwise. A nil primary means secondary only.
func NewFallbackStore(primary, secondary ImageStore, logger zerolog.Logger) ImageStore {
	return &fallbackStore{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With().Str("component", "fallback-image-store").Logger(),
	}
}

// Put writes to the primary store, falling back to the secondary on failure.
func (s *fallbackStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if s.primary != nil {
		err := s.primary.Put(ctx, key, body, contentType)
		if err == nil {
			return nil
		}
		s.logger.Warn().
			Err(err).
			Str("key", key).
			Msg("failed to store image in primary store, falling back to local disk")
	}

	return s.secondary.Put(ctx, key, body, contentType)
}

// Open reads from the primary store, falling back to the secondary on any failure.
func (s *fallbackStore) Open(ctx context.Context, key string) (*Object, error) {
	if s.primary != nil {
		obj, err := s.primary.Open(ctx, key)
		if err == nil {
			return obj, nil
		}
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read image from primary store")
		}
	}

	return s.secondary.Open(ctx, key)
}
