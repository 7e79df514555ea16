package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"
	"storefront/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// cachedProductService serves single product lookups from Redis and
// invalidates the entry on every write.
type cachedProductService struct {
	next        ProductService
	redisClient *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewCachedProductService wraps next with a Redis read-through cache.
func NewCachedProductService(next ProductService, redisClient *redis.Client, ttl time.Duration, logger zerolog.Logger) ProductService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &cachedProductService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    ttl,
		logger:      logger.With().Str("service", "product-cache").Logger(),
	}
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (s *cachedProductService) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	return s.next.GetAll(ctx, limit, offset)
}

func (s *cachedProductService) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	key := productKey(id)

	val, err := s.redisClient.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var product model.Product
		if err := json.Unmarshal(val, &product); err == nil {
			return &product, nil
		}
		s.logger.Warn().Int64("product_id", id).Msg("discarding undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		s.logger.Warn().Err(err).Int64("product_id", id).Msg("cache read failed")
	}

	product, err := s.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		if err := s.redisClient.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
			s.logger.Warn().Err(err).Int64("product_id", id).Msg("cache write failed")
		}
	}

	return product, nil
}

func (s *cachedProductService) Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error) {
	return s.next.Create(ctx, req)
}

func (s *cachedProductService) Update(ctx context.Context, id int64, req *model.ProductRequest) (*model.Product, error) {
	product, err := s.next.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return product, nil
}

func (s *cachedProductService) Patch(ctx context.Context, id int64, req *model.ProductPatchRequest) (*model.Product, error) {
	product, err := s.next.Patch(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return product, nil
}

func (s *cachedProductService) Delete(ctx context.Context, id int64) error {
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *cachedProductService) SetImage(ctx context.Context, id int64, body []byte, contentType string) (*model.Product, error) {
	product, err := s.next.SetImage(ctx, id, body, contentType)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return product, nil
}

func (s *cachedProductService) OpenImage(ctx context.Context, id int64) (*storage.Object, error) {
	return s.next.OpenImage(ctx, id)
}

func (s *cachedProductService) invalidate(ctx context.Context, id int64) {
	if err := s.redisClient.Del(ctx, productKey(id)).Err(); err != nil {
		s.logger.Warn().Err(err).Int64("product_id", id).Msg("cache invalidation failed")
	}
}
