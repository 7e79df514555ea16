package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultProductLimit = 10
	maxProductLimit     = 100
)

// imageExtensions maps accepted image content types to file extensions.
var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// productService implements ProductService.
type productService struct {
	repo   repository.ProductRepository
	images storage.ImageStore
	logger zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(repo repository.ProductRepository, images storage.ImageStore, logger zerolog.Logger) ProductService {
	return &productService{
		repo:   repo,
		images: images,
		logger: logger.With().Str("service", "product").Logger(),
	}
}

// GetAll retrieves products with pagination.
// A non-positive limit selects the default page size, and limits above the
// maximum are clamped.
func (s *productService) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	if limit <= 0 {
		limit = defaultProductLimit
	}
	if limit > maxProductLimit {
		limit = maxProductLimit
	}
	if offset < 0 {
		offset = 0
	}

	s.logger.Debug().
		Int("limit", limit).
		Int("offset", offset).
		Msg("retrieving products")

	products, err := s.repo.GetAll(ctx, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to retrieve products")
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return products, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("failed to retrieve product")
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}
	return product, nil
}

// Create adds a product to the catalogue.
func (s *productService) Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error) {
	product := &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info().Int64("product_id", product.ID).Str("name", product.Name).Msg("product created")
	return product, nil
}

// Update replaces every mutable field of a product.
func (s *productService) Update(ctx context.Context, id int64, req *model.ProductRequest) (*model.Product, error) {
	product := &model.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
	}

	if err := s.repo.Update(ctx, product); err != nil {
		if errors.Is(err, model.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.logger.Info().Int64("product_id", id).Msg("product updated")
	return product, nil
}

// Patch changes only the fields set in req.
func (s *productService) Patch(ctx context.Context, id int64, req *model.ProductPatchRequest) (*model.Product, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Apply(product)

	if err := s.repo.Update(ctx, product); err != nil {
		if errors.Is(err, model.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to patch product: %w", err)
	}

	s.logger.Info().Int64("product_id", id).Msg("product patched")
	return product, nil
}

// Delete removes a product.
func (s *productService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.logger.Info().Int64("product_id", id).Msg("product deleted")
	return nil
}

// SetImage stores an image and attaches it to the product.
func (s *productService) SetImage(ctx context.Context, id int64, body []byte, contentType string) (*model.Product, error) {
	ext, ok := imageExtensions[contentType]
	if !ok || len(body) == 0 {
		return nil, model.ErrInvalidImage
	}

	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("products/%d/%s%s", id, uuid.NewString(), ext)
	if err := s.images.Put(ctx, key, body, contentType); err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("failed to store product image")
		return nil, fmt.Errorf("failed to store product image: %w", err)
	}

	product, err := s.repo.SetImage(ctx, id, key)
	if err != nil {
		if errors.Is(err, model.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to attach product image: %w", err)
	}

	s.logger.Info().Int64("product_id", id).Str("image", key).Msg("product image updated")
	return product, nil
}

// OpenImage returns the stored image of a product.
func (s *productService) OpenImage(ctx context.Context, id int64) (*storage.Object, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.Image == "" {
		return nil, model.ErrProductNotFound
	}

	obj, err := s.images.Open(ctx, product.Image)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, model.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to open product image: %w", err)
	}
	return obj, nil
}
