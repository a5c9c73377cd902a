package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teastall/teastall/app/models"
	"github.com/teastall/teastall/app/repositories"
	"github.com/teastall/teastall/pkg/cache"
	"github.com/teastall/teastall/pkg/logger"
)

// FeaturedLimit caps the featured products listing.
const FeaturedLimit = 12

const (
	cacheKeyProducts = "products:all"
	cacheKeyFeatured = "products:featured"
	catalogCacheTTL  = time.Minute
)

type ProductService struct {
	products repositories.ProductRepository
}

func NewProductService(products repositories.ProductRepository) *ProductService {
	return &ProductService{products: products}
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	return cache.Remember(ctx, cacheKeyProducts, catalogCacheTTL, func() ([]models.Product, error) {
		return s.products.List(ctx)
	})
}

func (s *ProductService) Featured(ctx context.Context) ([]models.Product, error) {
	return cache.Remember(ctx, cacheKeyFeatured, catalogCacheTTL, func() ([]models.Product, error) {
		return s.products.Featured(ctx, FeaturedLimit)
	})
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.products.Find(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (s *ProductService) Create(ctx context.Context, p *models.Product) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	p.CreatedAt, p.UpdatedAt = now, now
	if err := s.products.Create(ctx, p); err != nil {
		return fmt.Errorf("services: create product: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

// Update replaces the given fields and returns the stored product.
func (s *ProductService) Update(ctx context.Context, id string, u models.ProductUpdate) (*models.Product, error) {
	u.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if err := s.products.Update(ctx, id, u); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("services: update product: %w", err)
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("services: delete product: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *ProductService) invalidate(ctx context.Context) {
	if err := cache.Forget(ctx, cacheKeyProducts, cacheKeyFeatured, cacheKeyStats); err != nil {
		logger.WithCtx(ctx).Warn("catalog cache invalidation failed", "error", err)
	}
}

type CategoryService struct {
	categories repositories.CategoryRepository
}

func NewCategoryService(categories repositories.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

func (s *CategoryService) Create(ctx context.Context, c *models.Category) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	c.CreatedAt, c.UpdatedAt = now, now
	return s.categories.Create(ctx, c)
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	err := s.categories.Delete(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrCategoryNotFound
	}
	return err
}

// ReviewsLimit caps the review listing.
const ReviewsLimit = 50

type ReviewService struct {
	reviews repositories.ReviewRepository
}

func NewReviewService(reviews repositories.ReviewRepository) *ReviewService {
	return &ReviewService{reviews: reviews}
}

func (s *ReviewService) List(ctx context.Context) ([]models.Review, error) {
	return s.reviews.List(ctx, ReviewsLimit)
}

func (s *ReviewService) Create(ctx context.Context, userID string, r *models.Review) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	r.UserID = userID
	r.Author, r.Product = nil, nil
	r.CreatedAt, r.UpdatedAt = now, now
	if err := s.reviews.Create(ctx, r); err != nil {
		return fmt.Errorf("services: create review: %w", err)
	}
	if err := cache.Forget(ctx, cacheKeyStats); err != nil {
		logger.WithCtx(ctx).Warn("stats cache invalidation failed", "error", err)
	}
	return nil
}
