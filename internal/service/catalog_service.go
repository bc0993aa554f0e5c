package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"techstore-api/internal/domain"
	"techstore-api/internal/repository"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

var ErrInvalidPrice = errors.New("price must not be negative")

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ProductInput carries admin create/update fields for a product.
type ProductInput struct {
	Name          string
	Code          string
	Price         int64
	OriginalPrice *int64
	StockQuantity int
	BrandID       uuid.UUID
	CategoryID    uuid.UUID
}

// ImageInput carries admin create/update fields for a product image.
type ImageInput struct {
	ImageURL     string
	IsPrimary    bool
	DisplayOrder int
}

// SpecificationInput carries admin create/update fields for a specification.
type SpecificationInput struct {
	Name         string
	Value        string
	DisplayOrder int
}

// CatalogService defines the interface for catalog business logic
type CatalogService interface {
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]*domain.ProductSummary, Pagination, error)
	GetProductDetail(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error)
	CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error)
	ToggleStatus(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	AddImage(ctx context.Context, productID uuid.UUID, in ImageInput) (*domain.ProductImage, error)
	UpdateImage(ctx context.Context, productID, imageID uuid.UUID, in ImageInput) error
	DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error

	AddSpecification(ctx context.Context, productID uuid.UUID, in SpecificationInput) (*domain.ProductSpecification, error)
	UpdateSpecification(ctx context.Context, productID, specID uuid.UUID, in SpecificationInput) error
	DeleteSpecification(ctx context.Context, productID, specID uuid.UUID) error
}

type catalogService struct {
	productRepo repository.ProductRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(productRepo repository.ProductRepository) CatalogService {
	return &catalogService{productRepo: productRepo}
}

// ListProducts normalizes pagination inputs and returns one page plus the
// pagination envelope. Pages are 1-based; a page past the end comes back as
// an empty list with the real total.
func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]*domain.ProductSummary, Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = DefaultPageSize
	}
	if filter.PageSize > MaxPageSize {
		filter.PageSize = MaxPageSize
	}

	items, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list products: %w", err)
	}

	totalPages := (total + filter.PageSize - 1) / filter.PageSize

	return items, Pagination{
		Page:       filter.Page,
		Limit:      filter.PageSize,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// GetProductDetail returns a product with images and specifications
func (s *catalogService) GetProductDetail(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error) {
	return s.productRepo.FindDetail(ctx, id)
}

// CreateProduct creates a new active product
func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if in.Price < 0 {
		return nil, ErrInvalidPrice
	}

	now := time.Now()
	product := &domain.Product{
		ID:            uuid.New(),
		Name:          in.Name,
		Code:          in.Code,
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		StockQuantity: in.StockQuantity,
		IsActive:      true,
		BrandID:       in.BrandID,
		CategoryID:    in.CategoryID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct updates an existing product's editable fields
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	if in.Price < 0 {
		return nil, ErrInvalidPrice
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = in.Name
	product.Code = in.Code
	product.Price = in.Price
	product.OriginalPrice = in.OriginalPrice
	product.StockQuantity = in.StockQuantity
	product.BrandID = in.BrandID
	product.CategoryID = in.CategoryID
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// ToggleStatus flips a product's activity flag and returns the new value
func (s *catalogService) ToggleStatus(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.productRepo.ToggleActive(ctx, id)
}

// DeleteProduct soft-deletes a product by deactivating it
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.Deactivate(ctx, id)
}

// AddImage attaches an image to a product
func (s *catalogService) AddImage(ctx context.Context, productID uuid.UUID, in ImageInput) (*domain.ProductImage, error) {
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	image := &domain.ProductImage{
		ID:           uuid.New(),
		ProductID:    productID,
		ImageURL:     in.ImageURL,
		IsPrimary:    in.IsPrimary,
		DisplayOrder: in.DisplayOrder,
		CreatedAt:    time.Now(),
	}

	if err := s.productRepo.AddImage(ctx, image); err != nil {
		return nil, err
	}
	return image, nil
}

// UpdateImage updates an existing product image
func (s *catalogService) UpdateImage(ctx context.Context, productID, imageID uuid.UUID, in ImageInput) error {
	return s.productRepo.UpdateImage(ctx, &domain.ProductImage{
		ID:           imageID,
		ProductID:    productID,
		ImageURL:     in.ImageURL,
		IsPrimary:    in.IsPrimary,
		DisplayOrder: in.DisplayOrder,
	})
}

// DeleteImage removes a product image
func (s *catalogService) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error {
	return s.productRepo.DeleteImage(ctx, productID, imageID)
}

// AddSpecification attaches a specification row to a product
func (s *catalogService) AddSpecification(ctx context.Context, productID uuid.UUID, in SpecificationInput) (*domain.ProductSpecification, error) {
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	spec := &domain.ProductSpecification{
		ID:           uuid.New(),
		ProductID:    productID,
		Name:         in.Name,
		Value:        in.Value,
		DisplayOrder: in.DisplayOrder,
		CreatedAt:    time.Now(),
	}

	if err := s.productRepo.AddSpecification(ctx, spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// UpdateSpecification updates an existing specification row
func (s *catalogService) UpdateSpecification(ctx context.Context, productID, specID uuid.UUID, in SpecificationInput) error {
	return s.productRepo.UpdateSpecification(ctx, &domain.ProductSpecification{
		ID:           specID,
		ProductID:    productID,
		Name:         in.Name,
		Value:        in.Value,
		DisplayOrder: in.DisplayOrder,
	})
}

// DeleteSpecification removes a specification row
func (s *catalogService) DeleteSpecification(ctx context.Context, productID, specID uuid.UUID) error {
	return s.productRepo.DeleteSpecification(ctx, productID, specID)
}
