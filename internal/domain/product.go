package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a catalog product. Prices are VND amounts, stored as
// whole numbers. Products are soft-deleted via IsActive because order items
// keep referencing them.
type Product struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Code          string    `json:"code" db:"code"`
	Price         int64     `json:"price" db:"price"`
	OriginalPrice *int64    `json:"original_price" db:"original_price"`
	StockQuantity int       `json:"stock_quantity" db:"stock_quantity"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	BrandID       uuid.UUID `json:"brand_id" db:"brand_id"`
	CategoryID    uuid.UUID `json:"category_id" db:"category_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// ProductSummary is the denormalized listing row: product fields joined with
// brand/category names and the primary image.
type ProductSummary struct {
	Product
	BrandName    string `json:"brand_name" db:"brand_name"`
	CategoryName string `json:"category_name" db:"category_name"`
	PrimaryImage string `json:"primary_image" db:"primary_image"`
}

// ProductDetail is the single-product view: summary plus the ordered image
// list (primary first) and ordered specifications.
type ProductDetail struct {
	ProductSummary
	Images         []ProductImage         `json:"images"`
	Specifications []ProductSpecification `json:"specifications"`
}

// ProductImage belongs to a product; exactly one per product is primary.
type ProductImage struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ProductID    uuid.UUID `json:"product_id" db:"product_id"`
	ImageURL     string    `json:"image_url" db:"image_url"`
	IsPrimary    bool      `json:"is_primary" db:"is_primary"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ProductSpecification is a named spec row shown in display order.
type ProductSpecification struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ProductID    uuid.UUID `json:"product_id" db:"product_id"`
	Name         string    `json:"spec_name" db:"spec_name"`
	Value        string    `json:"spec_value" db:"spec_value"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Brand represents a product brand
type Brand struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Category represents a product category
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
