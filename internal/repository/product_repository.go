package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"techstore-api/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrProductCodeTaken      = errors.New("product with this code already exists")
	ErrImageNotFound         = errors.New("product image not found")
	ErrSpecificationNotFound = errors.New("product specification not found")
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// productSortFields is the allow-list for ORDER BY identifiers. Sort fields
// cannot be bound as values, so interpolation is gated here and nowhere else.
var productSortFields = map[string]bool{
	"name":       true,
	"price":      true,
	"created_at": true,
	"stock":      true,
}

// ProductFilter holds the optional listing filters. Nil/zero fields are
// omitted from the generated WHERE clause.
type ProductFilter struct {
	Search     string
	BrandID    *uuid.UUID
	CategoryID *uuid.UUID
	MinPrice   *int64
	MaxPrice   *int64
	ActiveOnly bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  SortOrder
}

// buildProductWhere composes the WHERE clause for product listings. Clauses
// are appended and their arguments pushed in the same order; the returned arg
// count always matches the number of placeholders in the clause.
func buildProductWhere(f ProductFilter) (string, []interface{}) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if f.Search != "" {
		where += fmt.Sprintf(" AND (p.name ILIKE $%d OR p.code ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+f.Search+"%")
		argIndex++
	}
	if f.BrandID != nil {
		where += fmt.Sprintf(" AND p.brand_id = $%d", argIndex)
		args = append(args, *f.BrandID)
		argIndex++
	}
	if f.CategoryID != nil {
		where += fmt.Sprintf(" AND p.category_id = $%d", argIndex)
		args = append(args, *f.CategoryID)
		argIndex++
	}
	if f.MinPrice != nil {
		where += fmt.Sprintf(" AND p.price >= $%d", argIndex)
		args = append(args, *f.MinPrice)
		argIndex++
	}
	if f.MaxPrice != nil {
		where += fmt.Sprintf(" AND p.price <= $%d", argIndex)
		args = append(args, *f.MaxPrice)
		argIndex++
	}
	if f.ActiveOnly {
		where += " AND p.is_active = TRUE"
	}

	return where, args
}

const productSummaryColumns = `
	p.id, p.name, p.code, p.price, p.original_price, p.stock_quantity,
	p.is_active, p.brand_id, p.category_id, p.created_at, p.updated_at,
	b.name AS brand_name, c.name AS category_name,
	COALESCE((
		SELECT pi.image_url FROM product_images pi
		WHERE pi.product_id = p.id AND pi.is_primary
	), '') AS primary_image`

// ProductRepository defines the interface for catalog data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	List(ctx context.Context, filter ProductFilter) ([]*domain.ProductSummary, int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error)
	ToggleActive(ctx context.Context, id uuid.UUID) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID) error

	AddImage(ctx context.Context, image *domain.ProductImage) error
	UpdateImage(ctx context.Context, image *domain.ProductImage) error
	DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error

	AddSpecification(ctx context.Context, spec *domain.ProductSpecification) error
	UpdateSpecification(ctx context.Context, spec *domain.ProductSpecification) error
	DeleteSpecification(ctx context.Context, productID, specID uuid.UUID) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, code, price, original_price, stock_quantity,
			is_active, brand_id, category_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Code,
		product.Price,
		product.OriginalPrice,
		product.StockQuantity,
		product.IsActive,
		product.BrandID,
		product.CategoryID,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "products_code_key") {
			return ErrProductCodeTaken
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates an existing product using parameterized queries
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, code = $3, price = $4, original_price = $5,
		    stock_quantity = $6, brand_id = $7, category_id = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Code,
		product.Price,
		product.OriginalPrice,
		product.StockQuantity,
		product.BrandID,
		product.CategoryID,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// List retrieves a denormalized product page for the given filter, plus the
// total matching count. A page past the end yields an empty slice and the
// unchanged total.
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.ProductSummary, int, error) {
	sortBy := filter.SortBy
	if !productSortFields[sortBy] {
		sortBy = "created_at"
	}
	if sortBy == "stock" {
		sortBy = "stock_quantity"
	}
	sortOrder := filter.SortOrder
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	where, args := buildProductWhere(filter)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products p %s", where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN brands b ON b.id = p.brand_id
		JOIN categories c ON c.id = p.category_id
		%s
		ORDER BY p.%s %s
		LIMIT $%d OFFSET $%d
	`, productSummaryColumns, where, sortBy, sortOrder, len(args)+1, len(args)+2)

	args = append(args, filter.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.ProductSummary{}
	for rows.Next() {
		p := &domain.ProductSummary{}
		if err := scanProductSummary(rows, p); err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProductSummary(row rowScanner, p *domain.ProductSummary) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Code,
		&p.Price,
		&p.OriginalPrice,
		&p.StockQuantity,
		&p.IsActive,
		&p.BrandID,
		&p.CategoryID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.BrandName,
		&p.CategoryName,
		&p.PrimaryImage,
	)
}

// FindByID retrieves a bare product row using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, name, code, price, original_price, stock_quantity,
		       is_active, brand_id, category_id, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Code,
		&product.Price,
		&product.OriginalPrice,
		&product.StockQuantity,
		&product.IsActive,
		&product.BrandID,
		&product.CategoryID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindDetail retrieves a product with its brand/category names, ordered
// images (primary first, then display order) and ordered specifications.
func (r *productRepository) FindDetail(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN brands b ON b.id = p.brand_id
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`, productSummaryColumns)

	detail := &domain.ProductDetail{}
	if err := scanProductSummary(r.db.QueryRowContext(ctx, query, id), &detail.ProductSummary); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product detail: %w", err)
	}

	imageRows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, image_url, is_primary, display_order, created_at
		FROM product_images
		WHERE product_id = $1
		ORDER BY is_primary DESC, display_order ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load product images: %w", err)
	}
	defer imageRows.Close()

	detail.Images = []domain.ProductImage{}
	for imageRows.Next() {
		var img domain.ProductImage
		if err := imageRows.Scan(&img.ID, &img.ProductID, &img.ImageURL, &img.IsPrimary, &img.DisplayOrder, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product image: %w", err)
		}
		detail.Images = append(detail.Images, img)
	}
	if err = imageRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product images: %w", err)
	}

	specRows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, spec_name, spec_value, display_order, created_at
		FROM product_specifications
		WHERE product_id = $1
		ORDER BY display_order ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load product specifications: %w", err)
	}
	defer specRows.Close()

	detail.Specifications = []domain.ProductSpecification{}
	for specRows.Next() {
		var spec domain.ProductSpecification
		if err := specRows.Scan(&spec.ID, &spec.ProductID, &spec.Name, &spec.Value, &spec.DisplayOrder, &spec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product specification: %w", err)
		}
		detail.Specifications = append(detail.Specifications, spec)
	}
	if err = specRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product specifications: %w", err)
	}

	return detail, nil
}

// ToggleActive flips the activity flag and returns the new value. Applying it
// twice restores the original state.
func (r *productRepository) ToggleActive(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE products
		SET is_active = NOT is_active, updated_at = NOW()
		WHERE id = $1
		RETURNING is_active
	`

	var isActive bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(&isActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, ErrProductNotFound
		}
		return false, fmt.Errorf("failed to toggle product status: %w", err)
	}

	return isActive, nil
}

// Deactivate soft-deletes a product. Rows are never removed while order items
// reference them.
func (r *productRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// AddImage inserts an image. When the new image is primary the previous
// primary is demoted in the same transaction to keep the invariant of exactly
// one primary image per product.
func (r *productRepository) AddImage(ctx context.Context, image *domain.ProductImage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if image.IsPrimary {
		if _, err := tx.ExecContext(ctx, `
			UPDATE product_images SET is_primary = FALSE
			WHERE product_id = $1 AND is_primary
		`, image.ProductID); err != nil {
			return fmt.Errorf("failed to demote primary image: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO product_images (id, product_id, image_url, is_primary, display_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		image.ID,
		image.ProductID,
		image.ImageURL,
		image.IsPrimary,
		image.DisplayOrder,
		image.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add product image: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit image insert: %w", err)
	}
	committed = true
	return nil
}

// UpdateImage updates url, primary flag and display order of an image,
// demoting any other primary in the same transaction.
func (r *productRepository) UpdateImage(ctx context.Context, image *domain.ProductImage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if image.IsPrimary {
		if _, err := tx.ExecContext(ctx, `
			UPDATE product_images SET is_primary = FALSE
			WHERE product_id = $1 AND is_primary AND id <> $2
		`, image.ProductID, image.ID); err != nil {
			return fmt.Errorf("failed to demote primary image: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE product_images
		SET image_url = $3, is_primary = $4, display_order = $5
		WHERE id = $1 AND product_id = $2
	`,
		image.ID,
		image.ProductID,
		image.ImageURL,
		image.IsPrimary,
		image.DisplayOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to update product image: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrImageNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit image update: %w", err)
	}
	committed = true
	return nil
}

// DeleteImage removes an image from a product
func (r *productRepository) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM product_images WHERE id = $1 AND product_id = $2
	`, imageID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete product image: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrImageNotFound
	}
	return nil
}

// AddSpecification inserts a specification row
func (r *productRepository) AddSpecification(ctx context.Context, spec *domain.ProductSpecification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO product_specifications (id, product_id, spec_name, spec_value, display_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		spec.ID,
		spec.ProductID,
		spec.Name,
		spec.Value,
		spec.DisplayOrder,
		spec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add product specification: %w", err)
	}
	return nil
}

// UpdateSpecification updates a specification row
func (r *productRepository) UpdateSpecification(ctx context.Context, spec *domain.ProductSpecification) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE product_specifications
		SET spec_name = $3, spec_value = $4, display_order = $5
		WHERE id = $1 AND product_id = $2
	`,
		spec.ID,
		spec.ProductID,
		spec.Name,
		spec.Value,
		spec.DisplayOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to update product specification: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSpecificationNotFound
	}
	return nil
}

// DeleteSpecification removes a specification row
func (r *productRepository) DeleteSpecification(ctx context.Context, productID, specID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM product_specifications WHERE id = $1 AND product_id = $2
	`, specID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete product specification: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSpecificationNotFound
	}
	return nil
}
