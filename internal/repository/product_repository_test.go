package repository

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"techstore-api/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// genProductFilter builds arbitrary filter combinations. Page and size are
// irrelevant to the WHERE clause and left zero.
func genProductFilter() gopter.Gen {
	return gopter.CombineGens(
		gen.AlphaString(),
		gen.Bool(),
		gen.Bool(),
		gen.Int64Range(0, 100_000_000),
		gen.Int64Range(0, 100_000_000),
		gen.Bool(),
	).Map(func(values []interface{}) ProductFilter {
		f := ProductFilter{
			Search:     values[0].(string),
			ActiveOnly: values[5].(bool),
		}
		if values[1].(bool) {
			id := uuid.New()
			f.BrandID = &id
		}
		if values[2].(bool) {
			id := uuid.New()
			f.CategoryID = &id
		}
		min := values[3].(int64)
		max := values[4].(int64)
		f.MinPrice = &min
		f.MaxPrice = &max
		return f
	})
}

func TestProperty_FilterPlaceholdersMatchArguments(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every filter combination yields placeholders in lockstep with arguments", prop.ForAll(
		func(f ProductFilter) bool {
			where, args := buildProductWhere(f)

			// Placeholder indexes must be exactly 1..len(args); a gap or an
			// overshoot would bind a value to the wrong filter.
			seen := map[int]bool{}
			maxIndex := 0
			for _, m := range placeholderPattern.FindAllStringSubmatch(where, -1) {
				n, err := strconv.Atoi(m[1])
				if err != nil {
					return false
				}
				seen[n] = true
				if n > maxIndex {
					maxIndex = n
				}
			}

			if len(seen) != len(args) || maxIndex != len(args) {
				return false
			}
			for i := 1; i <= len(args); i++ {
				if !seen[i] {
					return false
				}
			}

			// No literal filter values may leak into the SQL text.
			if f.Search != "" && len(f.Search) > 2 && strings.Contains(where, f.Search) {
				return false
			}

			return true
		},
		genProductFilter(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestBuildProductWhere_Empty(t *testing.T) {
	where, args := buildProductWhere(ProductFilter{})

	assert.Equal(t, "WHERE 1=1", where)
	assert.Empty(t, args)
}

func TestBuildProductWhere_SearchReusesOneArgument(t *testing.T) {
	where, args := buildProductWhere(ProductFilter{Search: "iphone"})

	assert.Contains(t, where, "p.name ILIKE $1")
	assert.Contains(t, where, "p.code ILIKE $1")
	require.Len(t, args, 1)
	assert.Equal(t, "%iphone%", args[0])
}

func TestList_UnknownSortFallsBackToCreatedAt(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM products").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("ORDER BY p\\.created_at DESC").
		WithArgs(12, 0).
		WillReturnRows(sqlmock.NewRows(summaryColumns()))

	_, total, err := repo.List(context.Background(), ProductFilter{
		SortBy:   "price; DROP TABLE products",
		Page:     1,
		PageSize: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_StockSortMapsToColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM products").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("ORDER BY p\\.stock_quantity ASC").
		WithArgs(12, 0).
		WillReturnRows(sqlmock.NewRows(summaryColumns()))

	_, _, err = repo.List(context.Background(), ProductFilter{
		SortBy:    "stock",
		SortOrder: SortOrderAsc,
		Page:      1,
		PageSize:  12,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_ReturnsRowsAndTotal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)

	productID := uuid.New()
	brandID := uuid.New()
	categoryID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM products").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
	mock.ExpectQuery("FROM products p").
		WithArgs(12, 12).
		WillReturnRows(sqlmock.NewRows(summaryColumns()).AddRow(
			productID, "Phone X", "PHX-01", int64(19_990_000), nil, 7,
			true, brandID, categoryID, now, now,
			"Acme", "Phones", "https://img.example/phx.jpg",
		))

	products, total, err := repo.List(context.Background(), ProductFilter{Page: 2, PageSize: 12})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	require.Len(t, products, 1)
	assert.Equal(t, "Phone X", products[0].Name)
	assert.Equal(t, "Acme", products[0].BrandName)
	assert.Equal(t, int64(19_990_000), products[0].Price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)

	mock.ExpectExec("INSERT INTO products").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "products_code_key"})

	err = repo.Create(context.Background(), &domain.Product{
		ID:   uuid.New(),
		Name: "Phone X",
		Code: "PHX-01",
	})
	assert.ErrorIs(t, err, ErrProductCodeTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleActive_RoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	id := uuid.New()

	mock.ExpectQuery("SET is_active = NOT is_active").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(false))
	mock.ExpectQuery("SET is_active = NOT is_active").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))

	first, err := repo.ToggleActive(context.Background(), id)
	require.NoError(t, err)
	second, err := repo.ToggleActive(context.Background(), id)
	require.NoError(t, err)

	// Two toggles restore the original state.
	assert.False(t, first)
	assert.True(t, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleActive_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	id := uuid.New()

	mock.ExpectQuery("SET is_active = NOT is_active").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}))

	_, err = repo.ToggleActive(context.Background(), id)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestAddImage_PrimaryDemotesPrevious(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	productID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE product_images SET is_primary = FALSE").
		WithArgs(productID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO product_images").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.AddImage(context.Background(), &domain.ProductImage{
		ID:        uuid.New(),
		ProductID: productID,
		ImageURL:  "https://img.example/phx.jpg",
		IsPrimary: true,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func summaryColumns() []string {
	return []string{
		"id", "name", "code", "price", "original_price", "stock_quantity",
		"is_active", "brand_id", "category_id", "created_at", "updated_at",
		"brand_name", "category_name", "primary_image",
	}
}
