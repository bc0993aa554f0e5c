package service

import (
	"context"
	"testing"

	"techstore-api/internal/domain"
	"techstore-api/internal/repository"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagingProductRepo records the filter List was called with and reports a
// fixed total.
type pagingProductRepo struct {
	fakeProductRepo
	total      int
	lastFilter repository.ProductFilter
}

func (f *pagingProductRepo) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.ProductSummary, int, error) {
	f.lastFilter = filter
	return nil, f.total, nil
}

func TestListProducts_NormalizesPageAndSize(t *testing.T) {
	repo := &pagingProductRepo{total: 30}
	svc := NewCatalogService(repo)

	_, page, err := svc.ListProducts(context.Background(), repository.ProductFilter{Page: 0, PageSize: 0})
	require.NoError(t, err)

	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageSize, page.Limit)
	assert.Equal(t, 30, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 1, repo.lastFilter.Page)
	assert.Equal(t, DefaultPageSize, repo.lastFilter.PageSize)
}

func TestListProducts_CapsPageSize(t *testing.T) {
	repo := &pagingProductRepo{total: 5}
	svc := NewCatalogService(repo)

	_, page, err := svc.ListProducts(context.Background(), repository.ProductFilter{Page: 1, PageSize: 5000})
	require.NoError(t, err)

	assert.Equal(t, MaxPageSize, page.Limit)
	assert.Equal(t, MaxPageSize, repo.lastFilter.PageSize)
}

func TestProperty_TotalPagesCoversTotal(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("totalPages * limit always covers total", prop.ForAll(
		func(total int, pageSize int) bool {
			repo := &pagingProductRepo{total: total}
			svc := NewCatalogService(repo)

			_, page, err := svc.ListProducts(context.Background(), repository.ProductFilter{
				Page:     1,
				PageSize: pageSize,
			})
			if err != nil {
				return false
			}

			if page.TotalPages*page.Limit < page.Total {
				return false
			}
			// And never overshoots by a full page.
			if page.Total > 0 && (page.TotalPages-1)*page.Limit >= page.Total {
				return false
			}
			if page.Total == 0 && page.TotalPages != 0 {
				return false
			}
			return true
		},
		gen.IntRange(0, 10_000),
		gen.IntRange(1, 200),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCreateProduct_RejectsNegativePrice(t *testing.T) {
	svc := NewCatalogService(newFakeProductRepo())

	_, err := svc.CreateProduct(context.Background(), ProductInput{
		Name:  "Phone X",
		Code:  "PHX-01",
		Price: -1,
	})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestCreateProduct_NewProductsAreActive(t *testing.T) {
	repo := newFakeProductRepo()
	svc := NewCatalogService(repo)

	product, err := svc.CreateProduct(context.Background(), ProductInput{
		Name:  "Phone X",
		Code:  "PHX-01",
		Price: 19_990_000,
	})
	require.NoError(t, err)
	assert.True(t, product.IsActive)
	assert.NotEqual(t, "", product.ID.String())
}

func TestDeleteProduct_Deactivates(t *testing.T) {
	repo := newFakeProductRepo()
	svc := NewCatalogService(repo)

	product, err := svc.CreateProduct(context.Background(), ProductInput{
		Name:  "Phone X",
		Code:  "PHX-01",
		Price: 19_990_000,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(context.Background(), product.ID))
	require.Len(t, repo.deactivated, 1)
	assert.Equal(t, product.ID, repo.deactivated[0])
}
