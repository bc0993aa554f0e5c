package service

import (
	"context"
	"testing"
	"time"

	"techstore-api/internal/domain"
	"techstore-api/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeProductRepo serves products from a map; write methods record calls.
type fakeProductRepo struct {
	products    map[uuid.UUID]*domain.Product
	deactivated []uuid.UUID
}

func newFakeProductRepo(products ...*domain.Product) *fakeProductRepo {
	repo := &fakeProductRepo{products: map[uuid.UUID]*domain.Product{}}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (f *fakeProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProductRepo) Create(ctx context.Context, product *domain.Product) error {
	f.products[product.ID] = product
	return nil
}

func (f *fakeProductRepo) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := f.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	f.products[product.ID] = product
	return nil
}

func (f *fakeProductRepo) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.ProductSummary, int, error) {
	return []*domain.ProductSummary{}, len(f.products), nil
}

func (f *fakeProductRepo) FindDetail(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error) {
	return nil, repository.ErrProductNotFound
}

func (f *fakeProductRepo) ToggleActive(ctx context.Context, id uuid.UUID) (bool, error) {
	p, ok := f.products[id]
	if !ok {
		return false, repository.ErrProductNotFound
	}
	p.IsActive = !p.IsActive
	return p.IsActive, nil
}

func (f *fakeProductRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	f.deactivated = append(f.deactivated, id)
	return nil
}

func (f *fakeProductRepo) AddImage(ctx context.Context, image *domain.ProductImage) error { return nil }
func (f *fakeProductRepo) UpdateImage(ctx context.Context, image *domain.ProductImage) error {
	return nil
}
func (f *fakeProductRepo) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error {
	return nil
}
func (f *fakeProductRepo) AddSpecification(ctx context.Context, spec *domain.ProductSpecification) error {
	return nil
}
func (f *fakeProductRepo) UpdateSpecification(ctx context.Context, spec *domain.ProductSpecification) error {
	return nil
}
func (f *fakeProductRepo) DeleteSpecification(ctx context.Context, productID, specID uuid.UUID) error {
	return nil
}

// fakeOrderRepo keeps created orders in memory and applies the same
// pending-only transition rule as the real repository.
type fakeOrderRepo struct {
	orders    map[uuid.UUID]*domain.Order
	createErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[uuid.UUID]*domain.Order{}}
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) UpdateStatusFromPending(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	order, ok := f.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if order.Status != domain.OrderStatusPending {
		return repository.ErrOrderNotPending
	}
	order.Status = status
	return nil
}

func (f *fakeOrderRepo) ExpirePending(ctx context.Context, method domain.PaymentMethod, olderThan time.Time) (int, error) {
	count := 0
	for _, order := range f.orders {
		if order.Status == domain.OrderStatusPending && order.PaymentMethod == method && order.CreatedAt.Before(olderThan) {
			order.Status = domain.OrderStatusCancelled
			count++
		}
	}
	return count, nil
}

func activeProduct(name string, price int64, stock int) *domain.Product {
	return &domain.Product{
		ID:            uuid.New(),
		Name:          name,
		Code:          name,
		Price:         price,
		StockQuantity: stock,
		IsActive:      true,
	}
}

func validInput(method domain.PaymentMethod, items ...PlaceOrderItem) PlaceOrderInput {
	return PlaceOrderInput{
		ShippingAddress: "12 Nguyen Hue, District 1",
		PhoneNumber:     "0912345678",
		PaymentMethod:   method,
		Items:           items,
	}
}

func newOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository) OrderService {
	return NewOrderService(orderRepo, productRepo, 30*time.Minute, zap.NewNop())
}

func TestPlaceOrder_TotalIsSumOfSnapshotLines(t *testing.T) {
	phone := activeProduct("Phone X", 19_990_000, 10)
	charger := activeProduct("Charger", 490_000, 10)
	productRepo := newFakeProductRepo(phone, charger)
	orderRepo := newFakeOrderRepo()
	svc := newOrderService(orderRepo, productRepo)

	order, err := svc.PlaceOrder(context.Background(), uuid.New(), validInput(
		domain.PaymentMethodCOD,
		PlaceOrderItem{ProductID: phone.ID, Quantity: 2},
		PlaceOrderItem{ProductID: charger.ID, Quantity: 1},
	))
	require.NoError(t, err)

	assert.Equal(t, int64(2*19_990_000+490_000), order.Total)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Phone X", order.Items[0].ProductName)
	assert.Equal(t, int64(19_990_000), order.Items[0].UnitPrice)
}

func TestPlaceOrder_SnapshotSurvivesPriceChange(t *testing.T) {
	phone := activeProduct("Phone X", 19_990_000, 10)
	productRepo := newFakeProductRepo(phone)
	orderRepo := newFakeOrderRepo()
	svc := newOrderService(orderRepo, productRepo)

	order, err := svc.PlaceOrder(context.Background(), uuid.New(), validInput(
		domain.PaymentMethodCOD,
		PlaceOrderItem{ProductID: phone.ID, Quantity: 1},
	))
	require.NoError(t, err)

	// A catalog edit after placement must not reach the stored order.
	phone.Price = 24_990_000
	phone.Name = "Phone X Pro"

	stored, err := orderRepo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(19_990_000), stored.Items[0].UnitPrice)
	assert.Equal(t, "Phone X", stored.Items[0].ProductName)
	assert.Equal(t, int64(19_990_000), stored.Total)
}

func TestPlaceOrder_Validation(t *testing.T) {
	phone := activeProduct("Phone X", 19_990_000, 10)
	svc := newOrderService(newFakeOrderRepo(), newFakeProductRepo(phone))
	userID := uuid.New()

	tests := []struct {
		name    string
		mutate  func(*PlaceOrderInput)
		wantErr error
	}{
		{"no items", func(in *PlaceOrderInput) { in.Items = nil }, ErrEmptyOrder},
		{"zero quantity", func(in *PlaceOrderInput) { in.Items[0].Quantity = 0 }, ErrInvalidQuantity},
		{"empty address", func(in *PlaceOrderInput) { in.ShippingAddress = "" }, ErrEmptyAddress},
		{"bad phone", func(in *PlaceOrderInput) { in.PhoneNumber = "12345" }, ErrInvalidPhone},
		{"foreign phone", func(in *PlaceOrderInput) { in.PhoneNumber = "+1555123456" }, ErrInvalidPhone},
		{"unknown method", func(in *PlaceOrderInput) { in.PaymentMethod = "paypal" }, ErrInvalidPaymentMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(domain.PaymentMethodCOD, PlaceOrderItem{ProductID: phone.ID, Quantity: 1})
			tt.mutate(&in)

			_, err := svc.PlaceOrder(context.Background(), userID, in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPlaceOrder_AcceptsPlus84Phones(t *testing.T) {
	phone := activeProduct("Phone X", 19_990_000, 10)
	svc := newOrderService(newFakeOrderRepo(), newFakeProductRepo(phone))

	in := validInput(domain.PaymentMethodVNPay, PlaceOrderItem{ProductID: phone.ID, Quantity: 1})
	in.PhoneNumber = "+84912345678"

	_, err := svc.PlaceOrder(context.Background(), uuid.New(), in)
	assert.NoError(t, err)
}

func TestPlaceOrder_InactiveProductRejected(t *testing.T) {
	phone := activeProduct("Phone X", 19_990_000, 10)
	phone.IsActive = false
	svc := newOrderService(newFakeOrderRepo(), newFakeProductRepo(phone))

	_, err := svc.PlaceOrder(context.Background(), uuid.New(), validInput(
		domain.PaymentMethodCOD,
		PlaceOrderItem{ProductID: phone.ID, Quantity: 1},
	))
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestPlaceOrder_MissingProductRejected(t *testing.T) {
	svc := newOrderService(newFakeOrderRepo(), newFakeProductRepo())

	_, err := svc.PlaceOrder(context.Background(), uuid.New(), validInput(
		domain.PaymentMethodCOD,
		PlaceOrderItem{ProductID: uuid.New(), Quantity: 1},
	))
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestPlaceOrder_InsufficientStockPropagates(t *testing.T) {
	phone := activeProduct("Phone X", 19_990_000, 1)
	orderRepo := newFakeOrderRepo()
	orderRepo.createErr = repository.ErrInsufficientStock
	svc := newOrderService(orderRepo, newFakeProductRepo(phone))

	_, err := svc.PlaceOrder(context.Background(), uuid.New(), validInput(
		domain.PaymentMethodCOD,
		PlaceOrderItem{ProductID: phone.ID, Quantity: 5},
	))
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
	assert.Empty(t, orderRepo.orders)
}

func TestConfirmCashOnDelivery(t *testing.T) {
	phone := activeProduct("Phone X", 19_990_000, 10)
	orderRepo := newFakeOrderRepo()
	svc := newOrderService(orderRepo, newFakeProductRepo(phone))
	userID := uuid.New()

	order, err := svc.PlaceOrder(context.Background(), userID, validInput(
		domain.PaymentMethodCOD,
		PlaceOrderItem{ProductID: phone.ID, Quantity: 1},
	))
	require.NoError(t, err)

	confirmed, err := svc.ConfirmCashOnDelivery(context.Background(), order.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, confirmed.Status)
	require.Len(t, confirmed.Items, 1)

	// A second confirmation hits the settled order.
	_, err = svc.ConfirmCashOnDelivery(context.Background(), order.ID, userID)
	assert.ErrorIs(t, err, repository.ErrOrderNotPending)
}

func TestConfirmCashOnDelivery_WrongOwner(t *testing.T) {
	phone := activeProduct("Phone X", 19_990_000, 10)
	orderRepo := newFakeOrderRepo()
	svc := newOrderService(orderRepo, newFakeProductRepo(phone))

	order, err := svc.PlaceOrder(context.Background(), uuid.New(), validInput(
		domain.PaymentMethodCOD,
		PlaceOrderItem{ProductID: phone.ID, Quantity: 1},
	))
	require.NoError(t, err)

	_, err = svc.ConfirmCashOnDelivery(context.Background(), order.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotOrderOwner)
}

func TestConfirmCashOnDelivery_RejectsGatewayOrders(t *testing.T) {
	phone := activeProduct("Phone X", 19_990_000, 10)
	orderRepo := newFakeOrderRepo()
	svc := newOrderService(orderRepo, newFakeProductRepo(phone))
	userID := uuid.New()

	order, err := svc.PlaceOrder(context.Background(), userID, validInput(
		domain.PaymentMethodVNPay,
		PlaceOrderItem{ProductID: phone.ID, Quantity: 1},
	))
	require.NoError(t, err)

	_, err = svc.ConfirmCashOnDelivery(context.Background(), order.ID, userID)
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestGetOrder_AdminBypassesOwnership(t *testing.T) {
	phone := activeProduct("Phone X", 19_990_000, 10)
	orderRepo := newFakeOrderRepo()
	svc := newOrderService(orderRepo, newFakeProductRepo(phone))

	order, err := svc.PlaceOrder(context.Background(), uuid.New(), validInput(
		domain.PaymentMethodCOD,
		PlaceOrderItem{ProductID: phone.ID, Quantity: 1},
	))
	require.NoError(t, err)

	_, err = svc.GetOrder(context.Background(), order.ID, uuid.New(), false)
	assert.ErrorIs(t, err, ErrNotOrderOwner)

	got, err := svc.GetOrder(context.Background(), order.ID, uuid.New(), true)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestMarkPaidAndMarkFailed_OnlyMovePendingOrders(t *testing.T) {
	phone := activeProduct("Phone X", 19_990_000, 10)
	orderRepo := newFakeOrderRepo()
	svc := newOrderService(orderRepo, newFakeProductRepo(phone))
	userID := uuid.New()

	order, err := svc.PlaceOrder(context.Background(), userID, validInput(
		domain.PaymentMethodVNPay,
		PlaceOrderItem{ProductID: phone.ID, Quantity: 1},
	))
	require.NoError(t, err)

	paid, err := svc.MarkPaid(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, paid.Status)

	// Terminal states are sticky.
	_, err = svc.MarkFailed(context.Background(), order.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotPending)
}

func TestExpirePendingOrders_OnlyStaleGatewayOrders(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	svc := newOrderService(orderRepo, newFakeProductRepo())

	stale := &domain.Order{
		ID: uuid.New(), PaymentMethod: domain.PaymentMethodVNPay,
		Status: domain.OrderStatusPending, CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	fresh := &domain.Order{
		ID: uuid.New(), PaymentMethod: domain.PaymentMethodVNPay,
		Status: domain.OrderStatusPending, CreatedAt: time.Now(),
	}
	staleCOD := &domain.Order{
		ID: uuid.New(), PaymentMethod: domain.PaymentMethodCOD,
		Status: domain.OrderStatusPending, CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	orderRepo.orders[stale.ID] = stale
	orderRepo.orders[fresh.ID] = fresh
	orderRepo.orders[staleCOD.ID] = staleCOD

	count, err := svc.ExpirePendingOrders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	assert.Equal(t, domain.OrderStatusCancelled, stale.Status)
	assert.Equal(t, domain.OrderStatusPending, fresh.Status)
	// COD orders never auto-expire.
	assert.Equal(t, domain.OrderStatusPending, staleCOD.Status)
}
