package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"techstore-api/internal/domain"
	"techstore-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyOrder           = errors.New("order must contain at least one item")
	ErrInvalidQuantity      = errors.New("item quantity must be at least 1")
	ErrEmptyAddress         = errors.New("shipping address is required")
	ErrInvalidPhone         = errors.New("phone number is invalid")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
	ErrProductUnavailable   = errors.New("product is unavailable")
	ErrNotOrderOwner        = errors.New("order belongs to another user")
)

// Vietnamese mobile numbers: local 0- or +84-prefixed, 9-10 digits after the
// prefix.
var phonePattern = regexp.MustCompile(`^(0|\+84)[0-9]{9,10}$`)

// PlaceOrderItem is one requested line of a new order.
type PlaceOrderItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceOrderInput carries the checkout form fields.
type PlaceOrderInput struct {
	ShippingAddress string
	PhoneNumber     string
	PaymentMethod   domain.PaymentMethod
	Items           []PlaceOrderItem
}

// OrderService defines the interface for order business logic
type OrderService interface {
	// PlaceOrder validates the input, snapshots current product prices into
	// order items and creates the order atomically. The cart is not touched.
	PlaceOrder(ctx context.Context, userID uuid.UUID, in PlaceOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID, userID uuid.UUID, isAdmin bool) (*domain.Order, error)
	// ConfirmCashOnDelivery marks a COD order paid immediately. The returned
	// order carries the items whose cart lines the client should now remove.
	ConfirmCashOnDelivery(ctx context.Context, orderID, userID uuid.UUID) (*domain.Order, error)
	// MarkPaid and MarkFailed are the gateway callbacks; both only move
	// orders out of pending.
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	// ExpirePendingOrders cancels gateway orders stuck in pending beyond the
	// configured age and restores their stock.
	ExpirePendingOrders(ctx context.Context) (int, error)
	// RunExpiryWorker loops ExpirePendingOrders on a ticker until ctx ends.
	RunExpiryWorker(ctx context.Context, interval time.Duration)
}

type orderService struct {
	orderRepo     repository.OrderRepository
	productRepo   repository.ProductRepository
	pendingExpiry time.Duration
	logger        *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	pendingExpiry time.Duration,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:     orderRepo,
		productRepo:   productRepo,
		pendingExpiry: pendingExpiry,
		logger:        logger,
	}
}

func (s *orderService) PlaceOrder(ctx context.Context, userID uuid.UUID, in PlaceOrderInput) (*domain.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if in.ShippingAddress == "" {
		return nil, ErrEmptyAddress
	}
	if !phonePattern.MatchString(in.PhoneNumber) {
		return nil, ErrInvalidPhone
	}
	if in.PaymentMethod != domain.PaymentMethodCOD && in.PaymentMethod != domain.PaymentMethodVNPay {
		return nil, ErrInvalidPaymentMethod
	}

	now := time.Now()
	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          userID,
		ShippingAddress: in.ShippingAddress,
		PhoneNumber:     in.PhoneNumber,
		PaymentMethod:   in.PaymentMethod,
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, item := range in.Items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}

		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			if err == repository.ErrProductNotFound {
				return nil, ErrProductUnavailable
			}
			return nil, fmt.Errorf("failed to load product: %w", err)
		}
		if !product.IsActive {
			return nil, ErrProductUnavailable
		}

		// Price and name are snapshotted here; later catalog edits must not
		// affect this order.
		order.Items = append(order.Items, domain.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    item.Quantity,
		})
		order.Total += product.Price * int64(item.Quantity)
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID, userID uuid.UUID, isAdmin bool) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, ErrNotOrderOwner
	}
	return order, nil
}

func (s *orderService) ConfirmCashOnDelivery(ctx context.Context, orderID, userID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotOrderOwner
	}
	if order.PaymentMethod != domain.PaymentMethodCOD {
		return nil, ErrInvalidPaymentMethod
	}

	// The paid update happens before any cart cleanup the caller performs;
	// losing the cleanup is recoverable from order history, losing the paid
	// mark is not.
	if err := s.orderRepo.UpdateStatusFromPending(ctx, orderID, domain.OrderStatusPaid); err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatusPaid
	return order, nil
}

func (s *orderService) MarkPaid(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	if err := s.orderRepo.UpdateStatusFromPending(ctx, orderID, domain.OrderStatusPaid); err != nil {
		return nil, err
	}
	return s.orderRepo.FindByID(ctx, orderID)
}

func (s *orderService) MarkFailed(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	if err := s.orderRepo.UpdateStatusFromPending(ctx, orderID, domain.OrderStatusFailed); err != nil {
		return nil, err
	}
	return s.orderRepo.FindByID(ctx, orderID)
}

func (s *orderService) ExpirePendingOrders(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.pendingExpiry)
	return s.orderRepo.ExpirePending(ctx, domain.PaymentMethodVNPay, cutoff)
}

func (s *orderService) RunExpiryWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Pending-order expiry worker started",
		zap.Duration("interval", interval),
		zap.Duration("pending_expiry", s.pendingExpiry),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Pending-order expiry worker stopped")
			return
		case <-ticker.C:
			count, err := s.ExpirePendingOrders(ctx)
			if err != nil {
				s.logger.Error("Failed to expire pending orders", zap.Error(err))
				continue
			}
			if count > 0 {
				s.logger.Info("Cancelled stale pending orders", zap.Int("count", count))
			}
		}
	}
}
