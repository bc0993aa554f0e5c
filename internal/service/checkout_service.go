package service

import (
	"context"
	"errors"
	"time"

	"techstore-api/internal/domain"
	"techstore-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandoffTTL bounds how long a checkout handoff may sit unconsumed.
const HandoffTTL = 15 * time.Minute

var ErrEmptyHandoff = errors.New("handoff must contain at least one item")

// CheckoutService manages the single-use handoff between the cart view and
// the checkout view.
type CheckoutService interface {
	CreateHandoff(ctx context.Context, userID uuid.UUID, items []domain.CheckoutItem) (*domain.CheckoutHandoff, error)
	// ConsumeHandoff returns the handoff and deletes it; a second read of the
	// same id fails with repository.ErrHandoffNotFound.
	ConsumeHandoff(ctx context.Context, id, userID uuid.UUID) (*domain.CheckoutHandoff, error)
	// PurgeExpired deletes handoffs whose TTL has elapsed. Take already
	// filters them out; this keeps the table from accumulating dead rows.
	PurgeExpired(ctx context.Context) (int, error)
	// RunPurgeWorker periodically purges expired handoffs until ctx is done.
	RunPurgeWorker(ctx context.Context, interval time.Duration)
}

type checkoutService struct {
	checkoutRepo repository.CheckoutRepository
	logger       *zap.Logger
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(checkoutRepo repository.CheckoutRepository, logger *zap.Logger) CheckoutService {
	return &checkoutService{checkoutRepo: checkoutRepo, logger: logger}
}

func (s *checkoutService) CreateHandoff(ctx context.Context, userID uuid.UUID, items []domain.CheckoutItem) (*domain.CheckoutHandoff, error) {
	if len(items) == 0 {
		return nil, ErrEmptyHandoff
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	now := time.Now()
	handoff := &domain.CheckoutHandoff{
		ID:        uuid.New(),
		UserID:    userID,
		Items:     items,
		ExpiresAt: now.Add(HandoffTTL),
		CreatedAt: now,
	}

	if err := s.checkoutRepo.Put(ctx, handoff); err != nil {
		return nil, err
	}
	return handoff, nil
}

func (s *checkoutService) ConsumeHandoff(ctx context.Context, id, userID uuid.UUID) (*domain.CheckoutHandoff, error) {
	return s.checkoutRepo.Take(ctx, id, userID)
}

func (s *checkoutService) PurgeExpired(ctx context.Context) (int, error) {
	return s.checkoutRepo.DeleteExpired(ctx, time.Now())
}

func (s *checkoutService) RunPurgeWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Checkout handoff purge worker started",
		zap.Duration("interval", interval),
		zap.Duration("handoff_ttl", HandoffTTL),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Checkout handoff purge worker stopped")
			return
		case <-ticker.C:
			count, err := s.PurgeExpired(ctx)
			if err != nil {
				s.logger.Error("Failed to purge expired handoffs", zap.Error(err))
				continue
			}
			if count > 0 {
				s.logger.Info("Purged expired checkout handoffs", zap.Int("count", count))
			}
		}
	}
}
