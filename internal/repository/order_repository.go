package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"techstore-api/internal/domain"
	"techstore-api/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotPending   = errors.New("order is not pending")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateStatusFromPending(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
	ExpirePending(ctx context.Context, method domain.PaymentMethod, olderThan time.Time) (int, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts the order header, its items and the matching stock
// decrements as one transaction. The decrement is conditional on remaining
// stock; a miss rolls the whole order back with ErrInsufficientStock, so a
// header-only order can never be observed.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("order_id", order.ID.String()),
		zap.Int("item_count", len(order.Items)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				log.Error("Failed to rollback order transaction", zap.Error(rbErr))
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, shipping_address, phone_number,
			payment_method, status, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		order.ID,
		order.UserID,
		order.ShippingAddress,
		order.PhoneNumber,
		order.PaymentMethod,
		order.Status,
		order.Total,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			item.ID,
			order.ID,
			item.ProductID,
			item.ProductName,
			item.UnitPrice,
			item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}

		// Conditional decrement guards against overselling under concurrent
		// orders: 0 affected rows means another order got the stock first.
		result, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity - $1, updated_at = NOW()
			WHERE id = $2 AND stock_quantity >= $1
		`, item.Quantity, item.ProductID)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			log.Warn("Out of stock during order placement",
				zap.String("product_id", item.ProductID.String()),
				zap.Int("quantity", item.Quantity),
			)
			return ErrInsufficientStock
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order transaction: %w", err)
	}
	committed = true

	log.Info("Order created", zap.Int64("total", order.Total))
	return nil
}

// FindByID retrieves an order with its items
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order := &domain.Order{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, shipping_address, phone_number, payment_method,
		       status, total, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID,
		&order.UserID,
		&order.ShippingAddress,
		&order.PhoneNumber,
		&order.PaymentMethod,
		&order.Status,
		&order.Total,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, unit_price, quantity
		FROM order_items
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.UnitPrice, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return order, nil
}

// UpdateStatusFromPending moves an order out of pending. The condition makes
// terminal states sticky: confirming an already settled order is a conflict,
// not a second transition.
func (r *orderRepository) UpdateStatusFromPending(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish a missing order from a non-pending one.
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			return ErrOrderNotFound
		}
		return ErrOrderNotPending
	}

	return nil
}

// ExpirePending cancels pending orders of the given payment method older than
// the cutoff, restoring their stock in the same transaction. Returns the
// number of orders cancelled.
func (r *orderRepository) ExpirePending(ctx context.Context, method domain.PaymentMethod, olderThan time.Time) (int, error) {
	log := logger.FromCtx(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM orders
		WHERE status = 'pending' AND payment_method = $1 AND created_at < $2
		FOR UPDATE
	`, method, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to select expired orders: %w", err)
	}

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan expired order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("error iterating expired orders: %w", err)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `
			UPDATE products p
			SET stock_quantity = p.stock_quantity + oi.quantity, updated_at = NOW()
			FROM order_items oi
			WHERE oi.order_id = $1 AND oi.product_id = p.id
		`, id); err != nil {
			return 0, fmt.Errorf("failed to restore stock for expired order: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET status = 'cancelled', updated_at = NOW() WHERE id = $1
		`, id); err != nil {
			return 0, fmt.Errorf("failed to cancel expired order: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit expiry transaction: %w", err)
	}
	committed = true

	if len(ids) > 0 {
		log.Info("Expired pending orders", zap.Int("count", len(ids)))
	}
	return len(ids), nil
}
