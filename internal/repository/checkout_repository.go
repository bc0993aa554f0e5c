package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"techstore-api/internal/domain"

	"github.com/google/uuid"
)

var ErrHandoffNotFound = errors.New("checkout handoff not found")

// CheckoutRepository stores single-use checkout handoff records. Take is
// destructive: the record is returned and deleted in one transaction, so a
// handoff can only ever be consumed once.
type CheckoutRepository interface {
	Put(ctx context.Context, handoff *domain.CheckoutHandoff) error
	Take(ctx context.Context, id, userID uuid.UUID) (*domain.CheckoutHandoff, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type checkoutRepository struct {
	db *sql.DB
}

// NewCheckoutRepository creates a new instance of CheckoutRepository
func NewCheckoutRepository(db *sql.DB) CheckoutRepository {
	return &checkoutRepository{db: db}
}

// Put stores a handoff record with its items serialized as JSONB
func (r *checkoutRepository) Put(ctx context.Context, handoff *domain.CheckoutHandoff) error {
	itemsJSON, err := json.Marshal(handoff.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal handoff items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO checkout_handoffs (id, user_id, items, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		handoff.ID,
		handoff.UserID,
		itemsJSON,
		handoff.ExpiresAt,
		handoff.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store checkout handoff: %w", err)
	}

	return nil
}

// Take reads and deletes a handoff in one statement. Expired, already
// consumed, or foreign records all surface as not found.
func (r *checkoutRepository) Take(ctx context.Context, id, userID uuid.UUID) (*domain.CheckoutHandoff, error) {
	handoff := &domain.CheckoutHandoff{}
	var itemsJSON []byte

	err := r.db.QueryRowContext(ctx, `
		DELETE FROM checkout_handoffs
		WHERE id = $1 AND user_id = $2 AND expires_at > NOW()
		RETURNING id, user_id, items, expires_at, created_at
	`, id, userID).Scan(
		&handoff.ID,
		&handoff.UserID,
		&itemsJSON,
		&handoff.ExpiresAt,
		&handoff.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrHandoffNotFound
		}
		return nil, fmt.Errorf("failed to take checkout handoff: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &handoff.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal handoff items: %w", err)
	}

	return handoff, nil
}

// DeleteExpired removes stale handoff records
func (r *checkoutRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM checkout_handoffs WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired handoffs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}
