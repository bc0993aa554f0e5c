package domain

import (
	"time"

	"github.com/google/uuid"
)

// CheckoutHandoff is a single-use record carrying the cart lines a user
// selected for checkout. It replaces the ambient client-side handoff channel:
// the cart page writes it, the checkout page consumes it exactly once.
type CheckoutHandoff struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	UserID    uuid.UUID      `json:"user_id" db:"user_id"`
	Items     []CheckoutItem `json:"items"`
	ExpiresAt time.Time      `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// CheckoutItem is a cart line denormalized at selection time.
type CheckoutItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	ImageURL  string    `json:"image_url"`
	Quantity  int       `json:"quantity"`
}
