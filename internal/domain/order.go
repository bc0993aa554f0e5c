package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the order lifecycle state. Paid, Failed and Cancelled are
// terminal; only pending orders transition.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentMethod selects how an order is settled.
type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "cod"
	PaymentMethodVNPay PaymentMethod = "vnpay"
)

// Order is the order header. Its item set is immutable once created; only
// Status changes afterwards.
type Order struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	UserID          uuid.UUID     `json:"user_id" db:"user_id"`
	ShippingAddress string        `json:"shipping_address" db:"shipping_address"`
	PhoneNumber     string        `json:"phone_number" db:"phone_number"`
	PaymentMethod   PaymentMethod `json:"payment_method" db:"payment_method"`
	Status          OrderStatus   `json:"status" db:"status"`
	Total           int64         `json:"total" db:"total"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
	Items           []OrderItem   `json:"items,omitempty"`
}

// OrderItem stores the product name and unit price as a snapshot taken at
// order creation, so later catalog edits never change historical orders.
type OrderItem struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OrderID     uuid.UUID `json:"order_id" db:"order_id"`
	ProductID   uuid.UUID `json:"product_id" db:"product_id"`
	ProductName string    `json:"product_name" db:"product_name"`
	UnitPrice   int64     `json:"unit_price" db:"unit_price"`
	Quantity    int       `json:"quantity" db:"quantity"`
}
