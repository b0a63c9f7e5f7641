package models

import (
	"time"
)

type OrderType string

const (
	OrderTypeDelivery OrderType = "DELIVERY"
	OrderTypePickup   OrderType = "PICKUP"
	OrderTypeDineIn   OrderType = "DINE_IN"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDelivery, OrderTypePickup, OrderTypeDineIn:
		return true
	}
	return false
}

// PaymentStatus is a lifecycle of its own, orthogonal to the order status.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
	PaymentFailed   PaymentStatus = "FAILED"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentRefunded, PaymentFailed:
		return true
	}
	return false
}

// DeliveryAddress is stored as a JSON column on the order. Required iff
// the order type is DELIVERY.
type DeliveryAddress struct {
	Street     string  `json:"street" binding:"required"`
	City       string  `json:"city" binding:"required"`
	State      string  `json:"state,omitempty"`
	Country    string  `json:"country" binding:"required"`
	PostalCode string  `json:"postal_code,omitempty"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
}

// Order is the central aggregate. Monetary fields are int64 minor
// currency units, fixed at creation time; item snapshots never change
// after creation. Orders are never deleted: cancellation is a terminal
// status, not a removal.
type Order struct {
	ID          string `gorm:"primaryKey;size:32" json:"id"`
	OrderNumber string `gorm:"size:24;uniqueIndex;not null" json:"order_number"`

	CustomerID   string  `gorm:"size:64;index;not null" json:"customer_id"`
	RestaurantID string  `gorm:"size:64;index;not null" json:"restaurant_id"`
	DriverID     *string `gorm:"size:64;index" json:"driver_id,omitempty"`

	Type          OrderType     `gorm:"size:16;not null" json:"type"`
	Status        OrderStatus   `gorm:"size:24;not null;default:'PENDING'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"size:16;not null;default:'PENDING'" json:"payment_status"`

	Currency    string `gorm:"size:3;not null" json:"currency"`
	Subtotal    int64  `gorm:"not null;default:0" json:"subtotal"`
	ServiceFee  int64  `gorm:"not null;default:0" json:"service_fee"`
	Tax         int64  `gorm:"not null;default:0" json:"tax"`
	DeliveryFee int64  `gorm:"not null;default:0" json:"delivery_fee"`
	Tip         int64  `gorm:"not null;default:0" json:"tip"`
	Discount    int64  `gorm:"not null;default:0" json:"discount"`
	Total       int64  `gorm:"not null;default:0" json:"total"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`

	DeliveryAddress      *DeliveryAddress `gorm:"serializer:json" json:"delivery_address,omitempty"`
	DeliveryInstructions string           `gorm:"type:text" json:"delivery_instructions,omitempty"`
	Notes                string           `gorm:"type:text" json:"notes,omitempty"`
	CancellationReason   string           `gorm:"size:500" json:"cancellation_reason,omitempty"`

	// Estimated values in minutes; actuals derived from timestamp deltas.
	EstimatedPrepTime     int  `gorm:"not null;default:0" json:"estimated_prep_time"`
	ActualPrepTime        *int `json:"actual_prep_time,omitempty"`
	EstimatedDeliveryTime *int `json:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *int `json:"actual_delivery_time,omitempty"`

	// Each set at most once, by the matching status transition.
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	PreparingAt *time.Time `json:"preparing_at,omitempty"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
