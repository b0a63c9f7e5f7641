package models

import "time"

type RestaurantStatus string

const (
	RestaurantActive    RestaurantStatus = "ACTIVE"
	RestaurantInactive  RestaurantStatus = "INACTIVE"
	RestaurantSuspended RestaurantStatus = "SUSPENDED"
)

// Restaurant is a read-only input to the order engine. Only ACTIVE
// restaurants accept orders; the owner identity drives authorization on
// status updates.
type Restaurant struct {
	ID      string           `gorm:"primaryKey;size:64" json:"id"`
	OwnerID string           `gorm:"size:64;index;not null" json:"owner_id"`
	Name    string           `gorm:"size:255;not null" json:"name"`
	Status  RestaurantStatus `gorm:"size:16;not null;default:'ACTIVE'" json:"status"`

	// ISO 4217 code; all order amounts are in this currency.
	Currency     string `gorm:"size:3;not null" json:"currency"`
	DeliveryFee  int64  `gorm:"not null;default:0" json:"delivery_fee"`
	MinimumOrder int64  `gorm:"not null;default:0" json:"minimum_order"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
