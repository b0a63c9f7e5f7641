package models

import (
	"time"
)

// SelectedOption freezes one option choice at order time: name, choice
// and price modifier are copied from the menu, never re-read.
type SelectedOption struct {
	OptionID      string `json:"option_id"`
	OptionName    string `json:"option_name"`
	ChoiceID      string `json:"choice_id"`
	ChoiceName    string `json:"choice_name"`
	PriceModifier int64  `json:"price_modifier"`
}

type SelectedAddon struct {
	AddonID string `json:"addon_id"`
	Name    string `json:"name"`
	Price   int64  `json:"price"`
}

// OrderItem is one line of an order. It references a menu item by id but
// embeds the frozen name and prices captured at creation, so later menu
// edits never alter past orders.
type OrderItem struct {
	ID         string `gorm:"primaryKey;size:32" json:"id"`
	OrderID    string `gorm:"size:32;index;not null" json:"order_id"`
	MenuItemID string `gorm:"size:64;not null" json:"menu_item_id"`

	Name      string `gorm:"size:255;not null" json:"name"`
	UnitPrice int64  `gorm:"not null" json:"unit_price"`
	Quantity  int    `gorm:"not null" json:"quantity"`
	// TotalPrice = UnitPrice * Quantity, stored denormalised so pricing
	// inputs survive menu changes.
	TotalPrice int64 `gorm:"not null" json:"total_price"`

	Options []SelectedOption `gorm:"serializer:json" json:"options,omitempty"`
	Addons  []SelectedAddon  `gorm:"serializer:json" json:"addons,omitempty"`

	SpecialInstructions string `gorm:"size:500" json:"special_instructions,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
