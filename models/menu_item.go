package models

import "time"

// MenuItem is owned by the catalog subsystem; the order engine only reads
// it as an immutable snapshot source at order-creation time.

type MenuAvailability string

const (
	MenuAvailable  MenuAvailability = "AVAILABLE"
	MenuOutOfStock MenuAvailability = "OUT_OF_STOCK"
	MenuPaused     MenuAvailability = "PAUSED"
)

type MenuOptionChoice struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PriceModifier int64  `json:"price_modifier"`
}

type MenuOption struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Choices []MenuOptionChoice `json:"choices"`
}

type MenuAddon struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type MenuItem struct {
	ID           string `gorm:"primaryKey;size:64" json:"id"`
	RestaurantID string `gorm:"size:64;index;not null" json:"restaurant_id"`
	Name         string `gorm:"size:255;not null" json:"name"`

	Price int64 `gorm:"not null" json:"price"`
	// DiscountPrice, when set, is the effective starting price.
	DiscountPrice *int64 `json:"discount_price,omitempty"`

	Availability    MenuAvailability `gorm:"size:16;not null;default:'AVAILABLE'" json:"availability"`
	PrepTimeMinutes int              `gorm:"not null;default:0" json:"prep_time_minutes"`

	Options []MenuOption `gorm:"serializer:json" json:"options,omitempty"`
	Addons  []MenuAddon  `gorm:"serializer:json" json:"addons,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// FindOption returns the option definition with the given id, if any.
func (m *MenuItem) FindOption(optionID string) (MenuOption, bool) {
	for _, opt := range m.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return MenuOption{}, false
}

// FindChoice returns the choice with the given id within an option.
func (o MenuOption) FindChoice(choiceID string) (MenuOptionChoice, bool) {
	for _, ch := range o.Choices {
		if ch.ID == choiceID {
			return ch, true
		}
	}
	return MenuOptionChoice{}, false
}

// FindAddon returns the addon definition with the given id, if any.
func (m *MenuItem) FindAddon(addonID string) (MenuAddon, bool) {
	for _, ad := range m.Addons {
		if ad.ID == addonID {
			return ad, true
		}
	}
	return MenuAddon{}, false
}

// StartingPrice is the discount price when present, else the list price.
func (m *MenuItem) StartingPrice() int64 {
	if m.DiscountPrice != nil {
		return *m.DiscountPrice
	}
	return m.Price
}
