package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chopdirect/order-engine/models"
	"github.com/chopdirect/order-engine/utils"
)

// RequestedItem is one line of a create-order request, as submitted by
// the client.
type RequestedItem struct {
	MenuItemID          string            `json:"menu_item_id" binding:"required"`
	Quantity            int               `json:"quantity" binding:"required,min=1"`
	Options             []RequestedOption `json:"options,omitempty" binding:"dive"`
	Addons              []RequestedAddon  `json:"addons,omitempty" binding:"dive"`
	SpecialInstructions string            `json:"special_instructions,omitempty" binding:"max=500"`
}

type RequestedOption struct {
	OptionID string `json:"option_id" binding:"required"`
	ChoiceID string `json:"choice_id" binding:"required"`
}

type RequestedAddon struct {
	AddonID string `json:"addon_id" binding:"required"`
}

// SnapshotResolver turns requested line items into frozen order-item
// snapshots priced from the current menu. Pure transformation over the
// fetched menu rows; it writes nothing.
type SnapshotResolver struct {
	db *gorm.DB
	// blocking decides which availability states reject the whole order.
	// OUT_OF_STOCK always blocks.
	blocking map[models.MenuAvailability]bool
}

func NewSnapshotResolver(db *gorm.DB) *SnapshotResolver {
	return &SnapshotResolver{
		db: db,
		blocking: map[models.MenuAvailability]bool{
			models.MenuOutOfStock: true,
		},
	}
}

// Resolve fetches all referenced menu items for the restaurant in one
// batch, validates them, and returns frozen order items plus the menu
// rows they were priced from (the caller needs prep times).
func (r *SnapshotResolver) Resolve(ctx context.Context, restaurantID string, requested []RequestedItem) ([]models.OrderItem, []models.MenuItem, error) {
	ids := make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, item := range requested {
		if !seen[item.MenuItemID] {
			seen[item.MenuItemID] = true
			ids = append(ids, item.MenuItemID)
		}
	}

	var menuItems []models.MenuItem
	if err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND id IN ?", restaurantID, ids).
		Find(&menuItems).Error; err != nil {
		return nil, nil, ErrUnavailable(err)
	}

	// A count mismatch covers: unknown item, item of another restaurant.
	if len(menuItems) != len(ids) {
		return nil, nil, ErrInvalidItems()
	}

	byID := make(map[string]*models.MenuItem, len(menuItems))
	var outOfStock []string
	for i := range menuItems {
		m := &menuItems[i]
		byID[m.ID] = m
		if r.blocking[m.Availability] {
			outOfStock = append(outOfStock, m.Name)
		}
	}
	if len(outOfStock) > 0 {
		return nil, nil, ErrItemsOutOfStock(outOfStock)
	}

	now := time.Now().UTC()
	orderItems := make([]models.OrderItem, 0, len(requested))
	for _, req := range requested {
		menu := byID[req.MenuItemID]

		unitPrice := menu.StartingPrice()
		var selectedOptions []models.SelectedOption
		for _, sel := range req.Options {
			opt, ok := menu.FindOption(sel.OptionID)
			if !ok {
				// Stale option id: the menu changed between render and
				// submission. The selection is dropped instead of
				// failing the whole order.
				continue
			}
			choice, ok := opt.FindChoice(sel.ChoiceID)
			if !ok {
				continue
			}
			unitPrice += choice.PriceModifier
			selectedOptions = append(selectedOptions, models.SelectedOption{
				OptionID:      opt.ID,
				OptionName:    opt.Name,
				ChoiceID:      choice.ID,
				ChoiceName:    choice.Name,
				PriceModifier: choice.PriceModifier,
			})
		}

		var selectedAddons []models.SelectedAddon
		for _, sel := range req.Addons {
			addon, ok := menu.FindAddon(sel.AddonID)
			if !ok {
				// Same leniency as options.
				continue
			}
			unitPrice += addon.Price
			selectedAddons = append(selectedAddons, models.SelectedAddon{
				AddonID: addon.ID,
				Name:    addon.Name,
				Price:   addon.Price,
			})
		}

		orderItems = append(orderItems, models.OrderItem{
			ID:                  utils.NewOrderItemID(),
			MenuItemID:          menu.ID,
			Name:                menu.Name,
			UnitPrice:           unitPrice,
			Quantity:            req.Quantity,
			TotalPrice:          unitPrice * int64(req.Quantity),
			Options:             selectedOptions,
			Addons:              selectedAddons,
			SpecialInstructions: req.SpecialInstructions,
			CreatedAt:           now,
		})
	}

	return orderItems, menuItems, nil
}
