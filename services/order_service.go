package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chopdirect/order-engine/models"
	"github.com/chopdirect/order-engine/utils"
)

// OrderService orchestrates the order lifecycle: validation, menu
// snapshot resolution, pricing, transactional persistence and lifecycle
// events. It holds no mutable state of its own; every dependency is
// injected at construction.
type OrderService struct {
	db        *gorm.DB
	resolver  *SnapshotResolver
	publisher EventPublisher
	// cache is used only for invalidation side effects; it may be nil.
	cache *redis.Client
}

func NewOrderService(db *gorm.DB, resolver *SnapshotResolver, publisher EventPublisher, cache *redis.Client) *OrderService {
	return &OrderService{
		db:        db,
		resolver:  resolver,
		publisher: publisher,
		cache:     cache,
	}
}

type CreateOrderRequest struct {
	RestaurantID         string                  `json:"restaurant_id" binding:"required"`
	Type                 models.OrderType        `json:"type" binding:"required"`
	Items                []RequestedItem         `json:"items" binding:"required,min=1,dive"`
	Tip                  int64                   `json:"tip" binding:"min=0"`
	Discount             int64                   `json:"discount" binding:"min=0"`
	DeliveryAddress      *models.DeliveryAddress `json:"delivery_address,omitempty"`
	DeliveryInstructions string                  `json:"delivery_instructions,omitempty"`
}

// CreateOrder validates the request, freezes a menu snapshot, prices the
// order and persists it with status PENDING in a single atomic write.
// The order.created event is attempted after the commit; a publish
// failure never rolls the order back.
func (s *OrderService) CreateOrder(ctx context.Context, customerID string, req CreateOrderRequest) (*models.Order, error) {
	if !req.Type.Valid() {
		return nil, ErrValidation("unknown order type")
	}
	if req.Type == models.OrderTypeDelivery && req.DeliveryAddress == nil {
		return nil, ErrValidation("delivery orders require a delivery address")
	}

	var restaurant models.Restaurant
	if err := s.db.WithContext(ctx).First(&restaurant, "id = ?", req.RestaurantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("restaurant")
		}
		return nil, ErrUnavailable(err)
	}
	if restaurant.Status != models.RestaurantActive {
		return nil, ErrRestaurantUnavailable()
	}

	orderItems, menuItems, err := s.resolver.Resolve(ctx, restaurant.ID, req.Items)
	if err != nil {
		return nil, err
	}

	itemTotals := make([]int64, len(orderItems))
	for i, item := range orderItems {
		itemTotals[i] = item.TotalPrice
	}

	deliveryFee := int64(0)
	if req.Type == models.OrderTypeDelivery {
		deliveryFee = restaurant.DeliveryFee
	}

	totals := ComputeTotals(itemTotals, PricingOptions{
		Currency:    restaurant.Currency,
		DeliveryFee: deliveryFee,
		Tip:         req.Tip,
		Discount:    req.Discount,
	})

	if totals.Subtotal < restaurant.MinimumOrder {
		return nil, ErrBelowMinimum(restaurant.MinimumOrder, restaurant.Currency)
	}

	now := time.Now().UTC()
	orderNumber, err := utils.NewOrderNumber(now)
	if err != nil {
		return nil, ErrUnavailable(err)
	}

	order := models.Order{
		ID:                   utils.NewOrderID(),
		OrderNumber:          orderNumber,
		CustomerID:           customerID,
		RestaurantID:         restaurant.ID,
		Type:                 req.Type,
		Status:               models.StatusPending,
		PaymentStatus:        models.PaymentPending,
		Currency:             restaurant.Currency,
		Subtotal:             totals.Subtotal,
		ServiceFee:           totals.ServiceFee,
		Tax:                  totals.Tax,
		DeliveryFee:          totals.DeliveryFee,
		Tip:                  totals.Tip,
		Discount:             totals.Discount,
		Total:                totals.Total,
		DeliveryAddress:      req.DeliveryAddress,
		DeliveryInstructions: req.DeliveryInstructions,
		EstimatedPrepTime:    estimatePrepTime(menuItems, len(req.Items)),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	for i := range orderItems {
		orderItems[i].OrderID = order.ID
	}
	order.Items = orderItems

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&order).Error
	}); err != nil {
		return nil, ErrUnavailable(err)
	}

	evt := NewOrderEvent(&order)
	evt.Total = order.Total
	evt.Currency = order.Currency
	s.publish(ctx, EventOrderCreated, evt)

	s.invalidateActiveOrders(ctx, order.RestaurantID, order.CustomerID)

	return &order, nil
}

// estimatePrepTime takes the slowest menu item and adds 5 minutes for
// every 3 line items beyond the first three: a wider order slows the
// kitchen even when each dish is quick.
func estimatePrepTime(menuItems []models.MenuItem, lineItems int) int {
	base := 0
	for _, m := range menuItems {
		if m.PrepTimeMinutes > base {
			base = m.PrepTimeMinutes
		}
	}
	extra := 0
	if lineItems > 3 {
		extra = ((lineItems - 3 + 2) / 3) * 5
	}
	return base + extra
}

// UpdateStatus moves an order along the state machine. The transition is
// validated against the row read under lock in the same transaction as
// the write, so two concurrent updates cannot both succeed from a stale
// status.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, callerID string, next models.OrderStatus, note string, estimatedTime *int) (*models.Order, error) {
	if !next.Valid() {
		return nil, ErrValidation("unknown order status")
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockedOrder(tx, orderID, &order); err != nil {
			return err
		}

		var restaurant models.Restaurant
		if err := tx.First(&restaurant, "id = ?", order.RestaurantID).Error; err != nil {
			return ErrUnavailable(err)
		}

		isOwner := callerID == restaurant.OwnerID
		isDriver := order.DriverID != nil && *order.DriverID == callerID
		if !isOwner && !isDriver {
			return ErrForbidden()
		}

		if err := order.ApplyTransition(next, time.Now().UTC()); err != nil {
			if errors.Is(err, models.ErrMissingTimestamp) {
				return ErrInconsistentState(err.Error())
			}
			return ErrInvalidTransition(string(order.Status), string(next))
		}

		if next == models.StatusConfirmed && estimatedTime != nil {
			order.EstimatedPrepTime = *estimatedTime
		}
		if note != "" {
			order.Notes = note
		}

		return tx.Omit(clause.Associations).Save(&order).Error
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	evt := NewOrderEvent(&order)
	evt.Status = string(order.Status)
	s.publish(ctx, StatusEventKey(order.Status), evt)

	if order.Status == models.StatusCancelled && order.PaymentStatus == models.PaymentPaid {
		s.publishRefundRequest(ctx, &order)
	}

	s.invalidateActiveOrders(ctx, order.RestaurantID, order.CustomerID)

	return &order, nil
}

// CancelOrder cancels an order on behalf of the customer or the
// restaurant owner. Only PENDING and CONFIRMED orders can be cancelled;
// paid orders additionally emit a refund request for the external refund
// processor.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, callerID, reason string) (*models.Order, error) {
	if reason == "" {
		return nil, ErrValidation("cancellation reason is required")
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockedOrder(tx, orderID, &order); err != nil {
			return err
		}

		var restaurant models.Restaurant
		if err := tx.First(&restaurant, "id = ?", order.RestaurantID).Error; err != nil {
			return ErrUnavailable(err)
		}

		if callerID != order.CustomerID && callerID != restaurant.OwnerID {
			return ErrForbidden()
		}

		if !order.Status.CanCancel() {
			return ErrCannotCancel(string(order.Status))
		}

		if err := order.ApplyTransition(models.StatusCancelled, time.Now().UTC()); err != nil {
			return ErrInvalidTransition(string(order.Status), string(models.StatusCancelled))
		}
		order.CancellationReason = reason

		return tx.Omit(clause.Associations).Save(&order).Error
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	evt := NewOrderEvent(&order)
	evt.Status = string(models.StatusCancelled)
	evt.Reason = reason
	s.publish(ctx, StatusEventKey(models.StatusCancelled), evt)

	if order.PaymentStatus == models.PaymentPaid {
		s.publishRefundRequest(ctx, &order)
	}

	s.invalidateActiveOrders(ctx, order.RestaurantID, order.CustomerID)

	return &order, nil
}

// AssignDriver attaches a driver to a delivery order. Internal-only: the
// caller is authenticated as a service, not as a user.
func (s *OrderService) AssignDriver(ctx context.Context, orderID, driverID string, estimatedDeliveryTime int) (*models.Order, error) {
	if driverID == "" {
		return nil, ErrValidation("driver id is required")
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockedOrder(tx, orderID, &order); err != nil {
			return err
		}
		if order.Type != models.OrderTypeDelivery {
			return ErrNotDelivery()
		}
		if order.Status.IsTerminal() {
			return ErrValidation("cannot assign a driver to a closed order")
		}

		order.DriverID = &driverID
		order.EstimatedDeliveryTime = &estimatedDeliveryTime

		return tx.Omit(clause.Associations).Save(&order).Error
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	evt := NewOrderEvent(&order)
	s.publish(ctx, EventDriverAssigned, evt)

	return &order, nil
}

// UpdatePaymentStatus is driven by the external payment subsystem. A
// settled refund moves the order into its REFUNDED terminal state
// regardless of where the lifecycle stood; refunds bypass the caller
// transition table because the money has already moved.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, ErrValidation("unknown payment status")
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockedOrder(tx, orderID, &order); err != nil {
			return err
		}

		order.PaymentStatus = status
		if status == models.PaymentRefunded && order.Status != models.StatusRefunded {
			order.Status = models.StatusRefunded
		}

		return tx.Omit(clause.Associations).Save(&order).Error
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	return &order, nil
}

// GetOrder returns a single order visible to the caller: the customer,
// the restaurant owner or the assigned driver.
func (s *OrderService) GetOrder(ctx context.Context, orderID, callerID string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("order")
		}
		return nil, ErrUnavailable(err)
	}

	if err := s.authorizeRead(ctx, &order, callerID); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetTimeline reconstructs the lifecycle steps for the order tracker.
func (s *OrderService) GetTimeline(ctx context.Context, orderID, callerID string) ([]models.TimelineStep, error) {
	order, err := s.GetOrder(ctx, orderID, callerID)
	if err != nil {
		return nil, err
	}
	return models.BuildTimeline(order), nil
}

// ListOrders returns the caller's own orders, newest first, optionally
// filtered by status.
func (s *OrderService) ListOrders(ctx context.Context, customerID string, status *models.OrderStatus, page, pageSize int) ([]models.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Order{}).Where("customer_id = ?", customerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, ErrUnavailable(err)
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error; err != nil {
		return nil, 0, ErrUnavailable(err)
	}
	return orders, total, nil
}

// ListActiveOrders returns the caller's orders still in flight.
func (s *OrderService) ListActiveOrders(ctx context.Context, customerID string) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).Preload("Items").
		Where("customer_id = ? AND status IN ?", customerID, models.ActiveStatuses()).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, ErrUnavailable(err)
	}
	return orders, nil
}

// ListRestaurantOrders is restaurant-owner-scoped.
func (s *OrderService) ListRestaurantOrders(ctx context.Context, restaurantID, callerID string, activeOnly bool) ([]models.Order, error) {
	var restaurant models.Restaurant
	if err := s.db.WithContext(ctx).First(&restaurant, "id = ?", restaurantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("restaurant")
		}
		return nil, ErrUnavailable(err)
	}
	if restaurant.OwnerID != callerID {
		return nil, ErrForbidden()
	}

	query := s.db.WithContext(ctx).Preload("Items").Where("restaurant_id = ?", restaurantID)
	if activeOnly {
		query = query.Where("status IN ?", models.ActiveStatuses())
	}

	var orders []models.Order
	if err := query.Order("created_at ASC").Find(&orders).Error; err != nil {
		return nil, ErrUnavailable(err)
	}
	return orders, nil
}

func (s *OrderService) authorizeRead(ctx context.Context, order *models.Order, callerID string) error {
	if callerID == order.CustomerID {
		return nil
	}
	if order.DriverID != nil && *order.DriverID == callerID {
		return nil
	}
	var restaurant models.Restaurant
	if err := s.db.WithContext(ctx).First(&restaurant, "id = ?", order.RestaurantID).Error; err == nil {
		if restaurant.OwnerID == callerID {
			return nil
		}
	}
	return ErrForbidden()
}

// lockedOrder loads an order under a row lock so the transition check
// and write see the same persisted state. sqlite (used in tests) has no
// SELECT ... FOR UPDATE; its single-writer model gives the same
// guarantee.
func lockedOrder(tx *gorm.DB, orderID string, out *models.Order) error {
	query := tx.Preload("Items")
	if tx.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.First(out, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound("order")
		}
		return ErrUnavailable(err)
	}
	return nil
}

func (s *OrderService) publish(ctx context.Context, routingKey string, evt OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, evt); err != nil {
		// Best-effort: downstream consumers tolerate gaps, the order
		// write already committed.
		utils.ErrorLogger.Errorf("failed to publish %s for order %s: %v", routingKey, evt.OrderID, err)
	}
}

func (s *OrderService) publishRefundRequest(ctx context.Context, order *models.Order) {
	evt := NewOrderEvent(order)
	evt.Total = order.Total
	evt.Currency = order.Currency
	evt.Reason = order.CancellationReason
	s.publish(ctx, EventRefundRequest, evt)
}

func (s *OrderService) invalidateActiveOrders(ctx context.Context, restaurantID, customerID string) {
	if s.cache == nil {
		return
	}
	keys := []string{
		"cache:orders:active:restaurant:" + restaurantID,
		"cache:orders:active:customer:" + customerID,
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		utils.ErrorLogger.Errorf("cache invalidation failed: %v", err)
	}
}

func asServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return ErrUnavailable(err)
}
