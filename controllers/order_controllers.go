package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chopdirect/order-engine/middlewares"
	"github.com/chopdirect/order-engine/models"
	"github.com/chopdirect/order-engine/services"
	"github.com/chopdirect/order-engine/utils"
)

type OrderController struct {
	Service *services.OrderService
	// Idem may be nil when no idempotency store is configured; requests
	// without an X-Idempotency-Key are unaffected either way.
	Idem services.IdempotencyGuard
}

func NewOrderController(service *services.OrderService, idem services.IdempotencyGuard) *OrderController {
	return &OrderController{Service: service, Idem: idem}
}

// CreateOrder -> POST /orders
// An optional X-Idempotency-Key header makes retries safe: the first
// response is cached for 24h and replayed verbatim, so at most one
// order is created per key.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	callerID := middlewares.CallerID(c)

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, services.CodeValidation, err.Error(), nil)
		return
	}

	key := c.GetHeader("X-Idempotency-Key")
	useGuard := key != "" && oc.Idem != nil
	if useGuard {
		cached, reserved, err := oc.Idem.CheckAndReserve(c.Request.Context(), key)
		if err != nil {
			respondServiceError(c, services.ErrUnavailable(err))
			return
		}
		if cached != nil {
			c.Data(cached.Status, "application/json; charset=utf-8", cached.Body)
			return
		}
		if !reserved {
			respondServiceError(c, services.ErrIdempotencyInProgress())
			return
		}
	}

	order, err := oc.Service.CreateOrder(c.Request.Context(), callerID, req)
	if err != nil {
		if useGuard {
			// Free the slot so the client can retry with the same key.
			if relErr := oc.Idem.Release(c.Request.Context(), key); relErr != nil {
				utils.ErrorLogger.Errorf("idempotency release failed for key %s: %v", key, relErr)
			}
		}
		respondServiceError(c, err)
		return
	}

	body, err := json.Marshal(utils.JSONResponse{Status: true, Message: "Order created", Data: order})
	if err != nil {
		utils.RespondJSON(c, http.StatusCreated, "Order created", order)
		return
	}

	if useGuard {
		if err := oc.Idem.Store(c.Request.Context(), key, services.CachedResponse{
			Status: http.StatusCreated,
			Body:   body,
		}); err != nil {
			utils.ErrorLogger.Errorf("idempotency store failed for key %s: %v", key, err)
		}
	}

	c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
}

// GetOrder -> GET /orders/:order_id
func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.Service.GetOrder(c.Request.Context(), c.Param("order_id"), middlewares.CallerID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// TrackOrder -> GET /orders/:order_id/track
func (oc *OrderController) TrackOrder(c *gin.Context) {
	steps, err := oc.Service.GetTimeline(c.Request.Context(), c.Param("order_id"), middlewares.CallerID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order timeline", steps)
}

// ListOrders -> GET /orders?status=&page=&page_size=
func (oc *OrderController) ListOrders(c *gin.Context) {
	var status *models.OrderStatus
	if raw := c.Query("status"); raw != "" {
		st := models.OrderStatus(raw)
		if !st.Valid() {
			utils.RespondError(c, http.StatusBadRequest, services.CodeValidation, "unknown status filter", nil)
			return
		}
		status = &st
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	orders, total, err := oc.Service.ListOrders(c.Request.Context(), middlewares.CallerID(c), status, page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", gin.H{
		"orders": orders,
		"total":  total,
		"page":   page,
	})
}

// ListActiveOrders -> GET /orders/active
func (oc *OrderController) ListActiveOrders(c *gin.Context) {
	orders, err := oc.Service.ListActiveOrders(c.Request.Context(), middlewares.CallerID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active orders", orders)
}

// UpdateStatus -> PUT /orders/:order_id/status
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	var body struct {
		Status        string `json:"status" binding:"required"`
		Note          string `json:"note,omitempty"`
		EstimatedTime *int   `json:"estimated_time,omitempty"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, services.CodeValidation, err.Error(), nil)
		return
	}

	order, err := oc.Service.UpdateStatus(c.Request.Context(), c.Param("order_id"),
		middlewares.CallerID(c), models.OrderStatus(body.Status), body.Note, body.EstimatedTime)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

// CancelOrder -> POST /orders/:order_id/cancel
func (oc *OrderController) CancelOrder(c *gin.Context) {
	var body struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, services.CodeValidation, err.Error(), nil)
		return
	}

	order, err := oc.Service.CancelOrder(c.Request.Context(), c.Param("order_id"), middlewares.CallerID(c), body.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}

// AssignDriver -> POST /orders/:order_id/assign-driver (internal only)
func (oc *OrderController) AssignDriver(c *gin.Context) {
	var body struct {
		DriverID              string `json:"driver_id" binding:"required"`
		EstimatedDeliveryTime int    `json:"estimated_delivery_time" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, services.CodeValidation, err.Error(), nil)
		return
	}

	order, err := oc.Service.AssignDriver(c.Request.Context(), c.Param("order_id"), body.DriverID, body.EstimatedDeliveryTime)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Driver assigned", order)
}

// UpdatePaymentStatus -> PUT /orders/:order_id/payment-status (internal
// only). Called by the payment subsystem when capture/refund settles.
func (oc *OrderController) UpdatePaymentStatus(c *gin.Context) {
	var body struct {
		PaymentStatus string `json:"payment_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, services.CodeValidation, err.Error(), nil)
		return
	}

	order, err := oc.Service.UpdatePaymentStatus(c.Request.Context(), c.Param("order_id"), models.PaymentStatus(body.PaymentStatus))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment status updated", order)
}

// RestaurantOrders -> GET /orders/restaurant/:restaurant_id
func (oc *OrderController) RestaurantOrders(c *gin.Context) {
	oc.listRestaurantOrders(c, false)
}

// RestaurantActiveOrders -> GET /orders/restaurant/:restaurant_id/active
func (oc *OrderController) RestaurantActiveOrders(c *gin.Context) {
	oc.listRestaurantOrders(c, true)
}

func (oc *OrderController) listRestaurantOrders(c *gin.Context, activeOnly bool) {
	orders, err := oc.Service.ListRestaurantOrders(c.Request.Context(),
		c.Param("restaurant_id"), middlewares.CallerID(c), activeOnly)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Restaurant orders", orders)
}

func respondServiceError(c *gin.Context, err error) {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		utils.RespondError(c, svcErr.HTTPStatus, svcErr.Code, svcErr.Message, svcErr.Details)
		return
	}
	utils.RespondError(c, http.StatusInternalServerError, services.CodeUnavailable, "unexpected error", nil)
}
