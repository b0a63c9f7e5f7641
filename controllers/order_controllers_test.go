package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chopdirect/order-engine/models"
	"github.com/chopdirect/order-engine/services"
	"github.com/chopdirect/order-engine/utils"
)

// memoryGuard is an in-process stand-in for the Redis-backed guard.
type memoryGuard struct {
	mu      sync.Mutex
	entries map[string]*services.CachedResponse
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{entries: make(map[string]*services.CachedResponse)}
}

func (g *memoryGuard) CheckAndReserve(_ context.Context, key string) (*services.CachedResponse, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cached, ok := g.entries[key]; ok {
		if cached == nil {
			return nil, false, nil
		}
		return cached, false, nil
	}
	g.entries[key] = nil
	return nil, true, nil
}

func (g *memoryGuard) Store(_ context.Context, key string, resp services.CachedResponse) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[key] = &resp
	return nil
}

func (g *memoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
	return nil
}

// stubAuth injects a fixed caller identity, bypassing token parsing.
func stubAuth(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}
}

func setupTestServer(t *testing.T, userID string, guard services.IdempotencyGuard) (*gin.Engine, *gorm.DB) {
	t.Helper()
	utils.InitLogger()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	err = db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.MenuItem{}, &models.Restaurant{})
	if err != nil {
		t.Fatal(err)
	}

	assert.NoError(t, db.Create(&models.Restaurant{
		ID: "rest_1", OwnerID: "owner_1", Name: "Mama Put Kitchen",
		Status: models.RestaurantActive, Currency: "NGN",
		DeliveryFee: 500, MinimumOrder: 2000,
	}).Error)
	assert.NoError(t, db.Create(&models.MenuItem{
		ID: "menu_jollof", RestaurantID: "rest_1", Name: "Jollof Rice",
		Price: 1000, Availability: models.MenuAvailable, PrepTimeMinutes: 15,
	}).Error)

	svc := services.NewOrderService(db, services.NewSnapshotResolver(db), nil, nil)
	ctrl := NewOrderController(svc, guard)

	r := gin.New()
	auth := r.Group("/orders", stubAuth(userID))
	{
		auth.POST("", ctrl.CreateOrder)
		auth.GET("", ctrl.ListOrders)
		auth.GET("/active", ctrl.ListActiveOrders)
		auth.GET("/:order_id", ctrl.GetOrder)
		auth.GET("/:order_id/track", ctrl.TrackOrder)
		auth.POST("/:order_id/cancel", ctrl.CancelOrder)
	}
	return r, db
}

func createBody() []byte {
	body, _ := json.Marshal(gin.H{
		"restaurant_id": "rest_1",
		"type":          "DELIVERY",
		"items": []gin.H{
			{"menu_item_id": "menu_jollof", "quantity": 3},
		},
		"delivery_address": gin.H{
			"street": "12 Adeola Odeku St", "city": "Lagos", "country": "NG",
		},
	})
	return body
}

func postOrder(r *gin.Engine, body []byte, idemKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if idemKey != "" {
		req.Header.Set("X-Idempotency-Key", idemKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateOrderEndpoint(t *testing.T) {
	r, db := setupTestServer(t, "cust_1", nil)

	w := postOrder(r, createBody(), "")
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp utils.JSONResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Status)
	assert.Equal(t, "Order created", resp.Message)

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateOrderIdempotentReplay(t *testing.T) {
	r, db := setupTestServer(t, "cust_1", newMemoryGuard())

	first := postOrder(r, createBody(), "retry-abc")
	assert.Equal(t, http.StatusCreated, first.Code)

	second := postOrder(r, createBody(), "retry-abc")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	// The replay must not create a second order.
	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateOrderInProgressConflict(t *testing.T) {
	guard := newMemoryGuard()
	r, _ := setupTestServer(t, "cust_1", guard)

	// Simulate a concurrent first request still holding the slot.
	_, reserved, err := guard.CheckAndReserve(context.Background(), "busy-key")
	assert.NoError(t, err)
	assert.True(t, reserved)

	w := postOrder(r, createBody(), "busy-key")
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp utils.JSONResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, services.CodeIdempotencyInProgress, resp.Error.Code)
}

func TestCreateOrderFailureReleasesKey(t *testing.T) {
	guard := newMemoryGuard()
	r, _ := setupTestServer(t, "cust_1", guard)

	// Below the restaurant minimum: 1 x 1000 < 2000.
	bad, _ := json.Marshal(gin.H{
		"restaurant_id": "rest_1",
		"type":          "PICKUP",
		"items":         []gin.H{{"menu_item_id": "menu_jollof", "quantity": 1}},
	})

	w := postOrder(r, bad, "failing-key")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The key is free again, so a corrected retry may reuse it.
	_, reserved, err := guard.CheckAndReserve(context.Background(), "failing-key")
	assert.NoError(t, err)
	assert.True(t, reserved)
}

func TestCreateOrderRejectsMalformedBody(t *testing.T) {
	r, _ := setupTestServer(t, "cust_1", nil)

	w := postOrder(r, []byte(`{"restaurant_id": "rest_1"}`), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp utils.JSONResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Status)
	assert.Equal(t, services.CodeValidation, resp.Error.Code)
}

func TestGetOrderHidesOtherCustomers(t *testing.T) {
	r, db := setupTestServer(t, "cust_1", nil)

	w := postOrder(r, createBody(), "")
	assert.Equal(t, http.StatusCreated, w.Code)

	var order models.Order
	assert.NoError(t, db.First(&order).Error)

	stranger, _ := setupTestServerReusingDB(t, db, "cust_other")
	req := httptest.NewRequest(http.MethodGet, "/orders/"+order.ID, nil)
	got := httptest.NewRecorder()
	stranger.ServeHTTP(got, req)
	assert.Equal(t, http.StatusForbidden, got.Code)

	// The owning customer still sees it.
	req = httptest.NewRequest(http.MethodGet, "/orders/"+order.ID, nil)
	got = httptest.NewRecorder()
	r.ServeHTTP(got, req)
	assert.Equal(t, http.StatusOK, got.Code)
}

func setupTestServerReusingDB(t *testing.T, db *gorm.DB, userID string) (*gin.Engine, *gorm.DB) {
	t.Helper()
	svc := services.NewOrderService(db, services.NewSnapshotResolver(db), nil, nil)
	ctrl := NewOrderController(svc, nil)

	r := gin.New()
	auth := r.Group("/orders", stubAuth(userID))
	{
		auth.GET("/:order_id", ctrl.GetOrder)
		auth.GET("/:order_id/track", ctrl.TrackOrder)
	}
	return r, db
}

func TestTrackOrderTimeline(t *testing.T) {
	r, db := setupTestServer(t, "cust_1", nil)

	w := postOrder(r, createBody(), "")
	assert.Equal(t, http.StatusCreated, w.Code)

	var order models.Order
	assert.NoError(t, db.First(&order).Error)

	req := httptest.NewRequest(http.MethodGet, "/orders/"+order.ID+"/track", nil)
	got := httptest.NewRecorder()
	r.ServeHTTP(got, req)
	assert.Equal(t, http.StatusOK, got.Code)

	var resp struct {
		Data []models.TimelineStep `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(got.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 6)
	assert.Equal(t, "Order Placed", resp.Data[0].Step)
	assert.True(t, resp.Data[0].Completed)
}

func TestCancelOrderRequiresReason(t *testing.T) {
	r, db := setupTestServer(t, "cust_1", nil)

	w := postOrder(r, createBody(), "")
	assert.Equal(t, http.StatusCreated, w.Code)

	var order models.Order
	assert.NoError(t, db.First(&order).Error)

	req := httptest.NewRequest(http.MethodPost, "/orders/"+order.ID+"/cancel", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	got := httptest.NewRecorder()
	r.ServeHTTP(got, req)
	assert.Equal(t, http.StatusBadRequest, got.Code)

	body, _ := json.Marshal(gin.H{"reason": "changed my mind"})
	req = httptest.NewRequest(http.MethodPost, "/orders/"+order.ID+"/cancel", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	got = httptest.NewRecorder()
	r.ServeHTTP(got, req)
	assert.Equal(t, http.StatusOK, got.Code)

	assert.NoError(t, db.First(&order).Error)
	assert.Equal(t, models.StatusCancelled, order.Status)
	assert.Equal(t, "changed my mind", order.CancellationReason)
}
