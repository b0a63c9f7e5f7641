package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/chopdirect/order-engine/controllers"
	"github.com/chopdirect/order-engine/middlewares"
	"github.com/chopdirect/order-engine/services"
)

func SetupRouter(db *gorm.DB, publisher services.EventPublisher, guard services.IdempotencyGuard, cache *redis.Client) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.CORSMiddlewares())

	resolver := services.NewSnapshotResolver(db)
	orderService := services.NewOrderService(db, resolver, publisher, cache)
	orderController := controllers.NewOrderController(orderService, guard)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	orders := r.Group("/orders", middlewares.AuthMiddleware())
	{
		orders.POST("", orderController.CreateOrder)
		orders.GET("", orderController.ListOrders)
		orders.GET("/active", orderController.ListActiveOrders)
		orders.GET("/:order_id", orderController.GetOrder)
		orders.GET("/:order_id/track", orderController.TrackOrder)
		orders.PUT("/:order_id/status", orderController.UpdateStatus)
		orders.POST("/:order_id/cancel", orderController.CancelOrder)
		orders.GET("/restaurant/:restaurant_id", orderController.RestaurantOrders)
		orders.GET("/restaurant/:restaurant_id/active", orderController.RestaurantActiveOrders)
	}

	internal := r.Group("/orders", middlewares.InternalAuthMiddleware())
	{
		internal.POST("/:order_id/assign-driver", orderController.AssignDriver)
		internal.PUT("/:order_id/payment-status", orderController.UpdatePaymentStatus)
	}

	return r
}
