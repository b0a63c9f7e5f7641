package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/chopdirect/order-engine/config"
	"github.com/chopdirect/order-engine/models"
	"github.com/chopdirect/order-engine/router"
	"github.com/chopdirect/order-engine/services"
	"github.com/chopdirect/order-engine/utils"
)

func main() {
	envErr := godotenv.Load()
	utils.InitLogger()
	if envErr != nil {
		utils.InfoLogger.Println("Warning: .env file not found")
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	autoMigrate(db)

	// Redis and RabbitMQ are optional integrations. Without Redis the
	// engine loses idempotent replay and cache invalidation; without
	// RabbitMQ no lifecycle events leave the process. Both degrade to
	// warnings so local development stays a one-command affair.
	var guard services.IdempotencyGuard
	cache, err := config.InitRedis()
	if err != nil {
		utils.ErrorLogger.Printf("Redis unavailable, idempotency replay disabled: %v", err)
		cache = nil
	} else {
		guard = services.NewRedisIdempotencyGuard(cache)
	}

	var publisher services.EventPublisher
	if conn, err := config.InitRabbitMQ(); err != nil {
		utils.ErrorLogger.Printf("RabbitMQ unavailable, event publishing disabled: %v", err)
	} else {
		defer conn.Close()
		publisher, err = services.NewRabbitPublisher(conn)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to set up event publisher: %v", err)
		}
	}

	r := router.SetupRouter(db, publisher, guard, cache)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.InfoLogger.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Fatalf("Forced shutdown: %v", err)
	}
	utils.InfoLogger.Println("Server stopped")
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.Restaurant{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
