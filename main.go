package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fulfillment-service/controllers"
	"fulfillment-service/database"
	"fulfillment-service/kafka"
	"fulfillment-service/logger"
	"fulfillment-service/notifier"
	"fulfillment-service/repository"
	"fulfillment-service/routes"
	"fulfillment-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	db, err := database.Connect(zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close() //nolint:errcheck

	if err := database.Migrate(db); err != nil {
		zlog.Fatal("Migration failed", zap.Error(err))
	}

	// Kafka is the event backbone; SNS and the Redis batch lock are optional.
	var events services.EventPublisher
	var kafkaProducer *kafka.Producer
	if cfg.KafkaBrokers != "" {
		kafkaProducer = kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.OrderEventsTopic, zlog)
		events = kafkaProducer
		defer kafkaProducer.Close() //nolint:errcheck
	} else {
		zlog.Warn("KAFKA_BROKERS not set, event publishing disabled")
	}

	var sns services.SNSPublisher
	if cfg.SNSTopicARN != "" {
		awsCfg, awsErr := notifier.LoadAWSConfig(context.Background())
		if awsErr != nil {
			zlog.Warn("AWS config unavailable, SNS disabled", zap.Error(awsErr))
		} else {
			sns = notifier.NewSNSClient(awsCfg)
		}
	}

	var locker services.BatchLocker
	if cfg.RedisURL != "" {
		redisClient, redisErr := database.NewRedisClient(cfg.RedisURL, zlog)
		if redisErr != nil {
			zlog.Fatal("Failed to connect to Redis", zap.Error(redisErr))
		}
		defer redisClient.Close() //nolint:errcheck
		locker = database.NewRedisBatchLocker(redisClient)
	} else {
		zlog.Warn("REDIS_URL not set, batch locking disabled")
	}

	billingLoc, err := cfg.BillingLocation()
	if err != nil {
		zlog.Fatal("Invalid billing timezone", zap.Error(err))
	}

	// Repositories and DI chain.
	orderRepo := repository.NewGormOrderRepository(db)
	inventoryRepo := repository.NewGormInventoryRepository(db)
	productRepo := repository.NewGormProductRepository(db)
	clientRepo := repository.NewGormClientRepository(db)
	invoiceRepo := repository.NewGormInvoiceRepository(db)
	paymentRepo := repository.NewGormPaymentRepository(db)

	orderService := services.NewOrderService(
		orderRepo, inventoryRepo, productRepo, invoiceRepo,
		events, sns, cfg.SNSTopicARN, zlog,
	)
	inventoryService := services.NewInventoryService(inventoryRepo, zlog)
	paymentService := services.NewPaymentService(invoiceRepo, paymentRepo, events, zlog)
	monthlyService := services.NewMonthlyInvoiceService(
		clientRepo, orderRepo, invoiceRepo, locker, events,
		services.MonthlyBillingConfig{
			Location:        billingLoc,
			BaseRateCents:   cfg.BillingBaseRate,
			PerUnitCents:    cfg.BillingPerUnitRate,
			WeightCeilingKg: cfg.BillingWeightCeilKg,
			DueInDays:       cfg.BillingDueInDays,
		},
		zlog,
	)

	orderController := controllers.NewOrderController(orderService)
	paymentController := controllers.NewPaymentController(paymentService)
	invoiceController := controllers.NewInvoiceController(monthlyService)
	inventoryController := controllers.NewInventoryController(inventoryService)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger(zlog))

	// 30-second request timeout
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "fulfillment-service"})
	})

	routes.Register(r, orderController, paymentController, invoiceController, inventoryController, cfg.InternalAPIToken)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("Server failed", zap.Error(err))
		}
	}()

	zlog.Info("Fulfillment service started", zap.String("port", cfg.Port))
	<-quit
	zlog.Info("Shutting down fulfillment service...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Fatal("Server forced to shutdown", zap.Error(err))
	}
	zlog.Info("Server exited cleanly")
}
