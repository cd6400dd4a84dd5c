package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/viettravel/booking-backend/internal/config"
	"github.com/viettravel/booking-backend/internal/database"
	"github.com/viettravel/booking-backend/internal/events"
	"github.com/viettravel/booking-backend/internal/handlers"
	"github.com/viettravel/booking-backend/internal/middleware"
	"github.com/viettravel/booking-backend/internal/payment"
	"github.com/viettravel/booking-backend/internal/services"
	"github.com/viettravel/booking-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting VietTravel Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	pg, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	tourRepository := database.NewTourRepository(pg.DB)
	scheduleRepository := database.NewScheduleRepository(pg.DB)
	bookingRepository := database.NewBookingRepository(pg.DB)
	promotionRepository := database.NewPromotionRepository(pg.DB)
	transactionRepository := database.NewPaymentTransactionRepository(pg.DB)
	auditRepository := database.NewPaymentAuditRepository(pg.DB)
	cancellationRepository := database.NewCancellationRepository(pg.DB)

	// Initialize payment gateways
	var gateways []payment.Gateway
	if cfg.VNPay.Enabled {
		gateways = append(gateways, payment.NewVNPayGateway(cfg.VNPay))
		logger.Info("VNPay gateway enabled")
	}
	if cfg.MoMo.Enabled {
		gateways = append(gateways, payment.NewMoMoGateway(cfg.MoMo, cfg.Booking.GatewayTimeout))
		logger.Info("MoMo gateway enabled")
	}
	if len(gateways) == 0 {
		logger.Fatal("No payment gateway is enabled")
	}
	registry := payment.NewRegistry(gateways...)

	// Initialize event publisher. Without brokers events are dropped, the
	// booking flow itself never depends on the stream.
	var publisher events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Infof("Kafka publisher enabled, topic %s", cfg.Kafka.Topic)
	} else {
		publisher = events.NoopPublisher{}
		logger.Info("No Kafka brokers configured, event publishing disabled")
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	inventoryService := services.NewInventoryService(scheduleRepository, cfg.Booking.HoldTTL)
	pricingService := services.NewPricingService()
	promotionService := services.NewPromotionService(promotionRepository)
	bookingService := services.NewBookingService(
		tourRepository,
		bookingRepository,
		inventoryService,
		pricingService,
		promotionService,
		publisher,
	)
	paymentService := services.NewPaymentService(
		bookingRepository,
		transactionRepository,
		auditRepository,
		registry,
		publisher,
	)
	cancellationService := services.NewCancellationService(
		bookingRepository,
		cancellationRepository,
		tourRepository,
		cfg.Booking,
		publisher,
	)
	voucherService := services.NewVoucherService(bookingRepository, tourRepository)

	// Initialize and start the hold expiry sweeper
	sweeperService := services.NewSweeperService(
		inventoryService,
		transactionRepository,
		cfg.Booking.SweepSchedule,
		cfg.Booking.HoldTTL,
	)
	if err := sweeperService.Start(); err != nil {
		logger.Fatalf("Failed to start sweeper: %v", err)
	}

	logger.Info("Services initialized")

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, voucherService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	cancellationHandler := handlers.NewCancellationHandler(cancellationService)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(pg))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Gateway return endpoint (public: the gateway redirects the
		// browser here, authentication is the signature on the params)
		v1.GET("/payment/:gateway/return", paymentHandler.Return)

		// Booking routes (protected)
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService))
		{
			bookings.POST("", bookingHandler.Create)
			bookings.GET("", bookingHandler.List)
			bookings.GET("/payment/:orderId", bookingHandler.GetByOrderID)
			bookings.GET("/:id", bookingHandler.Get)
			bookings.GET("/:id/voucher", bookingHandler.Voucher)
			bookings.POST("/:id/cancellation-requests", cancellationHandler.Request)
		}

		// Payment creation (protected)
		payments := v1.Group("/payment")
		payments.Use(middleware.AuthMiddleware(jwtService))
		{
			payments.POST("/:gateway/create", paymentHandler.Create)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole("admin"))
		{
			admin.POST("/cancellation-requests/:id/decision", cancellationHandler.Decide)
			admin.POST("/sweeper/run", func(c *gin.Context) {
				sweeperService.RunNow()
				c.JSON(200, gin.H{"message": "Sweep triggered"})
			})
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop the sweeper before closing the database
	sweeperService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	if err := publisher.Close(); err != nil {
		logger.Errorf("Failed to close event publisher: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
		} else {
			status := c.Writer.Status()
			if status >= 500 {
				entry.Error("Request completed with server error")
			} else if status >= 400 {
				entry.Warn("Request completed with client error")
			} else {
				entry.Info("Request completed successfully")
			}
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
