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
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/busline/booking-backend/internal/api/profile"
	"github.com/busline/booking-backend/internal/api/reservation"
	"github.com/busline/booking-backend/internal/api/trips"
	"github.com/busline/booking-backend/internal/config"
	"github.com/busline/booking-backend/internal/database"
	"github.com/busline/booking-backend/internal/handlers"
	"github.com/busline/booking-backend/internal/middleware"
	"github.com/busline/booking-backend/internal/realtime"
	"github.com/busline/booking-backend/internal/services"
	"github.com/busline/booking-backend/internal/storage"
	"github.com/busline/booking-backend/pkg/jwt"
	"github.com/busline/booking-backend/pkg/validator"
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

	logger.Info("Starting Busline Booking Backend")
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
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	logger.Info("Redis connection established")

	// Initialize upstream clients
	tripsClient := trips.NewClient(cfg.Upstream.TripsBaseURL, cfg.Upstream.Timeout)
	reservationClient := reservation.NewClient(cfg.Upstream.ReservationBaseURL, cfg.Upstream.Timeout)
	profileClient := profile.NewClient(cfg.Upstream.ProfileBaseURL, cfg.Upstream.Timeout)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	phoneValidator := validator.NewPhoneValidator()
	auditRepository := database.NewPaymentAuditRepository(db, logger)

	snapshotStore := storage.NewRedisSnapshotStore(redisClient)
	bridge := services.NewPaymentRedirectBridge(snapshotStore, cfg.Payment.SnapshotTTL, logger)

	seatSync := services.NewRealtimeSeatSync(func() realtime.Channel {
		return realtime.NewRedisChannel(redisClient, logger)
	}, logger)

	composer := services.NewTripComposer(logger)
	wizard := services.NewBookingWizard(
		tripsClient,
		reservationClient,
		profileClient,
		composer,
		bridge,
		seatSync,
		phoneValidator,
		auditRepository,
		services.WizardConfig{
			ReturnURL: cfg.Payment.ReturnURL,
			Currency:  cfg.Payment.Currency,
		},
		logger,
	)

	sessionManager := services.NewSessionManager(cfg.Session.TTL, seatSync, logger)
	sessionManager.StartJanitor(cfg.Session.SweepInterval)
	defer sessionManager.StopJanitor()

	bookingHandler := handlers.NewBookingHandler(sessionManager, wizard, logger)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db, redisClient))

	v1 := router.Group("/api/v1")
	{
		booking := v1.Group("/booking")
		booking.Use(middleware.OptionalAuth(jwtService))
		{
			booking.POST("/sessions", bookingHandler.CreateSession)
			booking.GET("/sessions/:id", bookingHandler.GetSession)
			booking.DELETE("/sessions/:id", bookingHandler.DeleteSession)
			booking.POST("/sessions/:id/search", bookingHandler.Search)
			booking.POST("/sessions/:id/itinerary", bookingHandler.ChooseItinerary)
			booking.POST("/sessions/:id/next", bookingHandler.Next)
			booking.POST("/sessions/:id/back", bookingHandler.Back)
			booking.GET("/sessions/:id/seats", bookingHandler.GetSeats)
			booking.POST("/sessions/:id/seats/toggle", bookingHandler.ToggleSeat)
			booking.POST("/sessions/:id/seats/retry", bookingHandler.RetryAvailability)
			booking.POST("/sessions/:id/payment", bookingHandler.SubmitPayment)

			// The payment gateway lands here; no auth header survives the
			// redirect, so the session id in the query is the credential.
			booking.GET("/confirmation", bookingHandler.Confirmation)
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

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
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
func healthCheckHandler(db database.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"redis":  "unhealthy",
				"error":  err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"redis":     "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
