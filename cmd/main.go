package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"viral-kid-platform/internal/config"
	"viral-kid-platform/internal/instagram"
	"viral-kid-platform/internal/logger"
	"viral-kid-platform/internal/queue"
	"viral-kid-platform/internal/scheduler"
	"viral-kid-platform/internal/store"
	"viral-kid-platform/internal/telemetry"
	"viral-kid-platform/middleware"
	"viral-kid-platform/routes"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg.GinMode == "debug")

	// Tracing is best-effort: a missing collector must not keep the
	// API from serving webhooks
	if shutdown, err := telemetry.InitTracer("viral-kid-api", cfg.OTLPEndpoint); err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer shutdown()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to init metrics:", err)
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	st := store.NewMongoStore(mongoClient.Database(cfg.DBName))

	// Redis for rate limiting
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	// Job queue client
	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to build queue Redis options:", err)
	}
	queueClient := queue.NewClient(redisOpt)
	defer queueClient.Close()

	graphClient := instagram.NewClient()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg)

	// Setup routes
	routes.SetupAuthRoutes(router, cfg, st)
	routes.SetupWebhookRoutes(router, st, queueClient)
	routes.SetupAutomationRoutes(router, st, authMiddleware)
	routes.SetupAccountRoutes(router, st, graphClient, authMiddleware)

	// Seed recurring jobs; safe to call on every start
	recurring := scheduler.New(queueClient, cfg.CleanupRetentionDays)
	if err := recurring.Setup(); err != nil {
		log.Fatal("Failed to install recurring jobs:", err)
	}
	recurring.Start()
	defer recurring.Stop()

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
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
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
