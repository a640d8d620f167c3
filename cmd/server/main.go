package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/adapter"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/cache"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/config"
	couponDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	issuerDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/issuer"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/handler"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/metrics"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/repository"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/scheduler"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/database"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/health"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/kafka"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/logger"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/middleware"
)

const serviceName = "service-coupon"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("storage", cfg.StorageDriver),
		zap.String("instance", cfg.InstanceID),
	)

	// Storage
	db, couponRepo, issuerRepo := openStorage(cfg, zapLogger)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.AccessTTL, 7*24*time.Hour)

	// Issuer-change signals: the local bus feeds SSE clients, Kafka reaches other replicas.
	bus := events.NewBus()
	publisher := events.Fanout{bus}

	relayCtx, relayCancel := context.WithCancel(context.Background())
	defer relayCancel()

	if len(cfg.KafkaConfig.Brokers) > 0 {
		kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
		defer kafkaProducer.Close()
		publisher = append(publisher, events.NewKafkaPublisher(kafkaProducer, cfg.InstanceID))

		relay := events.NewIssuerEventRelay(
			cfg.KafkaConfig.Brokers,
			cfg.KafkaConfig.GroupPrefix+"coupon-relay-"+cfg.InstanceID,
			cfg.InstanceID,
			bus,
			zapLogger,
		)
		defer relay.Close()

		go func() {
			zapLogger.Info("starting issuer event relay")
			if err := relay.Start(relayCtx); err != nil && relayCtx.Err() == nil {
				zapLogger.Error("issuer event relay failed", zap.Error(err))
			}
		}()
	} else {
		zapLogger.Warn("KAFKA_BROKERS empty, issuer signals stay on this replica")
	}

	// Facet cache
	var facets cache.FacetCache = cache.NewMemoryCache(cfg.FacetCacheTTL)
	if cfg.RedisConfig.Addr != "" {
		redisClient, err := cache.NewRedisClient(cfg.RedisConfig.Addr, cfg.RedisConfig.Password, cfg.RedisConfig.DB)
		if err != nil {
			zapLogger.Warn("redis unavailable, using in-process facet cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			facets = cache.NewRedisCache(redisClient, cfg.FacetCacheTTL, zapLogger)
		}
	}

	// Application services
	couponService := application.NewCouponService(
		couponRepo, issuerRepo, facets, adapter.NewQRCodeRenderer(zapLogger), publisher, zapLogger,
	)
	issuerService := application.NewIssuerService(issuerRepo, publisher, zapLogger)
	authService := application.NewAuthService(issuerRepo, couponRepo, jwtManager, zapLogger)
	statisticsService := application.NewStatisticsService(couponRepo, zapLogger)

	// Expiry sweep
	sweeper, err := scheduler.NewScheduler(cfg.ExpirySpec, couponService, zapLogger)
	if err != nil {
		zapLogger.Fatal("invalid EXPIRY_CRON", zap.String("spec", cfg.ExpirySpec), zap.Error(err))
	}
	sweeper.Start()

	// Setup Gin router
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins...))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(metrics.Middleware())

	// Register health check and metrics routes
	health.NewHandler(db, serviceName).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Register API routes
	api := router.Group("/api")
	handler.Handlers{
		Coupons:    handler.NewCouponHandler(couponService),
		Statistics: handler.NewStatisticsHandler(statisticsService),
		Issuers:    handler.NewIssuerHandler(issuerService),
		Auth:       handler.NewAuthHandler(authService),
		Events:     handler.NewEventsHandler(bus, zapLogger),
	}.Register(api, jwtManager)

	// Create HTTP server. No WriteTimeout: the SSE stream is long-lived.
	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down " + serviceName + "...")

	relayCancel()
	<-sweeper.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info(serviceName + " stopped")
}

// openStorage returns the repositories selected by STORAGE_DRIVER. db is nil for memory storage.
func openStorage(cfg *config.ServiceConfig, zapLogger *zap.Logger) (*gorm.DB, couponDomain.CouponRepository, issuerDomain.IssuerRepository) {
	if cfg.StorageDriver == config.StorageMemory {
		zapLogger.Warn("using in-memory storage, data is lost on restart")
		mem := repository.NewMemoryDB()
		return nil, repository.NewMemoryCouponRepository(mem), repository.NewMemoryIssuerRepository(mem)
	}

	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}

	db, err := database.Connect(dbConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.CouponModel{}, &repository.IssuerModel{}, &repository.AssignmentModel{}); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), cfg.MigrationsDir, zapLogger); err != nil {
			zapLogger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	return db, repository.NewGormCouponRepository(db), repository.NewGormIssuerRepository(db)
}
