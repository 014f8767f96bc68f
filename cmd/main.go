package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"catalogfacets/internal/caching"
	"catalogfacets/internal/config"
	"catalogfacets/internal/handlers"
	"catalogfacets/internal/jobs"
	"catalogfacets/internal/jobs/background"
	"catalogfacets/internal/middleware"
	"catalogfacets/internal/repositories"
	"catalogfacets/internal/services"
	"catalogfacets/pkg/database"
	"catalogfacets/pkg/logger"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "catalogfacets: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logger, cfg.Server.AppEnv)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database connection
	pool, err := database.NewPool(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if cfg.Postgres.MigrateOnStart {
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		log.Info("database schema ensured")
	}

	// Result cache
	var cache caching.ResultCache
	if cfg.Cache.Enabled {
		redisClient := caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		defer redisClient.Close()
		cache = caching.NewRedisResultCache(redisClient, cfg.Cache.Prefix, log)
	} else {
		log.Warn("result cache disabled")
		cache = caching.NewNoopResultCache()
	}

	// Image storage
	minioSvc, err := services.NewMinioService(cfg.Minio)
	if err != nil {
		return fmt.Errorf("initialize minio: %w", err)
	}
	if err := minioSvc.EnsureBucketExists(ctx); err != nil {
		log.Warn("image bucket unavailable", zap.String("bucket", cfg.Minio.Bucket), zap.Error(err))
	}

	// Repositories
	productRepo := repositories.NewProductRepo(pool)
	categoryRepo := repositories.NewCategoryRepo(pool)
	attributeRepo := repositories.NewAttributeRepo(pool)
	valueRepo := repositories.NewAttributeValueRepo(pool)

	// Services
	filterSvc := services.NewFilterService(productRepo, categoryRepo, attributeRepo, valueRepo, cache, log.Named("filter"))
	productSvc := services.NewProductService(productRepo, valueRepo, minioSvc, log.Named("product"))
	eventSvc := services.NewEventService(productRepo, categoryRepo, attributeRepo, productSvc, cache, log.Named("events"))
	valueSvc := services.NewAttributeValueService(productRepo, attributeRepo, valueRepo, eventSvc, log.Named("attribute_values"))

	// Task queue
	redisOpt := asynq.RedisClientOpt{
		Addr:     caching.ParseRedisAddr(cfg.Redis.Addr),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()

	worker := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Queuing.Concurrency,
		Queues:      cfg.Queuing.Queues,
		Logger:      log.Named("asynq").Sugar(),
	})
	mux := asynq.NewServeMux()
	jobs.NewCatalogTaskHandler(eventSvc, log.Named("tasks")).Register(mux)
	if err := worker.Start(mux); err != nil {
		return fmt.Errorf("start task worker: %w", err)
	}
	defer worker.Shutdown()

	// Background jobs
	scheduler, err := background.NewJobScheduler(productSvc, cfg.Jobs.PriceRefreshInterval, log.Named("scheduler"))
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Warn("scheduler shutdown", zap.Error(err))
		}
	}()

	verifier, err := middleware.NewTokenVerifier(cfg.Auth, log.Named("auth"))
	if err != nil {
		return err
	}
	defer verifier.Close()

	// HTTP server
	e := echo.New()
	e.HideBanner = true

	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	versionMiddleware := middleware.NewVersionMiddleware()
	e.Use(versionMiddleware.APIVersionResolver())

	healthHandlers := handlers.NewHealthHandlers(pool, cache, minioSvc, scheduler, version)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)

	v1 := versionMiddleware.VersionRoute(e, "v1")

	storefrontHandlers := handlers.NewStorefrontHandlers(filterSvc)
	v1.GET("/categories/:id/products", storefrontHandlers.ListProducts)
	v1.GET("/categories/:id/facets", storefrontHandlers.ListFacets)
	v1.GET("/categories/:id/price-filters", storefrontHandlers.ListPriceFilters)

	productHandlers := handlers.NewProductHandlers(productSvc, valueSvc)
	v1.GET("/products/:id", productHandlers.GetProduct)
	v1.GET("/products/:id/variant", productHandlers.FindVariant)

	// Catalog writes and change events require a service token
	writes := v1.Group("", verifier.JWTMiddleware(log.Named("auth")))
	writes.PUT("/products/:id/attribute-values", productHandlers.SetAttributeValues)

	eventHandlers := handlers.NewEventHandlers(eventSvc, queueClient, log.Named("events"))
	writes.POST("/events/product-changed", eventHandlers.ProductChanged)
	writes.POST("/events/category-changed", eventHandlers.CategoryChanged)
	writes.POST("/events/attribute-type-changed", eventHandlers.AttributeTypeChanged)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("catalogfacets server starting", zap.String("version", version), zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
