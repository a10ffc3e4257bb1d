package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edumarket/course-market-api/api/swagger"
	"github.com/edumarket/course-market-api/internal/handler"
	"github.com/edumarket/course-market-api/internal/middleware"
	"github.com/edumarket/course-market-api/internal/models"
	"github.com/edumarket/course-market-api/internal/repository"
	"github.com/edumarket/course-market-api/internal/service"
	"github.com/edumarket/course-market-api/internal/verifier"
	"github.com/edumarket/course-market-api/pkg/cache"
	"github.com/edumarket/course-market-api/pkg/config"
	"github.com/edumarket/course-market-api/pkg/database"
	"github.com/edumarket/course-market-api/pkg/jobs"
	"github.com/edumarket/course-market-api/pkg/logger"
	corsmiddleware "github.com/edumarket/course-market-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edumarket/course-market-api/pkg/middleware/requestid"
)

// @title Course Market API
// @version 1.0.0
// @description Multi-tenant course marketplace: courses, schedules and purchases
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
			cacheSvc = service.NewCacheService(nil, metrics, cfg.Cache.TTL, logr, false)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, true)
		}
	} else {
		cacheSvc = service.NewCacheService(nil, metrics, cfg.Cache.TTL, logr, false)
	}

	var identityVerifier verifier.Verifier
	switch cfg.Verifier.Mode {
	case config.VerifierModeHTTP:
		identityVerifier = verifier.NewHTTPVerifier(cfg.Verifier.AuthURL, cfg.Verifier.Timeout)
	default:
		identityVerifier = verifier.NewJWTVerifier(cfg.Verifier.JWTSecret)
	}

	courseRepo := repository.NewCourseRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)

	cascades := service.NewCascadeService(scheduleRepo, purchaseRepo, metrics, jobs.QueueConfig{
		Workers:    cfg.Cascade.Workers,
		BufferSize: cfg.Cascade.BufferSize,
		MaxRetries: cfg.Cascade.MaxRetries,
		RetryDelay: cfg.Cascade.RetryDelay,
	}, logr)
	cascades.Start(ctx)
	defer cascades.Stop()

	courseSvc := service.NewCourseService(courseRepo, cacheSvc, cascades, metrics, nil, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, courseRepo, cascades, nil, logr)
	purchaseSvc := service.NewPurchaseService(purchaseRepo, courseRepo, scheduleRepo, cascades, nil, logr)
	exportSvc := service.NewExportService(purchaseRepo, courseRepo, logr)

	courseHandler := handler.NewCourseHandler(courseSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	purchaseHandler := handler.NewPurchaseHandler(purchaseSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Authenticate(identityVerifier))
	api.Use(middleware.WithResponseMeta())

	courses := api.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.POST("", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), courseHandler.Create)
		courses.PUT("/:id", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), courseHandler.Update)
		courses.DELETE("/:id", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), courseHandler.Delete)

		courses.GET("/:id/schedules", scheduleHandler.List)
		courses.GET("/:id/schedules/:scheduleId", scheduleHandler.Get)
		courses.POST("/:id/schedules", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), scheduleHandler.Create)
		courses.PUT("/:id/schedules/:scheduleId", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), scheduleHandler.Update)
		courses.DELETE("/:id/schedules/:scheduleId", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), scheduleHandler.Delete)

		courses.GET("/:id/roster", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), exportHandler.Roster)
	}

	purchases := api.Group("/purchases")
	{
		purchases.POST("", middleware.RequireRoles(models.RoleAlumno), purchaseHandler.Create)
		purchases.GET("", purchaseHandler.List)
		purchases.DELETE("/:courseId", middleware.RequireRoles(models.RoleAlumno), purchaseHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "verifier", cfg.Verifier.Mode)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
