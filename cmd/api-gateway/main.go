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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/mlefebvre/budget-approval-api/api/swagger"
	"github.com/mlefebvre/budget-approval-api/internal/handler"
	"github.com/mlefebvre/budget-approval-api/internal/middleware"
	"github.com/mlefebvre/budget-approval-api/internal/models"
	"github.com/mlefebvre/budget-approval-api/internal/repository"
	"github.com/mlefebvre/budget-approval-api/internal/service"
	"github.com/mlefebvre/budget-approval-api/pkg/cache"
	"github.com/mlefebvre/budget-approval-api/pkg/config"
	"github.com/mlefebvre/budget-approval-api/pkg/database"
	"github.com/mlefebvre/budget-approval-api/pkg/export"
	"github.com/mlefebvre/budget-approval-api/pkg/logger"
	corsmiddleware "github.com/mlefebvre/budget-approval-api/pkg/middleware/cors"
	reqidmiddleware "github.com/mlefebvre/budget-approval-api/pkg/middleware/requestid"
)

// @title Budget Approval API
// @version 1.0.0
// @description Approval workflow engine for internal spending requests
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	// Redis is optional: without it directory lookups hit postgres directly.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, directory cache disabled", "error", err)
		redisClient = nil
	}

	requestRepo := repository.NewRequestRepository(db)
	actorRepo := repository.NewActorRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metrics := service.NewMetricsService(nil)
	directory := service.NewDirectoryService(actorRepo, cacheRepo, cfg.Workflow.DirectoryCacheTTL, logr)
	audit := service.NewAuditService(auditRepo, logr)
	notifications := service.NewNotificationService(&service.LogSender{Logger: logr}, cfg.Notifications, logr)
	workflow := service.NewWorkflowService(requestRepo, directory, audit, notifications, logr,
		service.WithTransitionObserver(metrics))
	requests := service.NewRequestService(requestRepo, directory, audit, logr)
	tokens := service.NewTokenService(cfg.JWT)

	requestHandler := handler.NewRequestHandler(requests, workflow, audit, nil, logr)
	if cfg.Workflow.ReceiptsEnabled {
		requestHandler = handler.NewRequestHandler(requests, workflow, audit, export.NewPDFExporter(), logr)
	}
	healthHandler := handler.NewHealthHandler(db, redisClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifications.Start(ctx)
	defer notifications.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Auth(tokens))
	{
		api.POST("/requests", middleware.RequirePermission(models.ActionSubmit), requestHandler.Create)
		api.GET("/requests", requestHandler.List)
		api.GET("/requests/:id", requestHandler.Get)
		api.POST("/requests/:id/submit", middleware.RequirePermission(models.ActionSubmit), requestHandler.Submit)
		api.POST("/requests/:id/validate", requestHandler.Validate)
		api.POST("/requests/:id/reject", middleware.RequirePermission(models.ActionReject), requestHandler.Reject)
		api.POST("/requests/:id/recall", requestHandler.Recall)
		api.GET("/requests/:id/can-validate", requestHandler.CanValidate)
		api.GET("/requests/:id/receipt", requestHandler.Receipt)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
