package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	_ "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/api/swagger"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/handler"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/middleware"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/repository"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/seed"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/service"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/cache"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/config"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/database"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/logger"
	corsmiddleware "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/middleware/cors"
	reqidmiddleware "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/middleware/requestid"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/storage"
)

// @title Dormitory Management API
// @version 1.0.0
// @description REST API for student dormitory management: registrations, rooms, applications, contracts, invoices and maintenance requests.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	store, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	contractRepo := repository.NewContractRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "dorm-api",
		Audience:           []string{"dorm-web"},
	})
	registrationSvc := service.NewRegistrationService(userRepo, validate, logr, cfg.Registration)
	uploadSvc := service.NewUploadService(store, signer, logr, cfg.Uploads)
	billingSvc := service.NewBillingService(invoiceRepo, contractRepo, logr, cfg.Billing).WithMetrics(metricsSvc)
	userSvc := service.NewUserService(userRepo, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(statsRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	applicationSvc := service.NewApplicationService(applicationRepo, roomRepo, billingSvc, validate, logr).WithDashboard(dashboardSvc)
	contractSvc := service.NewContractService(contractRepo, roomRepo, userRepo, billingSvc, validate, logr).WithDashboard(dashboardSvc)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, validate, logr).WithDashboard(dashboardSvc)
	requestSvc := service.NewRequestService(requestRepo, roomRepo, validate, logr)

	if cfg.Seed.Enabled {
		if err := seed.New(userRepo, roomRepo, logr).Run(ctx); err != nil {
			logr.Sugar().Fatalw("failed to seed database", "error", err)
		}
	}

	if cfg.Billing.Enabled {
		billingSvc.StartWorker(ctx)
		defer billingSvc.StopWorker()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	handlers := handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Registration: handler.NewRegistrationHandler(registrationSvc, uploadSvc),
		User:         handler.NewUserHandler(userSvc),
		Room:         handler.NewRoomHandler(roomSvc),
		Application:  handler.NewApplicationHandler(applicationSvc),
		Contract:     handler.NewContractHandler(contractSvc),
		Invoice:      handler.NewInvoiceHandler(invoiceSvc),
		Request:      handler.NewRequestHandler(requestSvc),
		Dashboard:    handler.NewDashboardHandler(dashboardSvc),
		Billing:      handler.NewBillingHandler(billingSvc),
		Upload:       handler.NewUploadHandler(uploadSvc),
	}
	handler.RegisterRoutes(r, handlers, authSvc, handler.RouteOptions{
		EnableDocs:      cfg.Env != config.EnvProduction,
		EnableDashboard: cfg.Dashboard.Enabled,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}

	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("failed to close redis", "error", err)
	}
}
