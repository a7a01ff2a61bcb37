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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/liyun-dev/campus-sis-api/api/swagger"
	"github.com/liyun-dev/campus-sis-api/internal/handler"
	"github.com/liyun-dev/campus-sis-api/internal/repository"
	"github.com/liyun-dev/campus-sis-api/internal/service"
	"github.com/liyun-dev/campus-sis-api/pkg/cache"
	"github.com/liyun-dev/campus-sis-api/pkg/config"
	"github.com/liyun-dev/campus-sis-api/pkg/database"
	"github.com/liyun-dev/campus-sis-api/pkg/logger"
	corsmiddleware "github.com/liyun-dev/campus-sis-api/pkg/middleware/cors"
	reqidmiddleware "github.com/liyun-dev/campus-sis-api/pkg/middleware/requestid"
	"github.com/liyun-dev/campus-sis-api/pkg/storage"
)

// @title Campus SIS API
// @version 1.0.0
// @description Student information system: accounts, catalog, enrollments and transcripts
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	majorRepo := repository.NewMajorRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	catalogReader := repository.NewCatalogReader(departmentRepo, majorRepo)

	studentSvc := service.NewStudentService(studentRepo, userRepo, catalogReader, validate, logr)
	userSvc := service.NewUserService(userRepo, studentSvc, validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "campus-sis-api",
	})
	departmentSvc := service.NewDepartmentService(departmentRepo, cacheSvc, validate, logr)
	majorSvc := service.NewMajorService(majorRepo, departmentRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, userRepo, validate, logr)
	transcriptSvc := service.NewTranscriptService(enrollmentRepo, studentRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	dashboardSvc := service.NewDashboardService(userRepo, studentRepo, departmentRepo, majorRepo, courseRepo, enrollmentRepo, cacheSvc, logr, service.DashboardConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(studentSvc, transcriptSvc, store, signer, logr, service.ExportConfig{
			Workers: cfg.Exports.WorkerConcurrency,
		})
		exportSvc.Start(ctx)
		defer exportSvc.Stop()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(reqidmiddleware.Middleware())
	engine.Use(logger.GinMiddleware(logr))
	engine.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	router := handler.NewRouter(authSvc, userSvc, studentSvc, departmentSvc, majorSvc, courseSvc, enrollmentSvc, transcriptSvc, dashboardSvc, exportSvc, metrics, userRepo)
	router.SetupRoutes(engine)

	if cfg.Env != config.EnvProduction {
		engine.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("forced shutdown", zap.Error(err))
	}
}
