package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/testforge/exam-service/internal/auth"
	"github.com/testforge/exam-service/internal/cache"
	"github.com/testforge/exam-service/internal/config"
	"github.com/testforge/exam-service/internal/handlers"
	"github.com/testforge/exam-service/internal/judge"
	"github.com/testforge/exam-service/internal/models"
	"github.com/testforge/exam-service/internal/repositories/postgres"
	"github.com/testforge/exam-service/internal/services"
	"github.com/testforge/exam-service/internal/utils"
	"github.com/testforge/exam-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Test{},
		&models.TestProgress{},
		&models.ProctoringEvent{},
		&models.Result{},
	); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	var cacheService cache.CacheService = cache.NoopCache{}
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheService = cache.NewRedisCache(redisClient, slogger)
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	var judgeClient judge.Client
	if cfg.JudgeURL != "" {
		judgeClient = judge.NewHTTPClient(cfg.JudgeURL, time.Duration(cfg.JudgeTimeoutSeconds)*time.Second, slogger)
	} else {
		logger.Warn("JUDGE_URL not set, code execution disabled")
	}

	validator := utils.NewValidator()
	repo := postgres.NewRepository(db)

	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:      repo,
		Logger:    slogger,
		Validator: validator,
		Cache:     cacheService,
		Publisher: publisher,
		Judge:     judgeClient,
	})

	verifier := auth.NewVerifier(cfg.JWTSecret)
	handlerManager := handlers.NewHandlerManager(serviceManager, validator, logger, verifier)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("Starting exam service", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}
