package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/linktrack/internal/auth"
	"github.com/SergeiKhy/linktrack/internal/config"
	"github.com/SergeiKhy/linktrack/internal/handler"
	"github.com/SergeiKhy/linktrack/internal/logger"
	"github.com/SergeiKhy/linktrack/internal/middleware"
	"github.com/SergeiKhy/linktrack/internal/repository"
	"github.com/SergeiKhy/linktrack/internal/service"
	"github.com/SergeiKhy/linktrack/internal/shortcode"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.New(cfg.Log, cfg.App.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	if !cfg.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	redis, err := repository.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	userRepo := repository.NewUserRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	cacheRepo := repository.NewCacheRepository(redis)
	tokenRepo := repository.NewTokenRepository(redis)

	tokens := auth.NewTokenManager(cfg.Auth)
	hasher := auth.NewPasswordHasher(0)

	userService := service.NewUserService(db, userRepo, linkRepo, analyticsRepo, cacheRepo, tokenRepo, tokens, hasher, logger)
	linkService := service.NewLinkService(db, linkRepo, analyticsRepo, cacheRepo,
		shortcode.New(cfg.ShortCode.MaxAttempts),
		service.LinkServiceConfig{BaseURL: cfg.App.BaseURL, CacheTTL: cfg.App.CacheTTL},
		logger,
	)
	analyticsService := service.NewAnalyticsService(linkService, analyticsRepo, logger)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})
	defer rateLimiter.Stop()

	router := handler.NewRouter(
		handler.RouterConfig{CORSOrigins: cfg.App.CORSOrigin},
		handler.Handlers{
			Users: handler.NewUserHandler(userService, handler.CookieConfig{
				Secure:     cfg.Auth.CookieSecure,
				AccessTTL:  cfg.Auth.AccessTTL,
				RefreshTTL: cfg.Auth.RefreshTTL,
			}, logger),
			Links:     handler.NewLinkHandler(linkService, analyticsService, logger),
			Analytics: handler.NewAnalyticsHandler(analyticsService, logger),
			Health: handler.NewHealthHandler(map[string]handler.Pinger{
				"postgres": db,
				"redis":    redis,
			}, logger),
		},
		middleware.NewAuth(userService, logger),
		rateLimiter,
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port), zap.String("base_url", cfg.App.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
