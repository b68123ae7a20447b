package handler

import (
	"time"

	"github.com/SergeiKhy/linktrack/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	CORSOrigins []string
}

type Handlers struct {
	Users     *UserHandler
	Links     *LinkHandler
	Analytics *AnalyticsHandler
	Health    *HealthHandler
}

func NewRouter(
	cfg RouterConfig,
	h Handlers,
	auth *middleware.Auth,
	rateLimiter *middleware.RateLimiter,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Metrics())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.GET("/health", h.Health.Health)

	// Everything except health and metrics is rate limited per client IP.
	v1.Use(rateLimiter.Middleware())

	users := v1.Group("/users")
	{
		users.POST("/register", h.Users.Register)
		users.POST("/login", h.Users.Login)
		users.POST("/refresh-token", h.Users.RefreshToken)
		users.POST("/logout", auth.Require(h.Users.Logout))
		users.GET("/user-account", auth.Require(h.Users.GetAccount))
		users.PATCH("/update-account", auth.Require(h.Users.UpdateAccount))
		users.DELETE("/delete-account", auth.Require(h.Users.DeleteAccount))
	}

	links := v1.Group("/links")
	{
		links.GET("/r/:shortLink", h.Links.Redirect)
		links.POST("/create-link", auth.Require(h.Links.CreateLink))
		links.GET("/user-links", auth.Require(h.Links.ListLinks))
		links.PATCH("/update/:id", auth.Require(h.Links.UpdateLink))
		links.DELETE("/delete/:id", auth.Require(h.Links.DeleteLink))
	}

	analytics := v1.Group("/analytics")
	{
		analytics.GET("/track/:shortLink", h.Analytics.Track)
		analytics.GET("", auth.Require(h.Analytics.ListEvents))
		analytics.GET("/date-wise", auth.Require(h.Analytics.DateWise))
		analytics.GET("/device-wise", auth.Require(h.Analytics.DeviceWise))
		analytics.GET("/export", auth.Require(h.Analytics.Export))
	}

	return router
}
