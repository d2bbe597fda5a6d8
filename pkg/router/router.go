package router

import (
	"net/http"
	"os"
	"time"

	"licenseguard/backend/internal/api"
	"licenseguard/backend/internal/ws"
	"licenseguard/backend/pkg/config"
	"licenseguard/backend/pkg/di"
	"licenseguard/backend/pkg/errors"
	"licenseguard/backend/pkg/logger"
	"licenseguard/backend/pkg/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Hub       *ws.Hub
	Config    *config.Config

	publicLimiter *middleware.RateLimiter
	userLimiter   *middleware.RateLimiter
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	// Use the container's logger
	logger.SetGlobal(container.Logger)

	cfg := container.Config

	// Configure Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		container.Logger.Warn("Invalid trusted proxies, trusting none", "error", err.Error())
		_ = engine.SetTrustedProxies(nil)
	}

	// Request id first so every log line and error carries it
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(corsMiddleware(cfg.Security.AllowedOrigins))
	engine.Use(middleware.NewHTTPMetrics(container.Registry).Middleware())
	engine.Use(maxBodySize(cfg.Security.MaxBodySize))

	limit := rate.Limit(cfg.Security.RateLimit)
	publicLimiter := middleware.NewRateLimiter(container.Logger, middleware.RateLimiterOptions{
		Limit:          limit,
		Burst:          cfg.Security.RateLimitBurst,
		ExpiryDuration: time.Hour,
		KeyFunc:        func(c *gin.Context) string { return "ip:" + c.ClientIP() },
	})
	userLimiter := middleware.NewRateLimiter(container.Logger, middleware.RateLimiterOptions{
		Limit:          limit,
		Burst:          cfg.Security.RateLimitBurst,
		ExpiryDuration: time.Hour,
		KeyFunc:        middleware.ClientKey,
	})

	hub := ws.NewHub(container.ChatService, cfg.Security.AllowedOrigins, cfg.Chat.ReplyTimeout, container.Logger)

	return &Router{
		Engine:        engine,
		Container:     container,
		Logger:        container.Logger,
		Hub:           hub,
		Config:        cfg,
		publicLimiter: publicLimiter,
		userLimiter:   userLimiter,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	// Must be installed before the API groups so their routes inherit it
	if r.Config.Security.OpenAPISchemaPath != "" {
		r.AddOpenAPIValidation(r.Config.Security.OpenAPISchemaPath)
	}

	r.setupHealthRoutes()

	c := r.Container
	jwtAuth := middleware.JWTAuthMiddleware(c.JWTService, c.UserService, c.KnownUsers, r.Logger)

	authHandler := api.NewAuthHandler(c.UserService)
	checkHandler := api.NewContentCheckHandler(c.ContentCheckService, c.DashboardService)
	chatHandler := api.NewChatHandler(c.ChatService)

	// Public routes are limited per client IP
	public := r.Engine.Group("/api")
	public.Use(r.publicLimiter.Middleware())
	authHandler.RegisterPublicRoutes(public)

	// Protected routes are limited per user once the token is verified
	protected := r.Engine.Group("/api")
	protected.Use(jwtAuth, r.userLimiter.Middleware())
	authHandler.RegisterRoutes(protected)
	checkHandler.RegisterRoutes(protected)
	chatHandler.RegisterRoutes(protected)

	r.Engine.GET("/ws/chat", jwtAuth, r.Hub.ServeWs)

	r.Engine.NoRoute(func(c *gin.Context) {
		_ = c.Error(errors.NewNotFoundError(errors.CodeNotFound, "Route not found"))
	})
}

// Stop releases background resources held by the router
func (r *Router) Stop() {
	r.publicLimiter.Stop()
	r.userLimiter.Stop()
	r.Hub.Close()
}

func corsMiddleware(allowed []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID", "Upgrade", "Connection"},
		ExposeHeaders:    []string{"X-Request-ID", "Location"},
		AllowWebSockets:  true,
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = allowed
	}
	return cors.New(cfg)
}

func maxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// version reported by the health endpoint
func version() string {
	if v := os.Getenv("APP_VERSION"); v != "" {
		return v
	}
	return "dev"
}
