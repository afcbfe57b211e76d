package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/reelgate/reelgate/internal/app"
	"github.com/reelgate/reelgate/internal/audit"
	iauth "github.com/reelgate/reelgate/internal/auth"
	"github.com/reelgate/reelgate/internal/handlers"
	"github.com/reelgate/reelgate/internal/middleware"
	"github.com/reelgate/reelgate/internal/store"
)

// Deps bundles the constructed services the router wires into handlers.
type Deps struct {
	DB       *gorm.DB
	Config   *app.Config
	Auth     *iauth.Service
	Tokens   *iauth.TokenService
	Users    store.UserStore
	Recorder *audit.Recorder
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service must be provided")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service must be provided")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user store must be provided")
	}
	if deps.Recorder == nil {
		return nil, fmt.Errorf("audit recorder must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	if deps.Config.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(deps.DB))
	}
	if deps.Config.Monitoring.Prometheus.Enabled {
		endpoint := deps.Config.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Users)
	auditHandler := handlers.NewAuditHandler(deps.Recorder)

	// Public auth routes
	authRoutes := r.Group("/api/auth")
	{
		authRoutes.POST("/signup", authHandler.SignUp)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/refresh", authHandler.Refresh)
		authRoutes.POST("/google", authHandler.GoogleLogin)
		authRoutes.POST("/verify-email", authHandler.VerifyEmail)
		authRoutes.POST("/resend-verification", authHandler.ResendVerification)
		authRoutes.POST("/forgot-password", authHandler.ForgotPassword)
		authRoutes.POST("/reset-password", authHandler.ResetPassword)
	}

	// Protected routes
	requireAuth := middleware.Auth(deps.Tokens)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)
	api.GET("/audit/logins", middleware.RequireAdmin(), auditHandler.List)

	return r, nil
}
