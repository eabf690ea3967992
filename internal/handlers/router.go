package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pickup-backend/internal/identity"
	"pickup-backend/internal/lifecycle"
	"pickup-backend/internal/metrics"
	"pickup-backend/internal/middleware"
	"pickup-backend/internal/models"
)

type Dependencies struct {
	Identity  *identity.Service
	Lifecycle *lifecycle.Service
	Tokens    TokenSettings
	Ping      func(ctx context.Context) error
	Logger    *zap.Logger
}

func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.AccessLog(deps.Logger), gin.Recovery())
	RegisterRoutes(r, deps)
	return r
}

func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	secret := deps.Tokens.Secret

	r.GET("/healthz", Healthz(deps.Ping, logger))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	signup := Signup(deps.Identity, deps.Tokens, logger)
	login := Login(deps.Identity, deps.Tokens, logger)
	r.POST("/signup", signup)
	r.POST("/login", login)

	auth := r.Group("/auth")
	{
		auth.POST("/signup", signup)
		auth.POST("/login", login)
		auth.POST("/refresh", Refresh(deps.Identity, deps.Tokens, logger))
		auth.POST("/logout", Logout(deps.Identity, logger))
		auth.GET("/me", middleware.AuthGuard(secret, logger), GetMe(deps.Identity, logger))
	}

	api := r.Group("/api")
	api.Use(middleware.AuthGuard(secret, logger))
	{
		api.GET("/verification-questions", GetVerificationQuestions())
		api.POST("/predict", PredictPrice(deps.Lifecycle, logger))

		api.GET("/accounts/:id/requests", ListAccountRequests(deps.Lifecycle, logger))

		api.POST("/requests", middleware.AuthGuard(secret, logger, models.RoleDispatcher), CreatePickupRequest(deps.Lifecycle, logger))
		api.GET("/requests/:id", GetPickupRequest(deps.Lifecycle, logger))
		api.PUT("/requests/:id", UpdatePickupRequest(deps.Lifecycle, logger))
		api.GET("/requests/:id/report", GetRequestReport(deps.Lifecycle, logger))
		api.POST("/requests/:id/prediction", PredictForRequest(deps.Lifecycle, logger))
	}
}
