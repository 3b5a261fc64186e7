package handler

import (
	"card-vault/internal/adapter/http/middleware"
	redisStore "card-vault/internal/adapter/storage/redis"
	"card-vault/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	CardSvc        ports.CardService
	TransferSvc    ports.TransferService
	UserSvc        ports.UserService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Public routes ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/signup", rl("auth_signup"), authHandler.SignUp)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- Cardholder routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	cardHandler := NewCardHandler(deps.CardSvc)
	cards := v1.Group("/cards", jwtAuth)
	{
		cards.GET("", rl("cards"), cardHandler.List)
		cards.POST("/:id/block", rl("cards"), cardHandler.Block)
	}

	transferHandler := NewTransferHandler(deps.TransferSvc)
	transfers := v1.Group("/transfers", jwtAuth)
	{
		transfers.POST("", rl("transfers"), transferHandler.Transfer)
	}

	// --- Administrative routes ---
	adminHandler := NewAdminHandler(deps.CardSvc, deps.UserSvc)
	admin := v1.Group("/admin", jwtAuth, middleware.RequireAdmin())
	{
		admin.POST("/cards", rl("admin"), adminHandler.CreateCard)
		admin.GET("/cards", rl("admin"), adminHandler.ListCards)
		admin.POST("/cards/:id/status", rl("admin"), adminHandler.SetCardStatus)
		admin.DELETE("/cards/:id", rl("admin"), adminHandler.DeleteCard)
		admin.GET("/users", rl("admin"), adminHandler.ListUsers)
	}

	return r
}
