package http

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/questauth/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterConfig holds HTTP surface settings
type RouterConfig struct {
	AllowedOrigins     []string
	RateLimitPerMinute int

	// TrustedProxies lists the peers whose X-Forwarded-For is honoured.
	// Empty means the socket peer is always the client IP.
	TrustedProxies []string
}

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, cfg RouterConfig, logger zerolog.Logger) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(gin.Recovery(), RequestLogger(logger))

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	router.Use(cors.New(corsConfig))

	handlers := NewAuthHandlers(authService, logger)

	router.GET("/healthz", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	nonceLimiter := NewRateLimiter(cfg.RateLimitPerMinute)
	verifyLimiter := NewRateLimiter(cfg.RateLimitPerMinute)

	// Auth routes
	web3 := router.Group("/auth/web3")
	{
		web3.POST("/generate-nonce", nonceLimiter.Middleware(), handlers.GenerateNonce)
		web3.POST("/verify-signature", verifyLimiter.Middleware(), LinkSessionMiddleware(authService, logger), handlers.VerifySignature)
		web3.GET("/is-valid", handlers.IsValid)
		web3.DELETE("/deactivate", SessionMiddleware(authService, logger), handlers.Deactivate)
	}

	return router, nil
}
