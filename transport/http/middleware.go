package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/layer-3/questauth/core"
	"github.com/layer-3/questauth/internal/logger"
	"github.com/layer-3/questauth/internal/metrics"
	"github.com/layer-3/questauth/service"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"

	accountKey      = "account"
	sessionTokenKey = "sessionToken"
)

// bearerToken extracts the token from an "Authorization: Bearer <token>" header
func bearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	if len(auth) < 8 || auth[:7] != "Bearer " {
		return "", false
	}

	token := strings.TrimSpace(auth[7:])
	return token, token != ""
}

// RequestLogger logs every request and records its latency
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(latency.Seconds())

		reqLog := logger.WithRequestID(log, requestID)
		reqLog.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// requestLogger returns log tagged with the current request ID
func requestLogger(c *gin.Context, log zerolog.Logger) *zerolog.Logger {
	l := logger.WithRequestID(log, c.GetString(requestIDKey))
	return &l
}

// SessionMiddleware rejects requests without a live bearer session and
// stores the session's account and token in the context
func SessionMiddleware(authService *service.AuthService, log zerolog.Logger) gin.HandlerFunc {
	return sessionGuard(authService, log, nil)
}

// LinkSessionMiddleware applies SessionMiddleware to ?type=link requests only
func LinkSessionMiddleware(authService *service.AuthService, log zerolog.Logger) gin.HandlerFunc {
	return sessionGuard(authService, log, func(c *gin.Context) bool {
		return c.Query("type") == string(service.FlowLink)
	})
}

func sessionGuard(authService *service.AuthService, log zerolog.Logger, applies func(*gin.Context) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if applies != nil && !applies(c) {
			c.Next()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			unauthorized(c, "Invalid or missing Authorization header")
			return
		}

		account, err := authService.ValidateSessionToken(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, core.ErrExpiredToken):
				unauthorized(c, "Token expired")
			case core.IsClientError(err):
				unauthorized(c, "Invalid token")
			default:
				requestLogger(c, log).Error().Err(err).Msg("failed to validate session")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		c.Set(accountKey, account)
		c.Set(sessionTokenKey, token)

		c.Next()
	}
}

// sessionFromContext returns what SessionMiddleware stored
func sessionFromContext(c *gin.Context) (*core.Account, string, bool) {
	account, ok := c.Get(accountKey)
	if !ok {
		return nil, "", false
	}
	return account.(*core.Account), c.GetString(sessionTokenKey), true
}
