package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/questauth/core"
	"github.com/layer-3/questauth/service"
	"github.com/rs/zerolog"
)

// AuthHandlers contains HTTP handlers for the web3 auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	logger      zerolog.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, logger zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

// GenerateNonce issues a challenge token for the address given in the query or the JSON body
func (h *AuthHandlers) GenerateNonce(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		var req struct {
			Address string `json:"address" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
			return
		}
		address = req.Address
	}

	token, err := h.authService.CreateChallenge(c.Request.Context(), address)
	if err != nil {
		requestLogger(c, h.logger).Error().Err(err).Msg("failed to create challenge")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"temp_token": token})
}

// VerifySignature exchanges a signed challenge for a session token (sign_in)
// or attaches the wallet to the caller's account (link)
func (h *AuthHandlers) VerifySignature(c *gin.Context) {
	flow, err := service.ParseFlow(c.Query("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		TempToken string `json:"temp_token" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	verifyReq := service.VerifyRequest{
		Flow:           flow,
		ChallengeToken: req.TempToken,
		Signature:      req.Signature,
		ClientIP:       c.ClientIP(),
	}

	if flow == service.FlowLink {
		_, token, ok := sessionFromContext(c)
		if !ok {
			unauthorized(c, "Invalid or missing Authorization header")
			return
		}
		verifyReq.SessionToken = token
	}

	result, err := h.authService.VerifySignature(c.Request.Context(), verifyReq)
	if err != nil {
		log := requestLogger(c, h.logger)
		if core.IsClientError(err) {
			log.Warn().Err(err).Str("flow", string(flow)).Msg("signature verification rejected")
			c.JSON(http.StatusBadRequest, gin.H{"error": "verification failed"})
			return
		}
		log.Error().Err(err).Str("flow", string(flow)).Msg("signature verification failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	verb := "registered"
	if result.Linked {
		verb = "linked"
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": result.SessionToken,
		"message":      fmt.Sprintf("Wallet %s has been %s successfully", result.Address, verb),
	})
}

// IsValid reports whether the bearer session token is live
func (h *AuthHandlers) IsValid(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		unauthorized(c, "Invalid or missing Authorization header")
		return
	}

	c.JSON(http.StatusOK, gin.H{"is_valid": h.authService.IsValid(c.Request.Context(), token)})
}

// Deactivate revokes the session validated by SessionMiddleware
func (h *AuthHandlers) Deactivate(c *gin.Context) {
	_, token, ok := sessionFromContext(c)
	if !ok {
		unauthorized(c, "Invalid or missing Authorization header")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		if core.IsClientError(err) {
			unauthorized(c, "Invalid token")
			return
		}
		requestLogger(c, h.logger).Error().Err(err).Msg("failed to deactivate session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Health reports liveness
func (h *AuthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
