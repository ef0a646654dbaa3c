package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"darkroom/internal/auth"
)

type loginRequest struct {
	Secret string `json:"secret" binding:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// handleLogin exchanges the shared admin secret for a session token.
func (s *Server) handleLogin(c *gin.Context) {
	if !s.loginLimiter.allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "secret is required"})
		return
	}

	ok, err := auth.VerifySecret(req.Secret, s.secretHash)
	if err != nil {
		s.logger.Error("secret verification failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
		return
	}

	token, expiresAt, err := s.tokens.Issue()
	if err != nil {
		s.logger.Error("token issue failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}
