package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/80bir/marketplace-api/internal/pkg/errors"
	"github.com/80bir/marketplace-api/internal/service"
)

// NotificationHandler manages the push token registry.
type NotificationHandler struct {
	pushTokenService *service.PushTokenService
}

func NewNotificationHandler(pushTokenService *service.PushTokenService) *NotificationHandler {
	return &NotificationHandler{pushTokenService: pushTokenService}
}

// RegisterTokenRequest is the body of POST /notifications/register-token.
type RegisterTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	UserID   string `json:"user_id" binding:"required"`
	Platform string `json:"platform" binding:"omitempty,oneof=ios android web"`
}

// UnregisterTokenRequest is the body of DELETE /notifications/token.
type UnregisterTokenRequest struct {
	Token  string `json:"token" binding:"required"`
	UserID string `json:"user_id" binding:"required"`
}

// RegisterToken upserts a device token keyed by (user_id, token).
func (h *NotificationHandler) RegisterToken(c *gin.Context) {
	var req RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request"})
		return
	}

	if err := h.pushTokenService.Register(c.Request.Context(), req.UserID, req.Token, req.Platform); err != nil {
		h.respondTokenError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// UnregisterToken removes a device token, e.g. on logout.
func (h *NotificationHandler) UnregisterToken(c *gin.Context) {
	var req UnregisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request"})
		return
	}

	if err := h.pushTokenService.Unregister(c.Request.Context(), req.UserID, req.Token); err != nil {
		h.respondTokenError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListTokens returns the registered tokens for a user.
func (h *NotificationHandler) ListTokens(c *gin.Context) {
	userID := c.Param("user_id")

	tokens, err := h.pushTokenService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.respondTokenError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

func (h *NotificationHandler) respondTokenError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request"})
		return
	}
	log.Printf("[NotificationHandler] push token store error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update push tokens", "error_type": "internal_error"})
}
