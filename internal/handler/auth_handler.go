package handler

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/80bir/marketplace-api/internal/pkg/errors"
	"github.com/80bir/marketplace-api/internal/service"
)

// AuthHandler serves the OTP login flow and the trusted-IP check.
type AuthHandler struct {
	otpService   *service.OTPService
	trustService *service.TrustService
	tokenService *service.TokenService
}

func NewAuthHandler(otpService *service.OTPService, trustService *service.TrustService, tokenService *service.TokenService) *AuthHandler {
	return &AuthHandler{
		otpService:   otpService,
		trustService: trustService,
		tokenService: tokenService,
	}
}

// StartOTPRequest is the body of POST /otp/start.
type StartOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyOTPRequest is the body of POST /otp/verify.
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// TrustCheckRequest is the body of POST /auth/trust-check.
type TrustCheckRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// StartOTP issues a login code and emails it.
func (h *AuthHandler) StartOTP(c *gin.Context) {
	var req StartOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request"})
		return
	}

	if err := h.otpService.RequestCode(c.Request.Context(), req.Email); err != nil {
		h.respondOTPError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":                  true,
		"expires_in_sec":      int(h.otpService.CodeTTL().Seconds()),
		"resend_cooldown_sec": int(h.otpService.ResendCooldown().Seconds()),
	})
}

// VerifyOTP checks a candidate code, marks the caller's IP trusted and returns
// a short-lived verification proof token. Establishing the session itself is
// left to the auth platform the page talks to afterwards.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request"})
		return
	}

	if err := h.otpService.VerifyCode(c.Request.Context(), req.Email, req.Code); err != nil {
		h.respondOTPError(c, err)
		return
	}

	trusted := false
	if ip := clientIPFromRequest(c); ip != "" {
		recorded, err := h.trustService.MarkTrusted(c.Request.Context(), req.Email, ip)
		if err != nil {
			// Trust bookkeeping must not fail an otherwise successful login.
			log.Printf("[AuthHandler] failed to record trusted IP for %s: %v", req.Email, err)
		} else {
			trusted = recorded
		}
	}

	token, expiresIn, err := h.tokenService.Mint(service.NormalizeEmail(req.Email))
	if err != nil {
		log.Printf("[AuthHandler] failed to mint verification token for %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification succeeded but token minting failed", "error_type": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":                  true,
		"verification_token":  token,
		"expires_in_sec":      expiresIn,
		"trusted_ip_recorded": trusted,
	})
}

// OTPStatus reports cooldown and attempt state for an email.
func (h *AuthHandler) OTPStatus(c *gin.Context) {
	email := c.Query("email")
	if strings.TrimSpace(email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email query parameter is required", "error_type": "invalid_request"})
		return
	}

	status, err := h.otpService.GetStatus(c.Request.Context(), email)
	if err != nil {
		h.respondOTPError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// TrustCheck reports whether the caller's IP completed an OTP login for the
// email within the trust window. Advisory only: failures and unknown IPs all
// answer trusted=false with status 200.
func (h *AuthHandler) TrustCheck(c *gin.Context) {
	var email string
	if c.Request.Method == http.MethodGet {
		email = c.Query("email")
	} else {
		var req TrustCheckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request"})
			return
		}
		email = req.Email
	}
	if strings.TrimSpace(email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required", "error_type": "invalid_request"})
		return
	}

	trusted := h.trustService.IsTrusted(c.Request.Context(), email, clientIPFromRequest(c))
	c.JSON(http.StatusOK, gin.H{"trusted": trusted})
}

// respondOTPError maps service sentinels to stable error_type values.
func (h *AuthHandler) respondOTPError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "invalid_request"})
	case errors.Is(err, service.ErrResendCooldown):
		c.Header("Retry-After", fmt.Sprintf("%d", int(h.otpService.ResendCooldown().Seconds())))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Please wait before requesting a new code", "error_type": "rate_limited"})
	case errors.Is(err, service.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid login code", "error_type": "invalid_code"})
	case errors.Is(err, service.ErrCodeExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Login code expired", "error_type": "code_expired"})
	case errors.Is(err, service.ErrCodeConsumed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Login code already used", "error_type": "code_consumed"})
	case errors.Is(err, service.ErrAttemptsExceeded):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many wrong attempts for this code", "error_type": "attempts_exceeded"})
	case errors.Is(err, service.ErrEmailDelivery):
		log.Printf("[AuthHandler] email delivery failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deliver the login code", "error_type": "email_delivery_failed"})
	default:
		log.Printf("[AuthHandler] OTP flow error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_error"})
	}
}

// clientIPFromRequest resolves the caller's IP: first X-Forwarded-For entry,
// then the CDN header, then the socket address. Returns "" when nothing
// resolves; callers treat that as not trusted rather than as an error.
func clientIPFromRequest(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if cf := strings.TrimSpace(c.GetHeader("CF-Connecting-IP")); cf != "" {
		return cf
	}
	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(c.Request.RemoteAddr)
}
