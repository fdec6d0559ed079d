package service

import "errors"

// Auth flow specific errors used by handlers for stable error_type mapping.
var (
	ErrInvalidCode      = errors.New("invalid_code")
	ErrCodeExpired      = errors.New("code_expired")
	ErrCodeConsumed     = errors.New("code_consumed")
	ErrAttemptsExceeded = errors.New("attempts_exceeded")
	ErrResendCooldown   = errors.New("resend_cooldown")
	ErrEmailDelivery    = errors.New("email_delivery_failed")
)
