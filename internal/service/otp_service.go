package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/80bir/marketplace-api/internal/domain/entity"
	"github.com/80bir/marketplace-api/internal/domain/repository"
	apperrors "github.com/80bir/marketplace-api/internal/pkg/errors"
	"github.com/google/uuid"
)

// OTPStatus is a snapshot of the login-code state for an email address.
type OTPStatus struct {
	Email                string     `json:"email"`
	HasPendingCode       bool       `json:"has_pending_code"`
	CanRequestCode       bool       `json:"can_request_code"`
	CooldownRemainingSec int        `json:"cooldown_remaining_sec"`
	ExpiresAt            *time.Time `json:"expires_at,omitempty"`
	AttemptsLeft         int        `json:"attempts_left"`
}

// OTPService issues and verifies one-time login codes. Codes are stored as
// salted, peppered sha256 digests; the plaintext only travels in the email.
type OTPService struct {
	otpRepo        repository.LoginOTPRepository
	emailService   EmailService
	codeTTL        time.Duration
	resendCooldown time.Duration
	maxAttempts    int
	codePepper     string
}

func NewOTPService(
	otpRepo repository.LoginOTPRepository,
	emailService EmailService,
	codeTTL time.Duration,
	resendCooldown time.Duration,
	maxAttempts int,
	codePepper string,
) (*OTPService, error) {
	if otpRepo == nil {
		return nil, fmt.Errorf("login OTP repository is required")
	}
	if emailService == nil {
		return nil, fmt.Errorf("email service is required")
	}
	if codePepper == "" {
		return nil, fmt.Errorf("code pepper is required")
	}
	if codeTTL <= 0 {
		codeTTL = 5 * time.Minute
	}
	if resendCooldown <= 0 {
		resendCooldown = 30 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	return &OTPService{
		otpRepo:        otpRepo,
		emailService:   emailService,
		codeTTL:        codeTTL,
		resendCooldown: resendCooldown,
		maxAttempts:    maxAttempts,
		codePepper:     codePepper,
	}, nil
}

// RequestCode issues a new login code for the email and dispatches it.
// Any earlier pending codes for the email are invalidated in the same call.
func (s *OTPService) RequestCode(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: empty email", apperrors.ErrValidation)
	}

	now := time.Now()
	latest, err := s.otpRepo.GetLatestByEmail(email)
	if err == nil && latest != nil {
		if now.Before(latest.LastSentAt.Add(s.resendCooldown)) {
			return fmt.Errorf("%w: please wait before requesting a new code", ErrResendCooldown)
		}
	}

	code, err := generateLoginCode()
	if err != nil {
		return fmt.Errorf("failed to generate login code: %w", err)
	}
	salt, err := generateCodeSalt()
	if err != nil {
		return fmt.Errorf("failed to generate code salt: %w", err)
	}

	// Stale codes must not stay verifiable once a new one is out.
	if invalidated, err := s.otpRepo.InvalidatePending(email); err != nil {
		return fmt.Errorf("failed to invalidate pending login codes: %w", err)
	} else if invalidated > 0 {
		log.Printf("[OTPService] invalidated %d pending code(s) for %s", invalidated, email)
	}

	record := &entity.LoginOTP{
		Email:       email,
		CodeHash:    hashLoginCode(code, salt, s.codePepper),
		CodeSalt:    salt,
		ExpiresAt:   now.Add(s.codeTTL),
		MaxAttempts: s.maxAttempts,
		LastSentAt:  now,
	}
	if err := s.otpRepo.Create(record); err != nil {
		return fmt.Errorf("failed to create login code record: %w", err)
	}

	// The record stays valid if dispatch fails; the caller may retry delivery
	// through another channel without restarting the flow.
	idempotencyKey := fmt.Sprintf("login-otp:%d:%s", record.ID, uuid.NewString())
	if err := s.emailService.SendLoginCode(ctx, email, code, idempotencyKey); err != nil {
		return fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}

	return nil
}

// VerifyCode checks the candidate code against the most recent record for the
// email and consumes it on success.
func (s *OTPService) VerifyCode(ctx context.Context, email, code string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: empty email", apperrors.ErrValidation)
	}
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: empty login code", apperrors.ErrValidation)
	}

	record, err := s.otpRepo.GetLatestByEmail(email)
	if err != nil {
		if err == apperrors.ErrNotFound {
			return ErrInvalidCode
		}
		return err
	}

	// Check order: match first, then consumed, then expired. A wrong code is
	// reported as invalid even when the record is already spent.
	now := time.Now()
	expectedHash := hashLoginCode(strings.TrimSpace(code), record.CodeSalt, s.codePepper)
	if subtle.ConstantTimeCompare([]byte(expectedHash), []byte(record.CodeHash)) != 1 {
		if !record.IsConsumed() && !record.IsExpired(now) {
			_ = s.otpRepo.IncrementAttempts(record.ID)
			if record.AttemptCount+1 >= record.MaxAttempts {
				return ErrAttemptsExceeded
			}
		}
		return ErrInvalidCode
	}
	if record.IsConsumed() {
		return ErrCodeConsumed
	}
	if record.IsExpired(now) {
		return ErrCodeExpired
	}
	if record.AttemptsExhausted() {
		return ErrAttemptsExceeded
	}

	if err := s.otpRepo.Consume(record.ID); err != nil {
		if err == apperrors.ErrConflict {
			// A concurrent request consumed the code first.
			return ErrCodeConsumed
		}
		return fmt.Errorf("failed to consume login code: %w", err)
	}

	return nil
}

// GetStatus reports cooldown and attempt state without touching any record.
func (s *OTPService) GetStatus(ctx context.Context, email string) (*OTPStatus, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: empty email", apperrors.ErrValidation)
	}

	status := &OTPStatus{
		Email:          email,
		CanRequestCode: true,
		AttemptsLeft:   s.maxAttempts,
	}

	latest, err := s.otpRepo.GetLatestByEmail(email)
	if err != nil {
		if err == apperrors.ErrNotFound {
			return status, nil
		}
		return nil, err
	}

	now := time.Now()
	if latest.ExpiresAt.After(now) && !latest.IsConsumed() {
		exp := latest.ExpiresAt
		status.HasPendingCode = true
		status.ExpiresAt = &exp
		status.AttemptsLeft = latest.MaxAttempts - latest.AttemptCount
		if status.AttemptsLeft < 0 {
			status.AttemptsLeft = 0
		}
	}

	cooldownRemaining := int(latest.LastSentAt.Add(s.resendCooldown).Sub(now).Seconds())
	if cooldownRemaining > 0 {
		status.CanRequestCode = false
		status.CooldownRemainingSec = cooldownRemaining
	}

	return status, nil
}

// CodeTTL exposes the configured validity window (for response payloads).
func (s *OTPService) CodeTTL() time.Duration {
	return s.codeTTL
}

// ResendCooldown exposes the configured issuance cooldown.
func (s *OTPService) ResendCooldown() time.Duration {
	return s.resendCooldown
}

// NormalizeEmail lowercases and trims an address so digests and lookups agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateLoginCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func generateCodeSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashLoginCode(code, salt, pepper string) string {
	sum := sha256.Sum256([]byte(pepper + ":" + salt + ":" + code))
	return hex.EncodeToString(sum[:])
}
