package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/80bir/marketplace-api/internal/domain/repository"
	apperrors "github.com/80bir/marketplace-api/internal/pkg/errors"
)

// TrustService answers whether an (email, IP) pair completed an OTP login
// within the rolling trust window. The signal is advisory: it selects whether
// the UI asks for a code again, it never blocks a login.
type TrustService struct {
	trustRepo repository.TrustedIPRepository
	window    time.Duration
	ipPepper  string
}

func NewTrustService(trustRepo repository.TrustedIPRepository, window time.Duration, ipPepper string) (*TrustService, error) {
	if trustRepo == nil {
		return nil, fmt.Errorf("trusted IP repository is required")
	}
	if ipPepper == "" {
		return nil, fmt.Errorf("IP pepper is required")
	}
	if window <= 0 {
		window = 90 * 24 * time.Hour
	}
	return &TrustService{
		trustRepo: trustRepo,
		window:    window,
		ipPepper:  ipPepper,
	}, nil
}

// IsTrusted reports whether the pair was seen inside the window. An empty IP
// or a store failure yields false, never an error: the caller falls back to
// the OTP step.
func (s *TrustService) IsTrusted(ctx context.Context, email, ip string) bool {
	email = NormalizeEmail(email)
	if email == "" || ip == "" {
		return false
	}

	rec, err := s.trustRepo.GetByEmailAndHash(email, hashEmailIP(email, ip, s.ipPepper))
	if err != nil {
		if err != apperrors.ErrNotFound {
			log.Printf("[TrustService] trust lookup failed for %s: %v", email, err)
		}
		return false
	}

	return rec.WithinWindow(time.Now(), s.window)
}

// MarkTrusted records a successful OTP login from the IP. Returns whether a
// record was written; an empty IP is skipped silently.
func (s *TrustService) MarkTrusted(ctx context.Context, email, ip string) (bool, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return false, fmt.Errorf("%w: empty email", apperrors.ErrValidation)
	}
	if ip == "" {
		return false, nil
	}

	if err := s.trustRepo.Upsert(email, hashEmailIP(email, ip, s.ipPepper)); err != nil {
		return false, err
	}
	return true, nil
}

// hashEmailIP is deliberately salt-free: the digest is the lookup key, so the
// same pair must always map to the same value. The pepper keeps it one-way.
func hashEmailIP(email, ip, pepper string) string {
	sum := sha256.Sum256([]byte(pepper + ":" + email + ":" + ip))
	return hex.EncodeToString(sum[:])
}
