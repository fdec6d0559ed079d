package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/80bir/marketplace-api/internal/domain/entity"
	"github.com/80bir/marketplace-api/internal/domain/repository"
	apperrors "github.com/80bir/marketplace-api/internal/pkg/errors"
)

// PushTokenService maintains the device token registry. Delivery itself is
// the push provider's job; only the token bookkeeping lives here.
type PushTokenService struct {
	tokenRepo repository.PushTokenRepository
}

func NewPushTokenService(tokenRepo repository.PushTokenRepository) (*PushTokenService, error) {
	if tokenRepo == nil {
		return nil, fmt.Errorf("push token repository is required")
	}
	return &PushTokenService{tokenRepo: tokenRepo}, nil
}

func (s *PushTokenService) Register(ctx context.Context, userID, token, platform string) error {
	userID = strings.TrimSpace(userID)
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return fmt.Errorf("%w: user_id and token are required", apperrors.ErrValidation)
	}

	rec := &entity.PushToken{
		UserID:   userID,
		Token:    token,
		Platform: strings.TrimSpace(platform),
	}
	if err := s.tokenRepo.Upsert(rec); err != nil {
		return fmt.Errorf("failed to register push token: %w", err)
	}
	return nil
}

func (s *PushTokenService) Unregister(ctx context.Context, userID, token string) error {
	userID = strings.TrimSpace(userID)
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return fmt.Errorf("%w: user_id and token are required", apperrors.ErrValidation)
	}

	if err := s.tokenRepo.Delete(userID, token); err != nil {
		return fmt.Errorf("failed to unregister push token: %w", err)
	}
	return nil
}

func (s *PushTokenService) ListForUser(ctx context.Context, userID string) ([]entity.PushToken, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", apperrors.ErrValidation)
	}
	return s.tokenRepo.ListByUserID(userID)
}
