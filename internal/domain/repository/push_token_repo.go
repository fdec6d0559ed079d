package repository

import (
	"github.com/80bir/marketplace-api/internal/domain/entity"
)

// PushTokenRepository persists device tokens for push notifications.
type PushTokenRepository interface {
	// Upsert inserts the (user, token) pair or refreshes it on conflict.
	Upsert(token *entity.PushToken) error
	Delete(userID, token string) error
	ListByUserID(userID string) ([]entity.PushToken, error)
}
