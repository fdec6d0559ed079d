package postgres

import (
	"fmt"
	"time"

	"github.com/80bir/marketplace-api/internal/domain/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PushTokenRepo struct {
	db *gorm.DB
}

func NewPushTokenRepo(db *gorm.DB) *PushTokenRepo {
	return &PushTokenRepo{db: db}
}

func (r *PushTokenRepo) Upsert(token *entity.PushToken) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"platform":   token.Platform,
			"updated_at": time.Now(),
		}),
	}).Create(token).Error
	if err != nil {
		return fmt.Errorf("failed to upsert push token: %w", err)
	}
	return nil
}

func (r *PushTokenRepo) Delete(userID, token string) error {
	return r.db.
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&entity.PushToken{}).Error
}

func (r *PushTokenRepo) ListByUserID(userID string) ([]entity.PushToken, error) {
	var tokens []entity.PushToken
	err := r.db.
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list push tokens: %w", err)
	}
	return tokens, nil
}
