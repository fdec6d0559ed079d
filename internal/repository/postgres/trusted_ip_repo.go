package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/80bir/marketplace-api/internal/domain/entity"
	apperrors "github.com/80bir/marketplace-api/internal/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TrustedIPRepo struct {
	db *gorm.DB
}

func NewTrustedIPRepo(db *gorm.DB) *TrustedIPRepo {
	return &TrustedIPRepo{db: db}
}

func (r *TrustedIPRepo) GetByEmailAndHash(email, ipHash string) (*entity.TrustedIP, error) {
	var rec entity.TrustedIP
	err := r.db.
		Where("email = ? AND ip_hash = ?", email, ipHash).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get trusted IP record: %w", err)
	}
	return &rec, nil
}

func (r *TrustedIPRepo) Upsert(email, ipHash string) error {
	now := time.Now()
	rec := entity.TrustedIP{
		Email:       email,
		IPHash:      ipHash,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}, {Name: "ip_hash"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"last_seen_at": now}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert trusted IP record: %w", err)
	}
	return nil
}
