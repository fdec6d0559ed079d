package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/80bir/marketplace-api/internal/domain/entity"
	apperrors "github.com/80bir/marketplace-api/internal/pkg/errors"
	"gorm.io/gorm"
)

type LoginOTPRepo struct {
	db *gorm.DB
}

func NewLoginOTPRepo(db *gorm.DB) *LoginOTPRepo {
	return &LoginOTPRepo{db: db}
}

func (r *LoginOTPRepo) Create(otp *entity.LoginOTP) error {
	return r.db.Create(otp).Error
}

func (r *LoginOTPRepo) GetLatestByEmail(email string) (*entity.LoginOTP, error) {
	var otp entity.LoginOTP
	err := r.db.
		Where("email = ?", email).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest login code: %w", err)
	}
	return &otp, nil
}

func (r *LoginOTPRepo) IncrementAttempts(id uint) error {
	return r.db.Model(&entity.LoginOTP{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

// Consume is a single conditional UPDATE guarded by consumed_at IS NULL so two
// concurrent verifications of the same code cannot both succeed.
func (r *LoginOTPRepo) Consume(id uint) error {
	now := time.Now()
	res := r.db.Model(&entity.LoginOTP{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", now)
	if res.Error != nil {
		return fmt.Errorf("failed to consume login code: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *LoginOTPRepo) InvalidatePending(email string) (int64, error) {
	now := time.Now()
	res := r.db.Model(&entity.LoginOTP{}).
		Where("email = ? AND consumed_at IS NULL", email).
		Update("consumed_at", now)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to invalidate pending login codes: %w", res.Error)
	}
	return res.RowsAffected, nil
}
