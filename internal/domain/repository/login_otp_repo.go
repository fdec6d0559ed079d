package repository

import (
	"github.com/80bir/marketplace-api/internal/domain/entity"
)

// LoginOTPRepository persists issued login codes.
type LoginOTPRepository interface {
	Create(otp *entity.LoginOTP) error

	// GetLatestByEmail returns the most recently created code for the email,
	// consumed or not. Older rows are never considered by the verifier.
	GetLatestByEmail(email string) (*entity.LoginOTP, error)

	IncrementAttempts(id uint) error

	// Consume marks the row consumed only if it is not consumed yet. It
	// returns apperrors.ErrConflict when another request got there first.
	Consume(id uint) error

	// InvalidatePending marks every unconsumed row for the email consumed.
	// Called before issuing a new code so stale codes fail closed.
	InvalidatePending(email string) (int64, error)
}
