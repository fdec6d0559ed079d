package entity

import "time"

// LoginOTP stores a hashed one-time login code issued for an email address.
// Rows are never deleted; consumed and superseded codes remain for audit.
type LoginOTP struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"size:100;not null;index" json:"email"`
	CodeHash     string     `gorm:"size:64;not null" json:"-"`
	CodeSalt     string     `gorm:"size:64;not null" json:"-"`
	ExpiresAt    time.Time  `gorm:"not null;index" json:"expires_at"`
	AttemptCount int        `gorm:"not null;default:0" json:"attempt_count"`
	MaxAttempts  int        `gorm:"not null;default:5" json:"max_attempts"`
	LastSentAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"last_sent_at"`
	ConsumedAt   *time.Time `gorm:"index" json:"consumed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (LoginOTP) TableName() string {
	return "login_otps"
}

func (o *LoginOTP) IsConsumed() bool {
	return o.ConsumedAt != nil
}

func (o *LoginOTP) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

func (o *LoginOTP) AttemptsExhausted() bool {
	return o.AttemptCount >= o.MaxAttempts
}
