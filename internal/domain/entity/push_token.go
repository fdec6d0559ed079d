package entity

import "time"

// PushToken is a device token registered for push notifications. Delivery is
// handled by the external provider; this table only keeps the registry.
type PushToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:idx_push_tokens_user_token" json:"user_id"`
	Token     string    `gorm:"size:255;not null;uniqueIndex:idx_push_tokens_user_token" json:"token"`
	Platform  string    `gorm:"size:20" json:"platform,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PushToken) TableName() string {
	return "push_tokens"
}
