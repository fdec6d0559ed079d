package entity

import "time"

// TrustedIP records that a login from a given (email, IP) pair completed the
// OTP step. Only a one-way digest of the pair is stored, never the raw IP.
// The digest doubles as the lookup key, so it carries no per-row salt.
type TrustedIP struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"size:100;not null;uniqueIndex:idx_trusted_ips_email_hash" json:"email"`
	IPHash      string    `gorm:"size:64;not null;uniqueIndex:idx_trusted_ips_email_hash" json:"-"`
	FirstSeenAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"first_seen_at"`
	LastSeenAt  time.Time `gorm:"not null;index" json:"last_seen_at"`
}

func (TrustedIP) TableName() string {
	return "login_trusted_ips"
}

// WithinWindow reports whether the record is still inside the rolling trust
// window. Exactly at the boundary the trust has lapsed.
func (t *TrustedIP) WithinWindow(now time.Time, window time.Duration) bool {
	return now.Sub(t.LastSeenAt) < window
}
