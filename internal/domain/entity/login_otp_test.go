package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginOTP_IsExpired(t *testing.T) {
	now := time.Now()
	otp := &LoginOTP{ExpiresAt: now.Add(5 * time.Minute)}

	assert.False(t, otp.IsExpired(now))
	assert.False(t, otp.IsExpired(now.Add(5*time.Minute))) // boundary: not yet past
	assert.True(t, otp.IsExpired(now.Add(5*time.Minute+time.Second)))
}

func TestLoginOTP_IsConsumed(t *testing.T) {
	otp := &LoginOTP{}
	assert.False(t, otp.IsConsumed())

	now := time.Now()
	otp.ConsumedAt = &now
	assert.True(t, otp.IsConsumed())
}

func TestLoginOTP_AttemptsExhausted(t *testing.T) {
	otp := &LoginOTP{AttemptCount: 4, MaxAttempts: 5}
	assert.False(t, otp.AttemptsExhausted())

	otp.AttemptCount = 5
	assert.True(t, otp.AttemptsExhausted())
}

func TestTrustedIP_WithinWindow(t *testing.T) {
	now := time.Now()
	window := 90 * 24 * time.Hour

	rec := &TrustedIP{LastSeenAt: now.Add(-window + time.Second)}
	assert.True(t, rec.WithinWindow(now, window))

	// Exactly at the boundary trust has lapsed.
	rec.LastSeenAt = now.Add(-window)
	assert.False(t, rec.WithinWindow(now, window))

	rec.LastSeenAt = now.Add(-window - time.Hour)
	assert.False(t, rec.WithinWindow(now, window))
}
