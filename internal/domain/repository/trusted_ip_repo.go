package repository

import (
	"github.com/80bir/marketplace-api/internal/domain/entity"
)

// TrustedIPRepository persists trusted (email, IP digest) pairs.
type TrustedIPRepository interface {
	GetByEmailAndHash(email, ipHash string) (*entity.TrustedIP, error)

	// Upsert creates the pair or refreshes last_seen_at on conflict.
	Upsert(email, ipHash string) error
}
