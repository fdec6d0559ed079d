package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// VerificationClaims prove that an email completed the OTP step. The token is
// not a session: the page exchanges it with the external auth platform.
type VerificationClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

const verificationPurpose = "email_otp"

// TokenService mints short-lived HS256 proof tokens after OTP verification.
type TokenService struct {
	secret []byte
	expiry time.Duration
}

func NewTokenService(secret string, expiry time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if expiry <= 0 {
		expiry = 5 * time.Minute
	}
	return &TokenService{
		secret: []byte(secret),
		expiry: expiry,
	}, nil
}

// Mint returns a signed proof token for the email and its lifetime in seconds.
func (s *TokenService) Mint(email string) (string, int, error) {
	now := time.Now()
	claims := VerificationClaims{
		Email:   email,
		Purpose: verificationPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign verification token: %w", err)
	}
	return signed, int(s.expiry.Seconds()), nil
}

// Validate parses a proof token and returns the email it vouches for.
func (s *TokenService) Validate(tokenString string) (string, error) {
	claims := &VerificationClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid verification token: %w", err)
	}
	if !token.Valid || claims.Purpose != verificationPurpose {
		return "", fmt.Errorf("invalid verification token")
	}
	return claims.Email, nil
}
