// Package token issues and verifies HS256 access tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "ledger-api"

// Claims are the custom claims in access tokens.
type Claims struct {
	Email string `json:"email"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// JWTManager implements port.TokenManager.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *JWTManager) TTL() time.Duration { return m.ttl }

func (m *JWTManager) Sign(c domain.TokenClaims) (string, error) {
	now := m.now()
	claims := Claims{
		Email: c.Email,
		Type:  "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Issuer:    issuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns *domain.ErrInvalidToken for anything but a valid,
// unexpired access token issued by this service.
func (m *JWTManager) Verify(tokenString string) (*domain.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &domain.ErrInvalidToken{Reason: "expired"}
		}
		return nil, &domain.ErrInvalidToken{Reason: "malformed or bad signature"}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, &domain.ErrInvalidToken{}
	}
	if claims.Type != "access" || claims.Subject == "" {
		return nil, &domain.ErrInvalidToken{Reason: "wrong token type"}
	}
	return &domain.TokenClaims{UserID: claims.Subject, Email: claims.Email}, nil
}
