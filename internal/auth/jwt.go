// Package auth issues and verifies the JWTs that carry a Principal
// across the HTTP boundary, and enforces the admin permission model
// on top of them.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/qoffice/dispatcher/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims carries a models.Principal across the wire.
type Claims struct {
	Subject string        `json:"sub"`
	Office  models.Office `json:"office"`
	Role    string        `json:"role"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{secretKey: []byte(secretKey), tokenDuration: tokenDuration}
}

// GenerateToken issues a token for an admin Principal.
func (m *JWTManager) GenerateToken(principalID string, office models.Office, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Subject: principalID,
		Office:  office,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "qoffice-dispatcher",
			Subject:   principalID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
		return nil, ErrExpiredToken
	}
	return claims, nil
}

// Principal converts verified claims into a models.Principal.
func (c *Claims) Principal() models.Principal {
	return models.Principal{ID: c.Subject, Office: c.Office, Role: c.Role}
}

func (m *JWTManager) TokenDuration() time.Duration { return m.tokenDuration }
