// Package auth issues and validates the HS256 access tokens handed to issuers.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles carried in the token.
const (
	RoleIssuer = "issuer"
	RoleAdmin  = "admin"
)

// ErrInvalidToken is returned for tokens that fail parsing or signature checks.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload. Subject holds the issuer email.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies tokens with a shared secret.
type JWTManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
}

// NewJWTManager creates a JWTManager.
func NewJWTManager(secret string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     "kilat-service-coupon",
	}
}

// AccessTTL returns the lifetime of access tokens.
func (m *JWTManager) AccessTTL() time.Duration { return m.accessTTL }

// GenerateAccessToken signs an access token for the given subject.
func (m *JWTManager) GenerateAccessToken(email, name, role string) (string, error) {
	return m.sign(email, name, role, m.accessTTL)
}

// GenerateRefreshToken signs a long-lived token with the same claims.
func (m *JWTManager) GenerateRefreshToken(email, name, role string) (string, error) {
	return m.sign(email, name, role, m.refreshTTL)
}

func (m *JWTManager) sign(email, name, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Email: email,
		Name:  name,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   email,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses a token and returns its claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
