// Package auth handles credential hashing and bearer token issuance.
package auth

import (
	"time"

	"example.com/annapurna/services/donations/config"
	"example.com/annapurna/services/donations/internal/apperrors"
	"example.com/annapurna/services/donations/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Claims are the JWT claims carried by a bearer credential.
type Claims struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates bearer credentials.
type TokenManager struct {
	secret     []byte
	ttl        time.Duration
	bcryptCost int
}

// NewTokenManager creates a token manager from config.
func NewTokenManager(cfg config.AuthConfig) (*TokenManager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is not configured")
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &TokenManager{
		secret:     []byte(cfg.JWTSecret),
		ttl:        cfg.TokenTTL,
		bcryptCost: cost,
	}, nil
}

// HashPassword hashes a plaintext password with bcrypt.
func (m *TokenManager) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.bcryptCost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a stored hash.
func (m *TokenManager) CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Issue signs a bearer token for the account.
func (m *TokenManager) Issue(accountID uuid.UUID, role models.Role, now time.Time) (string, error) {
	claims := Claims{
		AccountID: accountID.String(),
		Role:      string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// Verify parses and validates a bearer token, returning its claims.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, apperrors.Auth("token is not valid")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.Auth("token is not valid")
	}
	return claims, nil
}
