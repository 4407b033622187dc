package auth

import (
	"testing"
	"time"

	"example.com/annapurna/services/donations/config"
	"example.com/annapurna/services/donations/internal/apperrors"
	"example.com/annapurna/services/donations/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newManager(t *testing.T, secret string, ttl time.Duration) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(config.AuthConfig{
		JWTSecret:  secret,
		TokenTTL:   ttl,
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	return m
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager(config.AuthConfig{})
	require.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	m := newManager(t, "secret", time.Hour)
	accountID := uuid.New()

	token, err := m.Issue(accountID, models.RoleReceiver, time.Now().UTC())
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, accountID.String(), claims.AccountID)
	require.Equal(t, string(models.RoleReceiver), claims.Role)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := newManager(t, "one", time.Hour).Issue(uuid.New(), models.RoleDonor, time.Now().UTC())
	require.NoError(t, err)

	_, err = newManager(t, "two", time.Hour).Verify(token)
	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := newManager(t, "secret", time.Minute)

	token, err := m.Issue(uuid.New(), models.RoleDonor, time.Now().UTC().Add(-2*time.Minute))
	require.NoError(t, err)

	_, err = m.Verify(token)
	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestPasswordHashing(t *testing.T) {
	m := newManager(t, "secret", time.Hour)

	hash, err := m.HashPassword("hunter2hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2hunter2", hash)

	require.True(t, m.CheckPassword(hash, "hunter2hunter2"))
	require.False(t, m.CheckPassword(hash, "hunter3"))
}
