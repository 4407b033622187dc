package services

import (
	"context"
	"testing"
	"time"

	"example.com/annapurna/services/donations/config"
	"example.com/annapurna/services/donations/internal/apperrors"
	"example.com/annapurna/services/donations/internal/auth"
	"example.com/annapurna/services/donations/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestTokenManager(t *testing.T) *auth.TokenManager {
	t.Helper()
	tokens, err := auth.NewTokenManager(config.AuthConfig{
		JWTSecret:  "test-secret",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	return tokens
}

func TestRegister(t *testing.T) {
	mockAccounts := new(MockAccountStore)
	mockAccounts.On("GetByEmail", mock.Anything, "asha@example.com").
		Return(nil, apperrors.NotFound("account"))
	mockAccounts.On("Create", mock.Anything, mock.AnythingOfType("*models.Account")).Return(nil)

	service := NewAccountService(mockAccounts, newTestTokenManager(t))

	account, err := service.Register(context.Background(), RegisterInput{
		Name:     "Asha",
		Email:    "  Asha@Example.com ",
		Password: "hunter2hunter2",
		Role:     models.RoleDonor,
	})

	require.NoError(t, err)
	require.Equal(t, "asha@example.com", account.Email)
	require.Equal(t, models.RoleDonor, account.Role)
	require.NotEmpty(t, account.PasswordHash)
	require.NotEqual(t, "hunter2hunter2", account.PasswordHash)

	mockAccounts.AssertExpectations(t)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	mockAccounts := new(MockAccountStore)
	mockAccounts.On("GetByEmail", mock.Anything, "asha@example.com").
		Return(&models.Account{ID: uuid.New(), Email: "asha@example.com"}, nil)

	service := NewAccountService(mockAccounts, newTestTokenManager(t))

	_, err := service.Register(context.Background(), RegisterInput{
		Name:     "Asha",
		Email:    "asha@example.com",
		Password: "hunter2hunter2",
		Role:     models.RoleDonor,
	})

	var duplicate *apperrors.DuplicateError
	require.ErrorAs(t, err, &duplicate)
	mockAccounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterUnknownRole(t *testing.T) {
	service := NewAccountService(new(MockAccountStore), newTestTokenManager(t))

	_, err := service.Register(context.Background(), RegisterInput{
		Name:     "Asha",
		Email:    "asha@example.com",
		Password: "hunter2hunter2",
		Role:     "admin",
	})

	var validation *apperrors.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestLogin(t *testing.T) {
	tokens := newTestTokenManager(t)
	hash, err := tokens.HashPassword("hunter2hunter2")
	require.NoError(t, err)

	accountID := uuid.New()
	mockAccounts := new(MockAccountStore)
	mockAccounts.On("GetByEmail", mock.Anything, "asha@example.com").
		Return(&models.Account{ID: accountID, Email: "asha@example.com", PasswordHash: hash, Role: models.RoleCourier}, nil)

	service := NewAccountService(mockAccounts, tokens)

	account, token, err := service.Login(context.Background(), "asha@example.com", "hunter2hunter2")

	require.NoError(t, err)
	require.Equal(t, accountID, account.ID)
	require.NotEmpty(t, token)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	require.Equal(t, accountID.String(), claims.AccountID)
	require.Equal(t, string(models.RoleCourier), claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	tokens := newTestTokenManager(t)
	hash, err := tokens.HashPassword("hunter2hunter2")
	require.NoError(t, err)

	mockAccounts := new(MockAccountStore)
	mockAccounts.On("GetByEmail", mock.Anything, "asha@example.com").
		Return(&models.Account{ID: uuid.New(), PasswordHash: hash}, nil)

	service := NewAccountService(mockAccounts, tokens)

	_, _, err = service.Login(context.Background(), "asha@example.com", "wrong")

	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestLoginUnknownEmail(t *testing.T) {
	mockAccounts := new(MockAccountStore)
	mockAccounts.On("GetByEmail", mock.Anything, "nobody@example.com").
		Return(nil, apperrors.NotFound("account"))

	service := NewAccountService(mockAccounts, newTestTokenManager(t))

	_, _, err := service.Login(context.Background(), "nobody@example.com", "whatever")

	// Unknown email and wrong password look the same to the caller.
	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)
}
