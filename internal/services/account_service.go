package services

import (
	"context"
	"strings"
	"time"

	"example.com/annapurna/services/donations/internal/apperrors"
	"example.com/annapurna/services/donations/internal/auth"
	"example.com/annapurna/services/donations/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AccountService registers accounts and authenticates credentials.
type AccountService struct {
	accounts AccountStore
	tokens   *auth.TokenManager
}

// NewAccountService creates the identity directory service.
func NewAccountService(accounts AccountStore, tokens *auth.TokenManager) *AccountService {
	return &AccountService{
		accounts: accounts,
		tokens:   tokens,
	}
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
	Role     models.Role
}

// Register creates a new account. Email is unique case-insensitively and
// the role is fixed forever at this point.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*models.Account, error) {
	if input.Name == "" {
		return nil, apperrors.Validation("name", "name is required")
	}
	if input.Email == "" {
		return nil, apperrors.Validation("email", "email is required")
	}
	if input.Password == "" {
		return nil, apperrors.Validation("password", "password is required")
	}
	if !input.Role.Valid() {
		return nil, apperrors.Validation("role", "must be donor, receiver or courier")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Duplicate("account already exists with this email")
	} else {
		var notFound *apperrors.NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	hash, err := s.tokens.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		Name:         input.Name,
		Phone:        input.Phone,
		Address:      input.Address,
	}

	// The unique index still backstops a registration race on the email.
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	log.Info().
		Str("account_id", account.ID.String()).
		Str("role", string(account.Role)).
		Msg("Account registered")

	return account, nil
}

// Login checks the credentials and issues a bearer token.
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.Account, string, error) {
	if email == "" || password == "" {
		return nil, "", apperrors.Validation("credentials", "email and password are required")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		var notFound *apperrors.NotFoundError
		if errors.As(err, &notFound) {
			return nil, "", apperrors.Auth("invalid credentials")
		}
		return nil, "", err
	}

	if !s.tokens.CheckPassword(account.PasswordHash, password) {
		return nil, "", apperrors.Auth("invalid credentials")
	}

	token, err := s.tokens.Issue(account.ID, account.Role, time.Now().UTC())
	if err != nil {
		return nil, "", err
	}

	return account, token, nil
}

// GetAccount looks an account up by ID.
func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.accounts.GetByID(ctx, id)
}
