package repositories

import (
	"context"

	"example.com/annapurna/services/donations/internal/apperrors"
	"example.com/annapurna/services/donations/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// AccountRepository provides access to account records
type AccountRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB, readOnlyDB *gorm.DB) *AccountRepository {
	return &AccountRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create inserts a new account. The unique index on email is the final
// arbiter against concurrent registrations with the same address.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	err := r.db.WithContext(ctx).Create(account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Duplicate("account already exists with this email")
		}
		return apperrors.Unavailable("failed to create account", err)
	}
	return nil
}

// GetByEmail looks an account up by email, case-insensitively.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.readOnlyDB.WithContext(ctx).
		Where("lower(email) = lower(?)", email).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("account")
		}
		return nil, apperrors.Unavailable("failed to get account by email", err)
	}
	return &account, nil
}

// GetByID gets an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.readOnlyDB.WithContext(ctx).First(&account, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("account")
		}
		return nil, apperrors.Unavailable("failed to get account by ID", err)
	}
	return &account, nil
}
