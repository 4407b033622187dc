package services

import (
	"context"
	"time"

	"example.com/annapurna/services/donations/internal/models"

	"github.com/google/uuid"
)

// ListingStore is the listing persistence surface the services depend on.
// Implemented by repositories.ListingRepository; mocked in tests.
type ListingStore interface {
	Create(ctx context.Context, listing *models.Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	List(ctx context.Context) ([]models.Listing, error)
	ListAvailable(ctx context.Context) ([]models.Listing, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Listing, error)
	ClaimAvailable(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from []models.ListingStatus, to models.ListingStatus) (bool, error)
	DeleteAvailable(ctx context.Context, id uuid.UUID) error
	AppendRating(ctx context.Context, id uuid.UUID, rating models.Rating) (float64, error)
}

// OrderStore is the order persistence surface the services depend on.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	AcceptAwaiting(ctx context.Context, id uuid.UUID, courierID uuid.UUID, courierName string, totalFee, commission, payout int64, pickedUpAt time.Time) (*models.Order, error)
	CompleteDelivery(ctx context.Context, id uuid.UUID, deliveredAt time.Time) (*models.Order, error)
	ListAwaitingCourier(ctx context.Context) ([]models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListDeliveredWithStaleListing(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// AccountStore is the account persistence surface the services depend on.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}
