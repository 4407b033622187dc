package repositories

import (
	"context"
	"time"

	"example.com/annapurna/services/donations/internal/apperrors"
	"example.com/annapurna/services/donations/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListingRepository provides access to listing records. All lifecycle
// mutations are status-guarded single-row updates so concurrent callers
// coordinate through the store, never through in-process locks.
type ListingRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewListingRepository creates a new listing repository
func NewListingRepository(db *gorm.DB, readOnlyDB *gorm.DB) *ListingRepository {
	return &ListingRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create inserts a new listing
func (r *ListingRepository) Create(ctx context.Context, listing *models.Listing) error {
	if err := r.db.WithContext(ctx).Create(listing).Error; err != nil {
		return apperrors.Unavailable("failed to create listing", err)
	}
	return nil
}

// GetByID gets a listing by ID
func (r *ListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.readOnlyDB.WithContext(ctx).First(&listing, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("listing")
		}
		return nil, apperrors.Unavailable("failed to get listing by ID", err)
	}
	return &listing, nil
}

// List returns all listings, newest first.
func (r *ListingRepository) List(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.readOnlyDB.WithContext(ctx).
		Order("created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, apperrors.Unavailable("failed to list listings", err)
	}
	return listings, nil
}

// ListAvailable returns all listings still open for claims, newest first.
func (r *ListingRepository) ListAvailable(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.readOnlyDB.WithContext(ctx).
		Where("status = ?", models.ListingAvailable).
		Order("created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, apperrors.Unavailable("failed to list available listings", err)
	}
	return listings, nil
}

// ListByIDs fetches listings for the given IDs keyed by ID.
func (r *ListingRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Listing, error) {
	byID := make(map[uuid.UUID]*models.Listing, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	var listings []models.Listing
	err := r.readOnlyDB.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&listings).Error
	if err != nil {
		return nil, apperrors.Unavailable("failed to fetch listings by IDs", err)
	}
	for i := range listings {
		byID[listings[i].ID] = &listings[i]
	}
	return byID, nil
}

// ClaimAvailable atomically flips an available listing to claimed. The
// status guard in the WHERE clause is the compare-and-swap: under a claim
// race exactly one caller sees RowsAffected == 1.
func (r *ListingRepository) ClaimAvailable(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status = ?", id, models.ListingAvailable).
		Update("status", models.ListingClaimed)
	if res.Error != nil {
		return nil, apperrors.Unavailable("failed to claim listing", res.Error)
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing listing from a lost race.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperrors.Conflict("listing not available")
	}
	return r.GetByID(ctx, id)
}

// UpdateStatusIf advances a listing from one of the expected statuses to the
// target status. RowsAffected tells the caller whether the guard held.
func (r *ListingRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from []models.ListingStatus, to models.ListingStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, apperrors.Unavailable("failed to update listing status", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteAvailable cancels and soft-deletes a listing while it is still
// available, in one guarded statement so a concurrent claim and a delete
// cannot both succeed.
func (r *ListingRepository) DeleteAvailable(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status = ?", id, models.ListingAvailable).
		Updates(map[string]interface{}{
			"status":     models.ListingCancelled,
			"deleted_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return apperrors.Unavailable("failed to delete listing", res.Error)
	}
	if res.RowsAffected == 0 {
		listing, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return apperrors.InvalidState(string(listing.Status), "delete")
	}
	return nil
}

// AppendRating appends a rating and recomputes the average inside one
// row-locked transaction, giving the per-document read-modify-write the
// ratings invariant needs.
func (r *ListingRepository) AppendRating(ctx context.Context, id uuid.UUID, rating models.Rating) (float64, error) {
	var average float64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing models.Listing
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&listing, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("listing")
			}
			return apperrors.Unavailable("failed to lock listing for rating", err)
		}

		if listing.Ratings.ContainsReviewer(rating.ReviewerID) {
			return apperrors.Duplicate("reviewer has already rated this listing")
		}

		listing.Ratings = append(listing.Ratings, rating)
		average = listing.Ratings.Average()

		err = tx.Model(&models.Listing{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"ratings":        listing.Ratings,
				"rating_average": average,
			}).Error
		if err != nil {
			return apperrors.Unavailable("failed to store rating", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return average, nil
}
