package repositories

import (
	"context"
	"time"

	"example.com/annapurna/services/donations/internal/apperrors"
	"example.com/annapurna/services/donations/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// OrderRepository provides access to order records
type OrderRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB, readOnlyDB *gorm.DB) *OrderRepository {
	return &OrderRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create inserts a new order
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return apperrors.Unavailable("failed to create order", err)
	}
	return nil
}

// GetByID gets an order by ID
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.readOnlyDB.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order")
		}
		return nil, apperrors.Unavailable("failed to get order by ID", err)
	}
	return &order, nil
}

// AcceptAwaiting atomically assigns a courier to an awaiting order, writing
// the fee split and the pickup timestamp. The status guard makes two racing
// couriers resolve to exactly one acceptance.
func (r *OrderRepository) AcceptAwaiting(ctx context.Context, id uuid.UUID, courierID uuid.UUID, courierName string, totalFee, commission, payout int64, pickedUpAt time.Time) (*models.Order, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderAwaitingCourier).
		Updates(map[string]interface{}{
			"courier_id":     courierID,
			"courier_name":   courierName,
			"status":         models.OrderPickedUp,
			"total_fee":      totalFee,
			"commission":     commission,
			"courier_payout": payout,
			"picked_up_at":   pickedUpAt,
		})
	if res.Error != nil {
		return nil, apperrors.Unavailable("failed to accept order", res.Error)
	}
	if res.RowsAffected == 0 {
		order, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidState(string(order.Status), string(models.OrderPickedUp))
	}
	return r.GetByID(ctx, id)
}

// CompleteDelivery atomically advances a picked-up order to delivered.
func (r *OrderRepository) CompleteDelivery(ctx context.Context, id uuid.UUID, deliveredAt time.Time) (*models.Order, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderPickedUp).
		Updates(map[string]interface{}{
			"status":       models.OrderDelivered,
			"delivered_at": deliveredAt,
		})
	if res.Error != nil {
		return nil, apperrors.Unavailable("failed to complete delivery", res.Error)
	}
	if res.RowsAffected == 0 {
		order, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidState(string(order.Status), string(models.OrderDelivered))
	}
	return r.GetByID(ctx, id)
}

// ListAwaitingCourier returns orders with no courier yet, oldest claim first
// so couriers are served first-come-first-serve.
func (r *OrderRepository) ListAwaitingCourier(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.readOnlyDB.WithContext(ctx).
		Where("status = ?", models.OrderAwaitingCourier).
		Order("claimed_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, apperrors.Unavailable("failed to list awaiting orders", err)
	}
	return orders, nil
}

// ListForUser returns orders where the user is the receiver or the courier,
// newest claim first.
func (r *OrderRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.readOnlyDB.WithContext(ctx).
		Where("receiver_id = ? OR courier_id = ?", userID, userID).
		Order("claimed_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, apperrors.Unavailable("failed to list user orders", err)
	}
	return orders, nil
}

// ListDeliveredWithStaleListing finds delivered orders whose listing status
// still lags behind. Used by the reconciliation sweep.
func (r *OrderRepository) ListDeliveredWithStaleListing(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var listingIDs []uuid.UUID
	err := r.readOnlyDB.WithContext(ctx).
		Table("orders").
		Select("orders.listing_id").
		Joins("JOIN listings ON listings.id = orders.listing_id").
		Where("orders.status = ? AND listings.status <> ? AND orders.deleted_at IS NULL AND listings.deleted_at IS NULL",
			models.OrderDelivered, models.ListingDelivered).
		Limit(limit).
		Scan(&listingIDs).Error
	if err != nil {
		return nil, apperrors.Unavailable("failed to find stale listings", err)
	}
	return listingIDs, nil
}
