package models

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Role identifies what an account is allowed to do. It is fixed at registration.
type Role string

const (
	RoleDonor    Role = "donor"
	RoleReceiver Role = "receiver"
	RoleCourier  Role = "courier"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleDonor, RoleReceiver, RoleCourier:
		return true
	}
	return false
}

// DietaryKind classifies the food in a listing.
type DietaryKind string

const (
	DietaryVeg    DietaryKind = "veg"
	DietaryNonVeg DietaryKind = "non-veg"
	DietaryMixed  DietaryKind = "mixed"
)

// Valid reports whether d is a known dietary kind.
func (d DietaryKind) Valid() bool {
	switch d {
	case DietaryVeg, DietaryNonVeg, DietaryMixed:
		return true
	}
	return false
}

// ListingStatus is the lifecycle state of a listing. Transitions only move
// forward: available -> claimed -> picked_up -> delivered, or available ->
// cancelled when the donor deletes the listing.
type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingClaimed   ListingStatus = "claimed"
	ListingPickedUp  ListingStatus = "picked_up"
	ListingDelivered ListingStatus = "delivered"
	ListingCancelled ListingStatus = "cancelled"
)

// OrderStatus is the lifecycle state of an order.
// awaiting_courier -> picked_up -> delivered; terminal once delivered.
type OrderStatus string

const (
	OrderAwaitingCourier OrderStatus = "awaiting_courier"
	OrderPickedUp        OrderStatus = "picked_up"
	OrderDelivered       OrderStatus = "delivered"
)

// Account represents a registered user (donor, receiver or courier)
type Account struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Role         Role           `gorm:"not null" json:"role"`
	Name         string         `gorm:"not null" json:"name"`
	Phone        string         `json:"phone"`
	Address      string         `json:"address"`
}

// ListingItem is one food item inside a listing.
type ListingItem struct {
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Ingredients string  `json:"ingredients"`
}

// ItemList is the jsonb-backed collection of listing items.
type ItemList []ListingItem

// Value implements driver.Valuer so gorm stores the list as jsonb.
func (l ItemList) Value() (driver.Value, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal items")
	}
	return data, nil
}

// Scan implements sql.Scanner.
func (l *ItemList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("unsupported items column type %T", value)
	}
	return errors.Wrap(json.Unmarshal(data, l), "failed to unmarshal items")
}

// Rating is one reviewer's score for a listing.
type Rating struct {
	ReviewerID   uuid.UUID `json:"reviewer_id"`
	ReviewerName string    `json:"reviewer_name"`
	Score        int       `json:"score"`
	Comment      string    `json:"comment"`
	RatedAt      time.Time `json:"rated_at"`
}

// RatingList is the jsonb-backed collection of ratings on a listing.
type RatingList []Rating

// Value implements driver.Valuer.
func (l RatingList) Value() (driver.Value, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal ratings")
	}
	return data, nil
}

// Scan implements sql.Scanner.
func (l *RatingList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("unsupported ratings column type %T", value)
	}
	return errors.Wrap(json.Unmarshal(data, l), "failed to unmarshal ratings")
}

// Average returns the mean score rounded to one decimal, or 0 when empty.
func (l RatingList) Average() float64 {
	if len(l) == 0 {
		return 0
	}
	total := 0
	for _, r := range l {
		total += r.Score
	}
	return math.Round(float64(total)/float64(len(l))*10) / 10
}

// ContainsReviewer reports whether reviewerID already rated the listing.
func (l RatingList) ContainsReviewer(reviewerID uuid.UUID) bool {
	for _, r := range l {
		if r.ReviewerID == reviewerID {
			return true
		}
	}
	return false
}

// NutritionEstimate holds the simulated nutrition scoring for a listing.
type NutritionEstimate struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Fat      int `json:"fat"`
}

// Value implements driver.Valuer.
func (n NutritionEstimate) Value() (driver.Value, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal nutrition estimate")
	}
	return data, nil
}

// Scan implements sql.Scanner.
func (n *NutritionEstimate) Scan(value interface{}) error {
	if value == nil {
		*n = NutritionEstimate{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("unsupported nutrition column type %T", value)
	}
	return errors.Wrap(json.Unmarshal(data, n), "failed to unmarshal nutrition estimate")
}

// Listing represents a posted surplus-food donation
type Listing struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt    `gorm:"index" json:"-"`
	DonorID           uuid.UUID         `gorm:"type:uuid;not null;index" json:"donor_id"`
	Items             ItemList          `gorm:"type:jsonb" json:"items"`
	DietaryKind       DietaryKind       `gorm:"not null" json:"dietary_kind"`
	PickupWindow      string            `json:"pickup_window"`
	ShelfLifeHours    float64           `gorm:"not null" json:"shelf_life_hours"`
	Latitude          *float64          `json:"lat"`
	Longitude         *float64          `json:"lng"`
	Address           string            `json:"address"`
	Status            ListingStatus     `gorm:"not null;index" json:"status"`
	NutritionEstimate NutritionEstimate `gorm:"type:jsonb" json:"nutrition_estimate"`
	Ratings           RatingList        `gorm:"type:jsonb" json:"ratings"`
	RatingAverage     float64           `json:"rating_average"`
}

// ExpiresAt returns the derived expiry instant.
func (l *Listing) ExpiresAt() time.Time {
	return l.CreatedAt.Add(time.Duration(l.ShelfLifeHours * float64(time.Hour)))
}

// Expired reports whether the listing is past its shelf life at now.
// Expiry is a display property only; it never mutates Status.
func (l *Listing) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt())
}

// HasLocation reports whether the listing carries usable coordinates.
func (l *Listing) HasLocation() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Order represents the claim-and-delivery record for a listing
type Order struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	ListingID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"listing_id"`
	ReceiverID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"receiver_id"`
	ReceiverName    string         `gorm:"not null" json:"receiver_name"`
	ReceiverAddress string         `json:"receiver_address"`
	CourierID       *uuid.UUID     `gorm:"type:uuid;index" json:"courier_id"`
	CourierName     *string        `json:"courier_name"`
	Status          OrderStatus    `gorm:"not null;index" json:"status"`
	TotalFee        int64          `json:"total_fee"`
	Commission      int64          `json:"commission"`
	CourierPayout   int64          `json:"courier_payout"`
	ClaimedAt       time.Time      `json:"claimed_at"`
	PickedUpAt      *time.Time     `json:"picked_up_at"`
	DeliveredAt     *time.Time     `json:"delivered_at"`
	Listing         *Listing       `gorm:"-" json:"listing,omitempty"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Account{},
		&Listing{},
		&Order{},
	)
}
