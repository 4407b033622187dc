package services

import (
	"context"
	"testing"
	"time"

	"example.com/annapurna/services/donations/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestMatchingService(listings ListingStore, orders OrderStore) *MatchingService {
	return NewMatchingService(listings, orders, nil, nil)
}

func TestListListingsAnnotatesExpiry(t *testing.T) {
	now := time.Now().UTC()

	fresh := models.Listing{
		ID:             uuid.New(),
		CreatedAt:      now.Add(-1 * time.Hour),
		ShelfLifeHours: 5,
		Status:         models.ListingAvailable,
	}
	stale := models.Listing{
		ID:             uuid.New(),
		CreatedAt:      now.Add(-6 * time.Hour),
		ShelfLifeHours: 5,
		Status:         models.ListingAvailable,
	}

	mockListings := new(MockListingStore)
	mockListings.On("List", mock.Anything).Return([]models.Listing{fresh, stale}, nil)

	service := newTestMatchingService(mockListings, new(MockOrderStore))

	views, err := service.ListListings(context.Background())

	require.NoError(t, err)
	require.Len(t, views, 2)
	require.False(t, views[0].Expired)
	require.True(t, views[1].Expired)
}

func TestFindNearbyListingsDietaryFilter(t *testing.T) {
	veg := models.Listing{ID: uuid.New(), DietaryKind: models.DietaryVeg, Status: models.ListingAvailable}
	nonVeg := models.Listing{ID: uuid.New(), DietaryKind: models.DietaryNonVeg, Status: models.ListingAvailable}

	mockListings := new(MockListingStore)
	mockListings.On("ListAvailable", mock.Anything).Return([]models.Listing{veg, nonVeg}, nil)

	service := newTestMatchingService(mockListings, new(MockOrderStore))

	views, err := service.FindNearbyListings(context.Background(), ListingFilter{Dietary: "veg"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, veg.ID, views[0].ID)

	// "all" and empty both mean no dietary filtering.
	views, err = service.FindNearbyListings(context.Background(), ListingFilter{Dietary: "all"})
	require.NoError(t, err)
	require.Len(t, views, 2)
}

func TestFindNearbyListingsDistanceAnnotation(t *testing.T) {
	listingLat, listingLng := 13.6288, 79.4192
	located := models.Listing{
		ID:          uuid.New(),
		DietaryKind: models.DietaryVeg,
		Status:      models.ListingAvailable,
		Latitude:    &listingLat,
		Longitude:   &listingLng,
	}
	unlocated := models.Listing{ID: uuid.New(), DietaryKind: models.DietaryVeg, Status: models.ListingAvailable}

	mockListings := new(MockListingStore)
	mockListings.On("ListAvailable", mock.Anything).Return([]models.Listing{located, unlocated}, nil)

	service := newTestMatchingService(mockListings, new(MockOrderStore))

	requesterLat, requesterLng := 13.6300, 79.4200
	views, err := service.FindNearbyListings(context.Background(), ListingFilter{
		Latitude:  &requesterLat,
		Longitude: &requesterLng,
	})

	require.NoError(t, err)
	require.Len(t, views, 2)
	require.NotNil(t, views[0].DistanceKm)
	require.InDelta(t, 0.16, *views[0].DistanceKm, 0.01)
	require.Nil(t, views[1].DistanceKm)
}

func TestFindNearbyListingsFreeTextFallback(t *testing.T) {
	riceBowl := models.Listing{
		ID:          uuid.New(),
		DietaryKind: models.DietaryVeg,
		Status:      models.ListingAvailable,
		Items:       models.ItemList{{Name: "Steamed Rice"}},
	}
	curry := models.Listing{
		ID:          uuid.New(),
		DietaryKind: models.DietaryVeg,
		Status:      models.ListingAvailable,
		Items:       models.ItemList{{Name: "Vegetable Curry"}},
	}

	mockListings := new(MockListingStore)
	mockListings.On("ListAvailable", mock.Anything).Return([]models.Listing{riceBowl, curry}, nil)

	// No search client configured, so free text falls back to a substring
	// match over item names.
	service := newTestMatchingService(mockListings, new(MockOrderStore))

	views, err := service.FindNearbyListings(context.Background(), ListingFilter{FreeText: "rice"})

	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, riceBowl.ID, views[0].ID)
}

func TestFindOrdersAwaitingCourierEmbedsListings(t *testing.T) {
	listing := &models.Listing{ID: uuid.New(), Status: models.ListingClaimed}
	orderA := models.Order{ID: uuid.New(), ListingID: listing.ID, Status: models.OrderAwaitingCourier}
	orderB := models.Order{ID: uuid.New(), ListingID: listing.ID, Status: models.OrderAwaitingCourier}

	mockOrders := new(MockOrderStore)
	mockOrders.On("ListAwaitingCourier", mock.Anything).Return([]models.Order{orderA, orderB}, nil)

	mockListings := new(MockListingStore)
	mockListings.On("ListByIDs", mock.Anything, []uuid.UUID{listing.ID}).
		Return(map[uuid.UUID]*models.Listing{listing.ID: listing}, nil)

	service := newTestMatchingService(mockListings, mockOrders)

	orders, err := service.FindOrdersAwaitingCourier(context.Background())

	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.NotNil(t, orders[0].Listing)
	require.Equal(t, listing.ID, orders[0].Listing.ID)
	require.NotNil(t, orders[1].Listing)

	mockListings.AssertExpectations(t)
}

func TestFindOrdersForUser(t *testing.T) {
	userID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), Status: models.ListingDelivered}
	order := models.Order{ID: uuid.New(), ListingID: listing.ID, ReceiverID: userID, Status: models.OrderDelivered}

	mockOrders := new(MockOrderStore)
	mockOrders.On("ListForUser", mock.Anything, userID).Return([]models.Order{order}, nil)

	mockListings := new(MockListingStore)
	mockListings.On("ListByIDs", mock.Anything, []uuid.UUID{listing.ID}).
		Return(map[uuid.UUID]*models.Listing{listing.ID: listing}, nil)

	service := newTestMatchingService(mockListings, mockOrders)

	orders, err := service.FindOrdersForUser(context.Background(), userID)

	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, listing.ID, orders[0].Listing.ID)
}
