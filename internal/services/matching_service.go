package services

import (
	"context"
	"strings"
	"time"

	"example.com/annapurna/services/donations/internal/cache"
	"example.com/annapurna/services/donations/internal/models"
	"example.com/annapurna/services/donations/internal/search"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const listingFeedTTL = 30 * time.Second

// ListingView is a listing annotated for presentation: whether it is past
// its shelf life and, when the requester supplied a location, how far away
// it is. Neither annotation is persisted.
type ListingView struct {
	models.Listing
	Expired    bool     `json:"expired"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// ListingFilter narrows the nearby-listing query.
type ListingFilter struct {
	Dietary   string
	FreeText  string
	Latitude  *float64
	Longitude *float64
}

// MatchingService answers read-only listing and order queries. It never
// mutates state; clients observe lifecycle changes by re-querying.
type MatchingService struct {
	listings ListingStore
	orders   OrderStore
	cache    *cache.RedisCache
	search   *search.ElasticClient
}

// NewMatchingService creates the query layer.
func NewMatchingService(listings ListingStore, orders OrderStore, redisCache *cache.RedisCache, elasticClient *search.ElasticClient) *MatchingService {
	return &MatchingService{
		listings: listings,
		orders:   orders,
		cache:    redisCache,
		search:   elasticClient,
	}
}

// ListListings returns all listings newest first, expiry-annotated.
func (s *MatchingService) ListListings(ctx context.Context) ([]ListingView, error) {
	var listings []models.Listing
	if err := s.cache.Get(ctx, cache.ListingFeedCacheKey, &listings); err != nil {
		var dbErr error
		listings, dbErr = s.listings.List(ctx)
		if dbErr != nil {
			return nil, dbErr
		}
		if err := s.cache.Set(ctx, cache.ListingFeedCacheKey, listings, listingFeedTTL); err != nil {
			log.Debug().Err(err).Msg("Failed to cache listing feed")
		}
	}

	now := time.Now().UTC()
	views := make([]ListingView, 0, len(listings))
	for i := range listings {
		views = append(views, ListingView{
			Listing: listings[i],
			Expired: listings[i].Expired(now),
		})
	}
	return views, nil
}

// FindNearbyListings returns available listings matching the filter. When a
// requester location is supplied each located listing is annotated with its
// haversine distance; listings without coordinates stay in the result set
// without the annotation. No sort order is promised.
func (s *MatchingService) FindNearbyListings(ctx context.Context, filter ListingFilter) ([]ListingView, error) {
	listings, err := s.findAvailable(ctx, filter.FreeText)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	views := make([]ListingView, 0, len(listings))
	for i := range listings {
		listing := listings[i]

		if filter.Dietary != "" && filter.Dietary != "all" &&
			string(listing.DietaryKind) != filter.Dietary {
			continue
		}

		view := ListingView{Listing: listing, Expired: listing.Expired(now)}
		if filter.Latitude != nil && filter.Longitude != nil && listing.HasLocation() {
			d := HaversineDistanceKm(*filter.Latitude, *filter.Longitude, *listing.Latitude, *listing.Longitude)
			view.DistanceKm = &d
		}
		views = append(views, view)
	}
	return views, nil
}

// findAvailable fetches available listings, going through the search index
// for free-text queries when it is configured and falling back to an
// in-process substring match otherwise.
func (s *MatchingService) findAvailable(ctx context.Context, freeText string) ([]models.Listing, error) {
	if freeText == "" {
		return s.listings.ListAvailable(ctx)
	}

	if s.search.Enabled() {
		ids, err := s.search.SearchListingIDs(ctx, freeText)
		if err == nil {
			byID, err := s.listings.ListByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			listings := make([]models.Listing, 0, len(ids))
			for _, id := range ids {
				if listing, ok := byID[id]; ok && listing.Status == models.ListingAvailable {
					listings = append(listings, *listing)
				}
			}
			return listings, nil
		}
		log.Warn().Err(err).Msg("Search query failed, falling back to substring match")
	}

	all, err := s.listings.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]models.Listing, 0, len(all))
	for _, listing := range all {
		if listingMatchesText(&listing, freeText) {
			matched = append(matched, listing)
		}
	}
	return matched, nil
}

// listingMatchesText reports whether any item name contains the query,
// case-insensitively.
func listingMatchesText(listing *models.Listing, freeText string) bool {
	needle := strings.ToLower(freeText)
	for _, item := range listing.Items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			return true
		}
	}
	return false
}

// FindOrdersAwaitingCourier returns open courier jobs oldest first, each
// with its listing embedded.
func (s *MatchingService) FindOrdersAwaitingCourier(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orders.ListAwaitingCourier(ctx)
	if err != nil {
		return nil, err
	}
	return s.embedListings(ctx, orders)
}

// FindOrdersForUser returns the orders a user participates in as receiver
// or courier, newest claim first, each with its listing embedded.
func (s *MatchingService) FindOrdersForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	orders, err := s.orders.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.embedListings(ctx, orders)
}

func (s *MatchingService) embedListings(ctx context.Context, orders []models.Order) ([]models.Order, error) {
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, 0, len(orders))
	seen := make(map[uuid.UUID]bool, len(orders))
	for _, order := range orders {
		if !seen[order.ListingID] {
			seen[order.ListingID] = true
			ids = append(ids, order.ListingID)
		}
	}

	byID, err := s.listings.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Listing = byID[orders[i].ListingID]
	}
	return orders, nil
}
