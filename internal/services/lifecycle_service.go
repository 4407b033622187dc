package services

import (
	"context"
	"math"
	"time"

	"example.com/annapurna/services/donations/config"
	"example.com/annapurna/services/donations/internal/apperrors"
	"example.com/annapurna/services/donations/internal/cache"
	"example.com/annapurna/services/donations/internal/messaging"
	"example.com/annapurna/services/donations/internal/metrics"
	"example.com/annapurna/services/donations/internal/models"
	"example.com/annapurna/services/donations/internal/search"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SplitFee divides a total fee into the platform commission and the courier
// payout. Payout is the remainder so the split always sums back exactly.
func SplitFee(totalFee int64, commissionRate float64) (commission, payout int64) {
	commission = int64(math.Round(float64(totalFee) * commissionRate))
	payout = totalFee - commission
	return commission, payout
}

// LifecycleService is the donation-to-delivery lifecycle engine. All state
// transitions go through here; cross-request coordination happens through
// status-guarded writes in the stores, never through in-process locks.
type LifecycleService struct {
	listings  ListingStore
	orders    OrderStore
	cache     *cache.RedisCache
	search    *search.ElasticClient
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	fees      config.FeeConfig
}

// NewLifecycleService creates the lifecycle engine. The fee policy is fixed
// for the lifetime of the service.
func NewLifecycleService(
	listings ListingStore,
	orders OrderStore,
	redisCache *cache.RedisCache,
	elasticClient *search.ElasticClient,
	publisher messaging.Publisher,
	metricsCollector *metrics.Metrics,
	fees config.FeeConfig,
) *LifecycleService {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &LifecycleService{
		listings:  listings,
		orders:    orders,
		cache:     redisCache,
		search:    elasticClient,
		publisher: publisher,
		metrics:   metricsCollector,
		fees:      fees,
	}
}

// CreateListingInput carries the fields of a new donation listing.
type CreateListingInput struct {
	DonorID        uuid.UUID
	Items          models.ItemList
	DietaryKind    models.DietaryKind
	PickupWindow   string
	ShelfLifeHours float64
	Address        string
	Latitude       *float64
	Longitude      *float64
}

// CreateListing validates the input, scores nutrition from the ingredients
// and stores a new available listing.
func (s *LifecycleService) CreateListing(ctx context.Context, input CreateListingInput) (*models.Listing, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.Validation("items", "at least one item is required")
	}
	for _, item := range input.Items {
		if item.Name == "" {
			return nil, apperrors.Validation("items.name", "item name is required")
		}
	}
	if !input.DietaryKind.Valid() {
		return nil, apperrors.Validation("dietary_kind", "must be veg, non-veg or mixed")
	}
	if input.ShelfLifeHours <= 0 {
		return nil, apperrors.Validation("shelf_life_hours", "must be greater than zero")
	}

	listing := &models.Listing{
		ID:                uuid.New(),
		DonorID:           input.DonorID,
		Items:             input.Items,
		DietaryKind:       input.DietaryKind,
		PickupWindow:      input.PickupWindow,
		ShelfLifeHours:    input.ShelfLifeHours,
		Latitude:          input.Latitude,
		Longitude:         input.Longitude,
		Address:           input.Address,
		Status:            models.ListingAvailable,
		NutritionEstimate: EstimateListingNutrition(input.Items),
		Ratings:           models.RatingList{},
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, err
	}

	if err := s.search.IndexListing(ctx, listing); err != nil {
		// Search is best-effort; the DB remains the source of truth.
		log.Warn().Err(err).Str("listing_id", listing.ID.String()).Msg("Failed to index listing")
	}
	s.invalidateListingCache(ctx, listing.ID)

	log.Info().
		Str("listing_id", listing.ID.String()).
		Str("donor_id", listing.DonorID.String()).
		Int("items", len(listing.Items)).
		Msg("Listing created")

	return listing, nil
}

// ClaimListing reserves an available listing for a receiver and opens the
// order awaiting a courier. The claim itself is a compare-and-swap on the
// listing status: under a race exactly one caller gets the order.
func (s *LifecycleService) ClaimListing(ctx context.Context, listingID, receiverID uuid.UUID, receiverName, receiverAddress string) (*models.Order, error) {
	if receiverName == "" {
		return nil, apperrors.Validation("receiver_name", "receiver name is required")
	}

	listing, err := s.listings.ClaimAvailable(ctx, listingID)
	if err != nil {
		var conflict *apperrors.ConflictError
		if errors.As(err, &conflict) {
			s.metrics.IncrementCounter(metrics.CounterClaimConflicts)
		}
		return nil, err
	}

	order := &models.Order{
		ID:              uuid.New(),
		ListingID:       listing.ID,
		ReceiverID:      receiverID,
		ReceiverName:    receiverName,
		ReceiverAddress: receiverAddress,
		Status:          models.OrderAwaitingCourier,
		ClaimedAt:       time.Now().UTC(),
	}

	if err := s.orders.Create(ctx, order); err != nil {
		// Release the claim so the listing does not stay reserved with no
		// order behind it. Best effort: a stuck claimed listing is visible
		// to operators via the status mismatch.
		if ok, rbErr := s.listings.UpdateStatusIf(ctx, listing.ID,
			[]models.ListingStatus{models.ListingClaimed}, models.ListingAvailable); rbErr != nil || !ok {
			log.Error().Err(rbErr).Str("listing_id", listing.ID.String()).
				Msg("Failed to release claim after order creation failure")
		}
		return nil, err
	}

	s.metrics.IncrementCounter(metrics.CounterClaims)
	s.invalidateListingCache(ctx, listing.ID)

	log.Info().
		Str("order_id", order.ID.String()).
		Str("listing_id", listing.ID.String()).
		Str("receiver_id", receiverID.String()).
		Msg("Listing claimed")

	return order, nil
}

// AcceptOrder assigns a courier to an awaiting order, computing the fee
// split from the fixed policy. The status guard resolves courier races to a
// single acceptance.
func (s *LifecycleService) AcceptOrder(ctx context.Context, orderID, courierID uuid.UUID, courierName string) (*models.Order, error) {
	if courierName == "" {
		return nil, apperrors.Validation("courier_name", "courier name is required")
	}

	commission, payout := SplitFee(s.fees.TotalFee, s.fees.CommissionRate)
	now := time.Now().UTC()

	order, err := s.orders.AcceptAwaiting(ctx, orderID, courierID, courierName, s.fees.TotalFee, commission, payout, now)
	if err != nil {
		return nil, err
	}

	// Advance the listing alongside the order. Best effort: the order is
	// authoritative and the worker reconciles any divergence.
	s.propagateListingStatus(ctx, order, messaging.EventOrderAccepted,
		[]models.ListingStatus{models.ListingClaimed}, models.ListingPickedUp)

	s.metrics.IncrementCounter(metrics.CounterAccepts)
	s.invalidateListingCache(ctx, order.ListingID)

	log.Info().
		Str("order_id", order.ID.String()).
		Str("courier_id", courierID.String()).
		Int64("total_fee", order.TotalFee).
		Int64("commission", order.Commission).
		Int64("courier_payout", order.CourierPayout).
		Msg("Order accepted")

	return order, nil
}

// CompleteDelivery marks a picked-up order delivered and propagates the
// terminal status onto the listing. The order update always lands first.
func (s *LifecycleService) CompleteDelivery(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.CompleteDelivery(ctx, orderID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.propagateListingStatus(ctx, order, messaging.EventOrderDelivered,
		[]models.ListingStatus{models.ListingClaimed, models.ListingPickedUp}, models.ListingDelivered)

	s.metrics.IncrementCounter(metrics.CounterDeliveries)
	s.invalidateListingCache(ctx, order.ListingID)

	log.Info().
		Str("order_id", order.ID.String()).
		Str("listing_id", order.ListingID.String()).
		Msg("Delivery completed")

	return order, nil
}

// propagateListingStatus mirrors an order transition onto the listing. On
// store failure the event goes to the queue so the worker retries it.
func (s *LifecycleService) propagateListingStatus(ctx context.Context, order *models.Order, eventType string, from []models.ListingStatus, to models.ListingStatus) {
	ok, err := s.listings.UpdateStatusIf(ctx, order.ListingID, from, to)
	if err == nil {
		if !ok {
			// The guard not holding means the listing already moved on;
			// nothing to retry.
			log.Debug().Str("listing_id", order.ListingID.String()).
				Str("target", string(to)).Msg("Listing status propagation skipped")
		}
		return
	}

	log.Warn().Err(err).Str("listing_id", order.ListingID.String()).
		Str("target", string(to)).Msg("Failed to propagate listing status, queueing retry")
	s.metrics.IncrementCounter(metrics.CounterPropagationRetry)

	event := messaging.LifecycleEvent{
		Type:       eventType,
		OrderID:    order.ID,
		ListingID:  order.ListingID,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// The fallback sweep still catches this listing.
		log.Error().Err(err).Str("order_id", order.ID.String()).Msg("Failed to publish lifecycle event")
	}
}

// SubmitRating appends a reviewer's score to a listing and returns the new
// average. A reviewer can rate a listing once.
func (s *LifecycleService) SubmitRating(ctx context.Context, listingID, reviewerID uuid.UUID, reviewerName string, score int, comment string) (float64, error) {
	if score < 1 || score > 5 {
		return 0, apperrors.Validation("score", "must be an integer between 1 and 5")
	}
	if reviewerName == "" {
		return 0, apperrors.Validation("reviewer_name", "reviewer name is required")
	}

	rating := models.Rating{
		ReviewerID:   reviewerID,
		ReviewerName: reviewerName,
		Score:        score,
		Comment:      comment,
		RatedAt:      time.Now().UTC(),
	}

	average, err := s.listings.AppendRating(ctx, listingID, rating)
	if err != nil {
		return 0, err
	}

	s.metrics.IncrementCounter(metrics.CounterRatings)
	s.invalidateListingCache(ctx, listingID)

	log.Info().
		Str("listing_id", listingID.String()).
		Str("reviewer_id", reviewerID.String()).
		Int("score", score).
		Float64("average", average).
		Msg("Rating submitted")

	return average, nil
}

// DeleteListing removes a listing while it is still available. Only the
// donor who created it may delete it.
func (s *LifecycleService) DeleteListing(ctx context.Context, listingID, callerID uuid.UUID) error {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.DonorID != callerID {
		return apperrors.Auth("not authorized to delete this listing")
	}

	if err := s.listings.DeleteAvailable(ctx, listingID); err != nil {
		return err
	}

	s.invalidateListingCache(ctx, listingID)

	log.Info().Str("listing_id", listingID.String()).Msg("Listing deleted")
	return nil
}

// ReconcileListings sweeps delivered orders whose listing status lags and
// advances those listings to delivered. Fallback for failed propagation.
func (s *LifecycleService) ReconcileListings(ctx context.Context, batch int) error {
	listingIDs, err := s.orders.ListDeliveredWithStaleListing(ctx, batch)
	if err != nil {
		return err
	}

	for _, id := range listingIDs {
		ok, err := s.listings.UpdateStatusIf(ctx, id,
			[]models.ListingStatus{models.ListingClaimed, models.ListingPickedUp}, models.ListingDelivered)
		if err != nil {
			log.Error().Err(err).Str("listing_id", id.String()).Msg("Failed to reconcile listing")
			continue
		}
		if ok {
			s.metrics.IncrementCounter(metrics.CounterReconciledStale)
			s.invalidateListingCache(ctx, id)
		}
	}

	if len(listingIDs) > 0 {
		log.Info().Int("count", len(listingIDs)).Msg("Reconciled stale listings")
	}
	return nil
}

// HandleLifecycleEvent applies a queued propagation retry. Returning an
// error leaves the message on the queue for redelivery.
func (s *LifecycleService) HandleLifecycleEvent(ctx context.Context, event messaging.LifecycleEvent) error {
	switch event.Type {
	case messaging.EventOrderAccepted:
		_, err := s.listings.UpdateStatusIf(ctx, event.ListingID,
			[]models.ListingStatus{models.ListingClaimed}, models.ListingPickedUp)
		return err
	case messaging.EventOrderDelivered:
		_, err := s.listings.UpdateStatusIf(ctx, event.ListingID,
			[]models.ListingStatus{models.ListingClaimed, models.ListingPickedUp}, models.ListingDelivered)
		return err
	default:
		log.Warn().Str("type", event.Type).Msg("Ignoring unknown lifecycle event")
		return nil
	}
}

func (s *LifecycleService) invalidateListingCache(ctx context.Context, listingID uuid.UUID) {
	if err := s.cache.Delete(ctx, cache.ListingFeedCacheKey, cache.GetListingCacheKey(listingID)); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate listing cache")
	}
}
