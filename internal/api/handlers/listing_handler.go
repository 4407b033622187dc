package handlers

import (
	"net/http"
	"strconv"

	"example.com/annapurna/services/donations/internal/api/middleware"
	"example.com/annapurna/services/donations/internal/models"
	"example.com/annapurna/services/donations/internal/services"
	"example.com/annapurna/services/donations/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListingHandler handles listing-related HTTP requests
type ListingHandler struct {
	lifecycleService *services.LifecycleService
	matchingService  *services.MatchingService
	tracer           tracing.Tracer
}

// NewListingHandler creates a new listing handler
func NewListingHandler(lifecycleService *services.LifecycleService, matchingService *services.MatchingService, tracer tracing.Tracer) *ListingHandler {
	return &ListingHandler{
		lifecycleService: lifecycleService,
		matchingService:  matchingService,
		tracer:           tracer,
	}
}

// LocationRequest is a coordinate pair on an incoming request
type LocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// CreateListingRequest represents an incoming listing creation request
type CreateListingRequest struct {
	Items          []models.ListingItem `json:"items" binding:"required"`
	DietaryKind    string               `json:"dietaryKind" binding:"required"`
	PickupWindow   string               `json:"pickupWindow"`
	ShelfLifeHours float64              `json:"shelfLifeHours" binding:"required"`
	Address        string               `json:"address"`
	Location       *LocationRequest     `json:"location"`
}

// RateListingRequest represents an incoming rating submission
type RateListingRequest struct {
	ReviewerID   uuid.UUID `json:"reviewerId"`
	ReviewerName string    `json:"reviewerName" binding:"required"`
	Score        int       `json:"score" binding:"required"`
	Comment      string    `json:"comment"`
}

// HandleCreateListing creates a new donation listing for the calling donor
func (h *ListingHandler) HandleCreateListing(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-listing")
	defer h.tracer.EndTransaction(txn)

	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.CreateListingInput{
		DonorID:        middleware.AccountID(c),
		Items:          models.ItemList(req.Items),
		DietaryKind:    models.DietaryKind(req.DietaryKind),
		PickupWindow:   req.PickupWindow,
		ShelfLifeHours: req.ShelfLifeHours,
		Address:        req.Address,
	}
	if req.Location != nil {
		input.Latitude = req.Location.Latitude
		input.Longitude = req.Location.Longitude
	}

	listing, err := h.lifecycleService.CreateListing(c, input)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, listing)
}

// HandleListListings returns all listings, newest first
func (h *ListingHandler) HandleListListings(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-list-listings")
	defer h.tracer.EndTransaction(txn)

	listings, err := h.matchingService.ListListings(c)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listings)
}

// HandleFindNearby returns available listings filtered by dietary kind,
// free text and annotated with distance from the caller's coordinates
func (h *ListingHandler) HandleFindNearby(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-find-nearby-listings")
	defer h.tracer.EndTransaction(txn)

	filter := services.ListingFilter{
		Dietary:  c.Query("dietary"),
		FreeText: c.Query("q"),
	}
	if lat, err := strconv.ParseFloat(c.Query("lat"), 64); err == nil {
		filter.Latitude = &lat
	}
	if lng, err := strconv.ParseFloat(c.Query("lng"), 64); err == nil {
		filter.Longitude = &lng
	}

	listings, err := h.matchingService.FindNearbyListings(c, filter)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listings)
}

// HandleDeleteListing removes a still-available listing owned by the caller
func (h *ListingHandler) HandleDeleteListing(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-delete-listing")
	defer h.tracer.EndTransaction(txn)

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	if err := h.lifecycleService.DeleteListing(c, listingID, middleware.AccountID(c)); err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "listing deleted"})
}

// HandleRateListing appends a rating and returns the new average
func (h *ListingHandler) HandleRateListing(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-rate-listing")
	defer h.tracer.EndTransaction(txn)

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	var req RateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reviewerID := req.ReviewerID
	if reviewerID == uuid.Nil {
		reviewerID = middleware.AccountID(c)
	}

	average, err := h.lifecycleService.SubmitRating(c, listingID, reviewerID, req.ReviewerName, req.Score, req.Comment)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ratingAverage": average})
}

// RegisterRoutes registers the handler's routes
func (h *ListingHandler) RegisterRoutes(router gin.IRoutes, donorOnly gin.HandlerFunc) {
	router.POST("/listings", donorOnly, h.HandleCreateListing)
	router.GET("/listings", h.HandleListListings)
	router.GET("/listings/nearby", h.HandleFindNearby)
	router.DELETE("/listings/:id", donorOnly, h.HandleDeleteListing)
	router.POST("/listings/:id/rate", h.HandleRateListing)
}
