package handlers

import (
	"net/http"

	"example.com/annapurna/services/donations/internal/api/middleware"
	"example.com/annapurna/services/donations/internal/services"
	"example.com/annapurna/services/donations/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	lifecycleService *services.LifecycleService
	matchingService  *services.MatchingService
	tracer           tracing.Tracer
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(lifecycleService *services.LifecycleService, matchingService *services.MatchingService, tracer tracing.Tracer) *OrderHandler {
	return &OrderHandler{
		lifecycleService: lifecycleService,
		matchingService:  matchingService,
		tracer:           tracer,
	}
}

// ClaimRequest represents an incoming claim request
type ClaimRequest struct {
	ListingID       uuid.UUID `json:"listingId" binding:"required"`
	ReceiverID      uuid.UUID `json:"receiverId"`
	ReceiverName    string    `json:"receiverName" binding:"required"`
	ReceiverAddress string    `json:"receiverAddress"`
}

// AcceptRequest represents an incoming courier acceptance
type AcceptRequest struct {
	CourierID   uuid.UUID `json:"courierId"`
	CourierName string    `json:"courierName" binding:"required"`
}

// HandleClaim reserves a listing for the calling receiver and opens an order
func (h *OrderHandler) HandleClaim(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-claim-listing")
	defer h.tracer.EndTransaction(txn)

	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.tracer.AddAttribute(txn, "listing_id", req.ListingID.String())

	receiverID := req.ReceiverID
	if receiverID == uuid.Nil {
		receiverID = middleware.AccountID(c)
	}

	order, err := h.lifecycleService.ClaimListing(c, req.ListingID, receiverID, req.ReceiverName, req.ReceiverAddress)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// HandleAccept assigns the calling courier to an awaiting order
func (h *OrderHandler) HandleAccept(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-accept-order")
	defer h.tracer.EndTransaction(txn)

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	courierID := req.CourierID
	if courierID == uuid.Nil {
		courierID = middleware.AccountID(c)
	}

	order, err := h.lifecycleService.AcceptOrder(c, orderID, courierID, req.CourierName)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// HandleDeliver marks a picked-up order as delivered
func (h *OrderHandler) HandleDeliver(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-complete-delivery")
	defer h.tracer.EndTransaction(txn)

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.lifecycleService.CompleteDelivery(c, orderID)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// HandleListForUser returns the orders a user participates in
func (h *OrderHandler) HandleListForUser(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-list-user-orders")
	defer h.tracer.EndTransaction(txn)

	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	orders, err := h.matchingService.FindOrdersForUser(c, userID)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

// HandleListAwaitingCourier returns open courier jobs, oldest first
func (h *OrderHandler) HandleListAwaitingCourier(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-list-awaiting-courier")
	defer h.tracer.EndTransaction(txn)

	orders, err := h.matchingService.FindOrdersAwaitingCourier(c)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

// RegisterRoutes registers the handler's routes
func (h *OrderHandler) RegisterRoutes(router gin.IRoutes, receiverOnly, courierOnly gin.HandlerFunc) {
	router.POST("/orders/claim", receiverOnly, h.HandleClaim)
	router.PUT("/orders/:id/accept", courierOnly, h.HandleAccept)
	router.PUT("/orders/:id/deliver", courierOnly, h.HandleDeliver)
	router.GET("/orders/user/:userId", h.HandleListForUser)
	router.GET("/orders/awaiting-courier", h.HandleListAwaitingCourier)
}
