package handlers

import (
	"net/http"

	"example.com/annapurna/services/donations/internal/models"
	"example.com/annapurna/services/donations/internal/services"
	"example.com/annapurna/services/donations/internal/tracing"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles registration and login requests
type AuthHandler struct {
	accountService *services.AccountService
	tracer         tracing.Tracer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accountService *services.AccountService, tracer tracing.Tracer) *AuthHandler {
	return &AuthHandler{
		accountService: accountService,
		tracer:         tracer,
	}
}

// RegisterRequest represents an incoming registration request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Role     string `json:"role" binding:"required"`
}

// LoginRequest represents an incoming login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HandleRegister creates a new account
func (h *AuthHandler) HandleRegister(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-register")
	defer h.tracer.EndTransaction(txn)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.accountService.Register(c, services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":      account.ID,
		"name":    account.Name,
		"role":    account.Role,
		"address": account.Address,
	})
}

// HandleLogin checks credentials and returns a bearer token
func (h *AuthHandler) HandleLogin(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-login")
	defer h.tracer.EndTransaction(txn)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, token, err := h.accountService.Login(c, req.Email, req.Password)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      account.ID,
		"name":    account.Name,
		"role":    account.Role,
		"address": account.Address,
		"token":   token,
	})
}

// RegisterRoutes registers the handler's routes
func (h *AuthHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/auth/register", h.HandleRegister)
	router.POST("/auth/login", h.HandleLogin)
}
