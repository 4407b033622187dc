package middleware

import (
	"net/http"
	"strings"

	"example.com/annapurna/services/donations/internal/auth"
	"example.com/annapurna/services/donations/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	contextAccountID = "account_id"
	contextRole      = "account_role"
)

// Auth validates the bearer credential and stores the caller's identity on
// the request context.
func Auth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header format"})
			return
		}

		claims, err := tokens.Verify(parts[1])
		if err != nil {
			log.Warn().Err(err).Str("path", c.FullPath()).Msg("Token validation failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is not valid"})
			return
		}

		accountID, err := uuid.Parse(claims.AccountID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is not valid"})
			return
		}

		c.Set(contextAccountID, accountID)
		c.Set(contextRole, models.Role(claims.Role))
		c.Next()
	}
}

// RequireRole rejects callers whose role does not match. Role dispatch is a
// closed enum: an unknown role on a token is always rejected.
func RequireRole(required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := AccountRole(c)
		switch role {
		case models.RoleDonor, models.RoleReceiver, models.RoleCourier:
			if role != required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "role " + string(role) + " may not perform this action",
				})
				return
			}
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown role"})
			return
		}
		c.Next()
	}
}

// AccountID returns the authenticated caller's account ID.
func AccountID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(contextAccountID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// AccountRole returns the authenticated caller's role.
func AccountRole(c *gin.Context) models.Role {
	if v, ok := c.Get(contextRole); ok {
		if role, ok := v.(models.Role); ok {
			return role
		}
	}
	return ""
}
