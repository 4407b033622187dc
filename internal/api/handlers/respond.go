package handlers

import (
	"net/http"

	"example.com/annapurna/services/donations/internal/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// respondError maps a service error onto an HTTP status. Unexpected errors
// are logged and returned as an opaque 500 so internals never leak.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
