package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/annapurna/services/donations/config"
	"example.com/annapurna/services/donations/internal/auth"
	"example.com/annapurna/services/donations/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestTokens(t *testing.T) *auth.TokenManager {
	t.Helper()
	tokens, err := auth.NewTokenManager(config.AuthConfig{
		JWTSecret:  "test-secret",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	return tokens
}

func newTestRouter(tokens *auth.TokenManager, required models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/", Auth(tokens))
	group.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": AccountID(c), "role": AccountRole(c)})
	})
	group.POST("/restricted", RequireRole(required), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	tokens := newTestTokens(t)
	router := newTestRouter(tokens, models.RoleDonor)

	token, err := tokens.Issue(uuid.New(), models.RoleDonor, time.Now().UTC())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	router := newTestRouter(newTestTokens(t), models.RoleDonor)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	router := newTestRouter(newTestTokens(t), models.RoleDonor)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Token abc123")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareBadToken(t *testing.T) {
	router := newTestRouter(newTestTokens(t), models.RoleDonor)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	tokens := newTestTokens(t)
	router := newTestRouter(tokens, models.RoleCourier)

	courierToken, err := tokens.Issue(uuid.New(), models.RoleCourier, time.Now().UTC())
	require.NoError(t, err)
	donorToken, err := tokens.Issue(uuid.New(), models.RoleDonor, time.Now().UTC())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/restricted", nil)
	req.Header.Set("Authorization", "Bearer "+courierToken)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/restricted", nil)
	req.Header.Set("Authorization", "Bearer "+donorToken)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
