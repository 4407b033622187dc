package api

import (
	"context"
	"net/http"
	"time"

	"example.com/annapurna/services/donations/config"
	"example.com/annapurna/services/donations/internal/api/handlers"
	"example.com/annapurna/services/donations/internal/api/middleware"
	"example.com/annapurna/services/donations/internal/auth"
	"example.com/annapurna/services/donations/internal/metrics"
	"example.com/annapurna/services/donations/internal/models"
	"example.com/annapurna/services/donations/internal/services"
	"example.com/annapurna/services/donations/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP server
type Server struct {
	config           config.Config
	router           *gin.Engine
	httpServer       *http.Server
	accountService   *services.AccountService
	lifecycleService *services.LifecycleService
	matchingService  *services.MatchingService
	tokens           *auth.TokenManager
	metrics          *metrics.Metrics
	tracer           tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	accountService *services.AccountService,
	lifecycleService *services.LifecycleService,
	matchingService *services.MatchingService,
	tokens *auth.TokenManager,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	server := &Server{
		config:           cfg,
		accountService:   accountService,
		lifecycleService: lifecycleService,
		matchingService:  matchingService,
		tokens:           tokens,
		metrics:          metricsCollector,
		tracer:           tracer,
	}

	router := server.setupRouter()
	server.router = router

	httpServer := &http.Server{
		Addr:    cfg.HTTPServerAddress,
		Handler: router,
	}
	server.httpServer = httpServer

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	authHandler := handlers.NewAuthHandler(s.accountService, s.tracer)
	authHandler.RegisterRoutes(router)

	metricsHandler := handlers.NewMetricsHandler(s.metrics, s.tracer)
	metricsHandler.RegisterRoutes(router)

	// Everything past registration and login requires a bearer token.
	protected := router.Group("/", middleware.Auth(s.tokens))

	listingHandler := handlers.NewListingHandler(s.lifecycleService, s.matchingService, s.tracer)
	listingHandler.RegisterRoutes(protected, middleware.RequireRole(models.RoleDonor))

	orderHandler := handlers.NewOrderHandler(s.lifecycleService, s.matchingService, s.tracer)
	orderHandler.RegisterRoutes(protected,
		middleware.RequireRole(models.RoleReceiver),
		middleware.RequireRole(models.RoleCourier))

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.HTTPServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
