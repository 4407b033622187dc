package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/annapurna/services/donations/config"
	"example.com/annapurna/services/donations/internal/api"
	"example.com/annapurna/services/donations/internal/auth"
	"example.com/annapurna/services/donations/internal/cache"
	"example.com/annapurna/services/donations/internal/database"
	"example.com/annapurna/services/donations/internal/messaging"
	"example.com/annapurna/services/donations/internal/metrics"
	"example.com/annapurna/services/donations/internal/repositories"
	"example.com/annapurna/services/donations/internal/search"
	"example.com/annapurna/services/donations/internal/services"
	"example.com/annapurna/services/donations/internal/tracing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for listings, orders and accounts`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, readOnlyDB, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close(db)

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}
	defer redisCache.Close()

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}

	publisher, err := messaging.NewPublisher(cfg.Azure)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Service Bus publisher, propagation retries fall back to the sweep")
		publisher = messaging.NoopPublisher{}
	}

	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		return err
	}

	metricsCollector := metrics.NewMetrics()
	metricsCollector.SetHealth("database", true)

	accountRepo := repositories.NewAccountRepository(db, readOnlyDB)
	listingRepo := repositories.NewListingRepository(db, readOnlyDB)
	orderRepo := repositories.NewOrderRepository(db, readOnlyDB)

	accountService := services.NewAccountService(accountRepo, tokens)
	lifecycleService := services.NewLifecycleService(
		listingRepo, orderRepo, redisCache, elasticClient, publisher, metricsCollector, cfg.Fees)
	matchingService := services.NewMatchingService(listingRepo, orderRepo, redisCache, elasticClient)

	server := api.NewServer(cfg, accountService, lifecycleService, matchingService, tokens, metricsCollector, tracer)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}
