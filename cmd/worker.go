package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/annapurna/services/donations/config"
	"example.com/annapurna/services/donations/internal/cache"
	"example.com/annapurna/services/donations/internal/database"
	"example.com/annapurna/services/donations/internal/messaging"
	"example.com/annapurna/services/donations/internal/metrics"
	"example.com/annapurna/services/donations/internal/repositories"
	"example.com/annapurna/services/donations/internal/search"
	"example.com/annapurna/services/donations/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker to retry listing status propagation and reconcile stale listings`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	g, ctx := errgroup.WithContext(ctx)

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

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}

	metricsCollector := metrics.NewMetrics()

	listingRepo := repositories.NewListingRepository(db, readOnlyDB)
	orderRepo := repositories.NewOrderRepository(db, readOnlyDB)

	lifecycleService := services.NewLifecycleService(
		listingRepo, orderRepo, redisCache, elasticClient, messaging.NoopPublisher{}, metricsCollector, cfg.Fees)

	// The queue consumer retries failed propagations promptly; the cron
	// sweep below catches anything the queue missed.
	processor, err := messaging.NewProcessor(cfg.Azure)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Service Bus processor, relying on the reconciliation sweep only")
	} else {
		defer processor.Close()
		g.Go(func() error {
			log.Info().Str("queue", cfg.Azure.QueueName).Msg("Starting Service Bus processor")
			return processor.ProcessMessages(ctx, lifecycleService.HandleLifecycleEvent)
		})
	}

	g.Go(func() error {
		log.Info().Dur("interval", cfg.Worker.ReconcileInterval).Msg("Starting listing reconciliation cron job as fallback mechanism")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.ReconcileInterval),
			gocron.NewTask(func() {
				if err := lifecycleService.ReconcileListings(ctx, cfg.Worker.ReconcileBatch); err != nil {
					log.Error().Err(err).Msg("Failed to reconcile listings in fallback job")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
