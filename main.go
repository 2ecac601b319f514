package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/obedier/zillow-wf/config"
	"github.com/obedier/zillow-wf/helpers"
	"github.com/obedier/zillow-wf/internal/crawler"
	"github.com/obedier/zillow-wf/internal/fields"
	"github.com/obedier/zillow-wf/internal/record"
	"github.com/obedier/zillow-wf/logger"
	"github.com/obedier/zillow-wf/services/cache"
	"github.com/obedier/zillow-wf/services/dedup"
	"github.com/obedier/zillow-wf/services/fetcher"
	"github.com/obedier/zillow-wf/services/publisher"
	"github.com/obedier/zillow-wf/services/stats"
	"github.com/obedier/zillow-wf/services/store"
	"github.com/obedier/zillow-wf/services/worker"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("search_url", cfg.SearchURL).
		Int("max_pages", cfg.MaxPages).
		Int("max_concurrent", cfg.MaxConcurrent).
		Msg("Starting extraction run")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, &cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Seed the dedup index from the store, snapshot fallback included
	if err := services.Dedup.Load(services.Store); err != nil {
		log.Warn().Err(err).Msg("Dedup index unavailable, continuing with empty index")
	}

	// Wire the field resolver to the completion tracker
	tracker := stats.NewTracker()
	resolver := fields.NewResolver(fields.DefaultConfig())
	resolver.OnResolve(tracker.RecordResolution)

	c := crawler.New(crawler.Config{
		SearchURL:      cfg.SearchURL,
		MaxPages:       cfg.MaxPages,
		MaxProperties:  cfg.MaxProperties,
		InterPageDelay: cfg.InterPageDelay,
	}, services.Fetcher, services.Dedup)

	w := worker.New(c, services.Fetcher, record.NewBuilder(resolver),
		services.Store, services.Publisher, tracker, cfg.MaxConcurrent)

	// Run the worker, racing against shutdown signals
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- w.Run(ctx)
	}()

	var runErr error
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
		runErr = <-workerDone
	case runErr = <-workerDone:
	}

	services.Dedup.Snapshot()

	if err := tracker.WriteArtifacts(cfg.OutputDir); err != nil {
		log.Warn().Err(err).Msg("Failed to write run artifacts")
	}
	fmt.Println(tracker.CompletionReport())

	if runErr != nil {
		log.Error().Err(runErr).Msg("Run finished with error")
		services.Cleanup()
		os.Exit(1)
	}
	log.Info().Msg("Run finished")
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Dedup     *dedup.Index
	Fetcher   *fetcher.Bounded
	Store     store.Store
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Durable store
	pg, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	services.Store = pg
	logger.Info("Connected to Postgres")

	// Dedup index backed by memcache snapshots
	cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
	services.Cache = cacheService
	services.Dedup = dedup.NewIndex(cacheService, cfg.DedupCacheTTL)
	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	// Page fetching, via the gateway unless direct fetching is requested
	fetchFn := helpers.FetchWithRandomHeaders
	if !cfg.DirectFetch {
		gateway := helpers.NewGatewayClient(cfg.GatewayURL, cfg.GatewayAPIKey)
		fetchFn = gateway.Fetch
	}
	services.Fetcher = fetcher.NewBounded(fetchFn, cfg.MaxConcurrent, cfg.FetchTimeout)

	// Event publishing is optional
	if cfg.PublishEvents {
		services.Publisher = publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	return services, nil
}
