package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"example.com/backstage/services/scheduler/api"
	"example.com/backstage/services/scheduler/cache"
	"example.com/backstage/services/scheduler/importer"
	"example.com/backstage/services/scheduler/models"
	"example.com/backstage/services/scheduler/notify"
	"example.com/backstage/services/scheduler/repositories"
	"example.com/backstage/services/scheduler/search"
	"example.com/backstage/services/scheduler/services"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Run:   runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) {
	log.Info().Msg("Starting server")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DBSource), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Auto migrate tables
	if cfg.EnableMigrations {
		if err := models.SetupModels(db); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	// Initialize redis cache for user lookups
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache = nil
	}

	// Initialize Elasticsearch client
	elasticClient, err := search.NewElasticClient(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search indexing")
		elasticClient = nil
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	// Initialize the notification queue with duplicate suppression and
	// inline retention
	suppressor := notify.NewSuppressor(notificationRepo)
	retention := notify.NewRetention(notificationRepo)
	queue := notify.NewQueue(notificationRepo, suppressor, retention,
		cfg.NotifyInlineMaxAgeHours, cfg.NotifyInlineMaxRecords)

	// Initialize the import pipeline
	directory := services.NewCachedUserDirectory(userRepo, redisCache)
	validator := importer.NewValidator(directory, eventRepo)

	var indexer importer.Indexer
	if elasticClient != nil {
		indexer = elasticClient
	}
	imp := importer.NewImporter(validator, eventRepo, queue, indexer, cfg.ImportMaxEvents)

	// Initialize server
	server := api.NewServer(cfg, imp, queue)

	// Start HTTP server
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server gracefully
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}

	log.Info().Msg("Server exited properly")
}
