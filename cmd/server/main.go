// Package main is the entry point for the card pricing engine. It wires
// the condition guide, the observation ledger, the source adapters, and
// the resolver, then serves the HTTP API with background jobs for
// re-verification, maintenance, and backups.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MurderWizard/pokemon-pricing/internal/adapters"
	"github.com/MurderWizard/pokemon-pricing/internal/adjuster"
	"github.com/MurderWizard/pokemon-pricing/internal/classifier"
	"github.com/MurderWizard/pokemon-pricing/internal/clientdata"
	"github.com/MurderWizard/pokemon-pricing/internal/clients/pricechart"
	"github.com/MurderWizard/pokemon-pricing/internal/config"
	"github.com/MurderWizard/pokemon-pricing/internal/database"
	"github.com/MurderWizard/pokemon-pricing/internal/deals"
	"github.com/MurderWizard/pokemon-pricing/internal/guide"
	"github.com/MurderWizard/pokemon-pricing/internal/reliability"
	"github.com/MurderWizard/pokemon-pricing/internal/resolver"
	"github.com/MurderWizard/pokemon-pricing/internal/scheduler"
	"github.com/MurderWizard/pokemon-pricing/internal/server"
	"github.com/MurderWizard/pokemon-pricing/internal/store"
	"github.com/MurderWizard/pokemon-pricing/internal/trend"
	"github.com/MurderWizard/pokemon-pricing/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting pricing engine")

	// The condition guide is the one component that must be correct:
	// a corrupt multiplier table makes every adjustment wrong.
	g, err := guide.Load(cfg.GuidePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load condition guide")
	}

	db, err := database.New(database.Config{
		Name:    "prices",
		Path:    filepath.Join(cfg.DataDir, "prices.db"),
		Profile: database.ProfileLedger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open price database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	cacheDB, err := database.New(database.Config{
		Name:    "cache",
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	if err := cacheDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate cache database")
	}

	records := store.New(db, cfg.FreshnessWindow, log)
	cacheRepo := clientdata.NewRepository(cacheDB.Conn())
	adj := adjuster.New(g)
	cls := classifier.New(g)

	// The marketplace adapter aggregates live sold listings when an API is
	// configured; without one it serves stored marketplace observations.
	var lookup adapters.MarketplaceLookup
	if cfg.MarketplaceAPIURL != "" {
		lookup = pricechart.NewClient(cfg.MarketplaceAPIURL, cfg.MarketplaceAPIKey, cacheRepo, log)
	}

	// Adapters in descending trust order.
	sources := []adapters.SourceAdapter{
		adapters.NewManualAdapter(records, log),
		adapters.NewMarketplaceAdapter(lookup, records, log),
		adapters.NewEstimatedAdapter(g, adj, log),
	}

	res := resolver.New(sources, adj, g, resolver.Options{
		MinUsableConfidence: cfg.MinUsableConfidence,
		OutlierThreshold:    cfg.OutlierThreshold,
		MaxAgeDays:          cfg.MaxAgeDays,
		AdapterTimeout:      cfg.AdapterTimeout,
	}, log)

	trendAnalyzer := trend.New(records, log)
	gradingCalc := deals.NewGradingCalculator(res, log)

	// Background jobs.
	sched := scheduler.New(log)

	var objectStore *reliability.ObjectStore
	if cfg.Backup.Bucket != "" {
		objectStore, err = reliability.NewObjectStore(context.Background(), reliability.ObjectStoreConfig{
			Bucket:    cfg.Backup.Bucket,
			Endpoint:  cfg.Backup.Endpoint,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize backup object store")
		}
	}
	snapshots := reliability.NewSnapshotService(
		records,
		objectStore,
		filepath.Join(cfg.DataDir, "backups"),
		cfg.Backup.KeepLast,
		log,
	)

	if err := sched.AddJob(cfg.VerifySchedule, scheduler.NewVerifyJob(records, res, cfg.VerifyMinAge, 10*time.Minute, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register verify job")
	}
	if err := sched.AddJob(cfg.BackupSchedule, scheduler.NewBackupJob(snapshots, cfg.Backup.RetentionDays, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register backup job")
	}
	if err := sched.AddJob("0 0 4 * * *", reliability.NewMaintenanceJob(db, records, cfg.DataDir, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}
	if err := sched.AddJob("0 15 4 * * *", clientdata.NewCleanupJob(cacheRepo, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache cleanup job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:             log,
		DB:              db,
		Records:         records,
		Resolver:        res,
		Classifier:      cls,
		Trend:           trendAnalyzer,
		Grading:         gradingCalc,
		Port:            cfg.Port,
		DevMode:         cfg.DevMode,
		AllowedOrigins:  cfg.AllowedOrigins,
		FreshnessWindow: cfg.FreshnessWindow,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Pricing engine stopped")
}
