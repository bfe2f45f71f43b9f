package reliability

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/MurderWizard/pokemon-pricing/internal/database"
	"github.com/MurderWizard/pokemon-pricing/internal/store"
)

// MaintenanceJob performs the nightly database upkeep: integrity check,
// WAL checkpoint, disk-space check, and a snapshot of ledger statistics.
type MaintenanceJob struct {
	db      *database.DB
	records *store.Repository
	dataDir string
	log     zerolog.Logger
}

// NewMaintenanceJob creates the nightly maintenance job.
func NewMaintenanceJob(db *database.DB, records *store.Repository, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:      db,
		records: records,
		dataDir: dataDir,
		log:     log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name for the scheduler.
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Run executes the maintenance pass. Integrity failures are fatal;
// checkpoint failures are logged and skipped.
func (j *MaintenanceJob) Run() error {
	j.log.Info().Msg("Starting maintenance")
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Msg("CRITICAL: Database integrity check failed")
		return fmt.Errorf("integrity check: %w", err)
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	if stats, err := j.records.Statistics(); err != nil {
		j.log.Warn().Err(err).Msg("Failed to read ledger statistics")
	} else {
		j.log.Info().
			Int("total_records", stats.TotalRecords).
			Int("unique_cards", stats.UniqueCards).
			Float64("freshness_ratio", stats.FreshnessRatio).
			Msg("Ledger statistics")
	}

	j.log.Info().
		Dur("duration_ms", time.Since(start)).
		Msg("Maintenance completed")

	return nil
}

// checkDiskSpace halts maintenance when free space drops below 500MB.
func (j *MaintenanceJob) checkDiskSpace() error {
	stat := syscall.Statfs_t{}
	if err := syscall.Statfs(j.dataDir, &stat); err != nil {
		return fmt.Errorf("stat filesystem: %w", err)
	}

	availableGB := float64(stat.Bavail*uint64(stat.Bsize)) / 1e9
	switch {
	case availableGB < 0.5:
		j.log.Error().Float64("available_gb", availableGB).Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("only %.2f GB free", availableGB)
	case availableGB < 5.0:
		j.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}
	return nil
}
