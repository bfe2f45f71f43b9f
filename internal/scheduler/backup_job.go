package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/MurderWizard/pokemon-pricing/internal/reliability"
)

// BackupJob runs the snapshot service and rotates remote copies.
type BackupJob struct {
	snapshots     *reliability.SnapshotService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates the nightly backup job.
func NewBackupJob(snapshots *reliability.SnapshotService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		snapshots:     snapshots,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name.
func (j *BackupJob) Name() string {
	return "backup"
}

// Run creates a snapshot and then rotates old remote copies.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	if err := j.snapshots.Run(ctx); err != nil {
		return err
	}
	if err := j.snapshots.RotateRemote(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Remote rotation failed")
	}
	return nil
}
