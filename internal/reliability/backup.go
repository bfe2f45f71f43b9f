package reliability

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MurderWizard/pokemon-pricing/pkg/logger"
)

const (
	backupPrefix    = "pricing-backup-"
	backupSuffix    = ".msgpack.gz"
	backupTimestamp = "2006-01-02-150405"

	// Never rotate below this many remote backups regardless of age.
	minRemoteBackups = 3
)

// ObservationExporter streams every stored observation to a writer.
type ObservationExporter interface {
	Export(w io.Writer) (int, error)
}

// SnapshotMetadata is written alongside each local snapshot.
type SnapshotMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Records   int       `json:"records"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
}

// SnapshotService exports the observation ledger into compressed
// snapshots, keeps a bounded local set, and optionally mirrors them to an
// object store.
type SnapshotService struct {
	exporter  ObservationExporter
	store     *ObjectStore // nil disables remote mirroring
	backupDir string
	keepLast  int
	log       zerolog.Logger
}

// NewSnapshotService creates the service. store may be nil for local-only
// operation.
func NewSnapshotService(exporter ObservationExporter, store *ObjectStore, backupDir string, keepLast int, log zerolog.Logger) *SnapshotService {
	if keepLast <= 0 {
		keepLast = 7
	}
	return &SnapshotService{
		exporter:  exporter,
		store:     store,
		backupDir: backupDir,
		keepLast:  keepLast,
		log:       logger.Component(log, "snapshot"),
	}
}

// Run creates a snapshot, prunes old local copies, and mirrors the new
// snapshot remotely when a store is configured.
func (s *SnapshotService) Run(ctx context.Context) error {
	s.log.Info().Msg("Starting backup snapshot")
	start := time.Now()

	meta, path, err := s.createSnapshot()
	if err != nil {
		return err
	}

	if err := s.pruneLocal(); err != nil {
		s.log.Warn().Err(err).Msg("Local snapshot pruning failed")
	}

	if s.store != nil {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open snapshot for upload: %w", err)
		}
		defer f.Close()

		if err := s.store.Upload(ctx, filepath.Base(path), f); err != nil {
			return fmt.Errorf("mirror snapshot: %w", err)
		}
	}

	s.log.Info().
		Dur("duration_ms", time.Since(start)).
		Int("records", meta.Records).
		Int64("size_bytes", meta.SizeBytes).
		Str("checksum", meta.Checksum).
		Msg("Backup snapshot completed")

	return nil
}

// createSnapshot writes the compressed export plus a metadata sidecar and
// returns the snapshot path.
func (s *SnapshotService) createSnapshot() (*SnapshotMetadata, string, error) {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create backup directory: %w", err)
	}

	name := backupPrefix + time.Now().UTC().Format(backupTimestamp) + backupSuffix
	path := filepath.Join(s.backupDir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("create snapshot file: %w", err)
	}

	hash := sha256.New()
	gz := gzip.NewWriter(io.MultiWriter(f, hash))

	records, err := s.exporter.Export(gz)
	if err != nil {
		gz.Close()
		f.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("export observations: %w", err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("finish snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, "", fmt.Errorf("close snapshot: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("stat snapshot: %w", err)
	}

	meta := &SnapshotMetadata{
		Timestamp: time.Now().UTC(),
		Records:   records,
		SizeBytes: info.Size(),
		Checksum:  fmt.Sprintf("sha256:%x", hash.Sum(nil)),
	}
	if err := s.writeMetadata(path+".json", meta); err != nil {
		return nil, "", err
	}

	return meta, path, nil
}

func (s *SnapshotService) writeMetadata(path string, meta *SnapshotMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// pruneLocal deletes the oldest local snapshots beyond keepLast.
func (s *SnapshotService) pruneLocal() error {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return fmt.Errorf("read backup directory: %w", err)
	}

	var snapshots []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, backupPrefix) && strings.HasSuffix(name, backupSuffix) {
			snapshots = append(snapshots, name)
		}
	}
	// Timestamped names sort chronologically.
	sort.Strings(snapshots)

	for len(snapshots) > s.keepLast {
		victim := snapshots[0]
		snapshots = snapshots[1:]
		for _, p := range []string{victim, victim + ".json"} {
			if err := os.Remove(filepath.Join(s.backupDir, p)); err != nil && !os.IsNotExist(err) {
				s.log.Warn().Str("file", p).Err(err).Msg("Failed to prune snapshot")
			}
		}
		s.log.Debug().Str("file", victim).Msg("Pruned local snapshot")
	}
	return nil
}

// RotateRemote deletes mirrored snapshots older than retentionDays while
// always keeping the newest few. retentionDays of zero keeps everything.
func (s *SnapshotService) RotateRemote(ctx context.Context, retentionDays int) error {
	if s.store == nil {
		return nil
	}

	objects, err := s.store.List(ctx, backupPrefix)
	if err != nil {
		return fmt.Errorf("list remote snapshots: %w", err)
	}
	if len(objects) <= minRemoteBackups || retentionDays <= 0 {
		return nil
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for i, obj := range objects {
		if i < minRemoteBackups || !obj.LastModified.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			s.log.Error().Str("key", obj.Key).Err(err).Msg("Failed to delete remote snapshot")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(objects)-deleted).
		Msg("Remote snapshot rotation completed")

	return nil
}
