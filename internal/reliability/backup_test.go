package reliability

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExporter struct {
	payload []byte
	records int
	err     error
}

func (e *fakeExporter) Export(w io.Writer) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	if _, err := w.Write(e.payload); err != nil {
		return 0, err
	}
	return e.records, nil
}

func TestSnapshotRunLocalOnly(t *testing.T) {
	dir := t.TempDir()
	exporter := &fakeExporter{payload: []byte("observation stream"), records: 42}

	svc := NewSnapshotService(exporter, nil, dir, 7, zerolog.Nop())
	require.NoError(t, svc.Run(context.Background()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var snapshot, sidecar string
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".msgpack.gz"):
			snapshot = e.Name()
		case strings.HasSuffix(e.Name(), ".json"):
			sidecar = e.Name()
		}
	}
	require.NotEmpty(t, snapshot)
	require.Equal(t, snapshot+".json", sidecar)
	assert.True(t, strings.HasPrefix(snapshot, "pricing-backup-"))

	// The snapshot decompresses back to the exported stream.
	f, err := os.Open(filepath.Join(dir, snapshot))
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	content, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, []byte("observation stream"), content)

	// Sidecar metadata reflects the export.
	metaData, err := os.ReadFile(filepath.Join(dir, sidecar))
	require.NoError(t, err)
	var meta SnapshotMetadata
	require.NoError(t, json.Unmarshal(metaData, &meta))
	assert.Equal(t, 42, meta.Records)
	assert.True(t, strings.HasPrefix(meta.Checksum, "sha256:"))
	assert.Greater(t, meta.SizeBytes, int64(0))
}

func TestSnapshotExportFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	exporter := &fakeExporter{err: fmt.Errorf("db locked")}

	svc := NewSnapshotService(exporter, nil, dir, 7, zerolog.Nop())
	require.Error(t, svc.Run(context.Background()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPruneLocalKeepsNewest(t *testing.T) {
	dir := t.TempDir()

	// Timestamped names sort chronologically.
	names := []string{
		"pricing-backup-2025-01-01-030000.msgpack.gz",
		"pricing-backup-2025-01-02-030000.msgpack.gz",
		"pricing-backup-2025-01-03-030000.msgpack.gz",
		"pricing-backup-2025-01-04-030000.msgpack.gz",
	}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, n+".json"), []byte("{}"), 0o644))
	}

	svc := NewSnapshotService(&fakeExporter{}, nil, dir, 2, zerolog.Nop())
	require.NoError(t, svc.pruneLocal())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var kept []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".msgpack.gz") {
			kept = append(kept, e.Name())
		}
	}
	require.Len(t, kept, 2)
	assert.Equal(t, names[2], kept[0])
	assert.Equal(t, names[3], kept[1])

	// Sidecars of pruned snapshots go with them.
	_, err = os.Stat(filepath.Join(dir, names[0]+".json"))
	assert.True(t, os.IsNotExist(err))
}
