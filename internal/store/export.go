package store

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
	"github.com/MurderWizard/pokemon-pricing/internal/utils"
)

// Export writes the whole observation log to w as a msgpack stream of
// PriceObservation records. The flat format is the backup/interchange
// representation for the store.
func (r *Repository) Export(w io.Writer) (int, error) {
	all, err := r.All()
	if err != nil {
		return 0, err
	}

	enc := msgpack.NewEncoder(w)
	for i, obs := range all {
		if err := enc.Encode(obs); err != nil {
			return i, fmt.Errorf("failed to encode observation %s: %w", obs.ID, err)
		}
	}
	return len(all), nil
}

// Import reads a msgpack stream of PriceObservation records and appends
// them to the store. Invalid records are skipped and counted, not fatal;
// a decode error mid-stream aborts. Returns (imported, skipped).
func (r *Repository) Import(rd io.Reader) (int, int, error) {
	defer utils.NewTimer("observation_import", r.log).Stop()

	dec := msgpack.NewDecoder(rd)
	imported, skipped := 0, 0

	for {
		var obs domain.PriceObservation
		err := dec.Decode(&obs)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to decode observation stream: %w", err)
		}

		if err := r.Put(obs); err != nil {
			if errors.Is(err, domain.ErrInvalidObservation) {
				r.log.Warn().Err(err).Msg("Skipping invalid observation during import")
				skipped++
				continue
			}
			return imported, skipped, err
		}
		imported++
	}

	r.log.Info().Int("imported", imported).Int("skipped", skipped).Msg("Import complete")
	return imported, skipped, nil
}
