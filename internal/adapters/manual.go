package adapters

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
)

// ManualConfidenceFloor is the minimum confidence attributed to explicit
// human-entered records. Manual entries are the highest-trust source.
const ManualConfidenceFloor = 0.85

// ManualAdapter serves explicit human-entered price records from the
// store.
type ManualAdapter struct {
	store RecordStore
	log   zerolog.Logger
}

// NewManualAdapter creates a manual-entry adapter.
func NewManualAdapter(store RecordStore, log zerolog.Logger) *ManualAdapter {
	return &ManualAdapter{
		store: store,
		log:   log.With().Str("adapter", "manual").Logger(),
	}
}

// Name implements SourceAdapter.
func (a *ManualAdapter) Name() string { return "manual" }

// Source implements SourceAdapter.
func (a *ManualAdapter) Source() domain.Source { return domain.SourceManual }

// Fetch returns the newest manual observation for the query. The
// confidence floor is applied on read so that old entries recorded before
// a floor change still benefit from it.
func (a *ManualAdapter) Fetch(ctx context.Context, card domain.CardKey, cond domain.ConditionSpec) (*domain.PriceObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	obs, err := a.store.LatestBySource(card, cond, domain.SourceManual)
	if err != nil {
		return nil, fmt.Errorf("%w: manual lookup failed: %v", domain.ErrUnavailable, err)
	}
	if obs == nil {
		return nil, fmt.Errorf("%w: no manual entry for %s %s", domain.ErrUnavailable, card, cond)
	}

	if obs.Confidence < ManualConfidenceFloor {
		obs.Confidence = ManualConfidenceFloor
	}
	return obs, nil
}
