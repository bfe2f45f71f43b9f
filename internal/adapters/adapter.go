// Package adapters provides pluggable price sources. Each adapter
// produces a candidate observation for a card query or reports
// domain.ErrUnavailable; the resolver queries them in trust order.
package adapters

import (
	"context"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
)

// SourceAdapter is a pluggable provider of candidate price observations.
type SourceAdapter interface {
	// Name identifies the adapter for logging and provenance.
	Name() string
	// Source is the observation source this adapter produces.
	Source() domain.Source
	// Fetch returns a candidate observation for the query, or an error
	// wrapping domain.ErrUnavailable when this source has nothing.
	Fetch(ctx context.Context, card domain.CardKey, cond domain.ConditionSpec) (*domain.PriceObservation, error)
}

// RecordStore is the subset of the price store adapters depend on.
type RecordStore interface {
	Put(obs domain.PriceObservation) error
	LatestBySource(card domain.CardKey, cond domain.ConditionSpec, source domain.Source) (*domain.PriceObservation, error)
}
