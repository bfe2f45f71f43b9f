package adapters

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
)

// Listing is one marketplace data point handed over by the lookup
// collaborator.
type Listing struct {
	Price             float64
	Timestamp         time.Time
	SampleDescription string
}

// MarketplaceLookup is the collaborator contract: given a card query,
// return recent matching listings.
type MarketplaceLookup interface {
	RecentListings(ctx context.Context, card domain.CardKey, cond domain.ConditionSpec) ([]Listing, error)
}

// MarketplaceAdapter aggregates recent listings into a single observation.
// Confidence grows with sample size and shrinks with price dispersion:
// clamp(0.5 + 0.05*ln(n) - 0.3*cv, 0.1, 0.95). Results are written back
// to the store to warm the cache.
type MarketplaceAdapter struct {
	lookup MarketplaceLookup
	store  RecordStore
	log    zerolog.Logger
}

// NewMarketplaceAdapter creates a marketplace aggregation adapter.
func NewMarketplaceAdapter(lookup MarketplaceLookup, store RecordStore, log zerolog.Logger) *MarketplaceAdapter {
	return &MarketplaceAdapter{
		lookup: lookup,
		store:  store,
		log:    log.With().Str("adapter", "marketplace").Logger(),
	}
}

// Name implements SourceAdapter.
func (a *MarketplaceAdapter) Name() string { return "marketplace" }

// Source implements SourceAdapter.
func (a *MarketplaceAdapter) Source() domain.Source { return domain.SourceMarketplace }

// Fetch aggregates the collaborator's recent listings. The median price is
// used as the observation value to resist single-listing extremes.
func (a *MarketplaceAdapter) Fetch(ctx context.Context, card domain.CardKey, cond domain.ConditionSpec) (*domain.PriceObservation, error) {
	if a.lookup == nil {
		// No live lookup wired in: serve the newest stored marketplace
		// observation instead.
		obs, err := a.store.LatestBySource(card, cond, domain.SourceMarketplace)
		if err != nil || obs == nil {
			return nil, fmt.Errorf("%w: no marketplace data for %s %s", domain.ErrUnavailable, card, cond)
		}
		return obs, nil
	}

	listings, err := a.lookup.RecentListings(ctx, card, cond)
	if err != nil {
		return nil, fmt.Errorf("%w: marketplace lookup failed: %v", domain.ErrUnavailable, err)
	}

	prices := make([]float64, 0, len(listings))
	for _, l := range listings {
		if l.Price > 0 {
			prices = append(prices, l.Price)
		}
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: no usable listings for %s %s", domain.ErrUnavailable, card, cond)
	}

	sort.Float64s(prices)
	median := stat.Quantile(0.5, stat.Empirical, prices, nil)
	confidence := aggregateConfidence(prices)

	obs := &domain.PriceObservation{
		Card:       card,
		Condition:  cond,
		Price:      median,
		Confidence: confidence,
		Source:     domain.SourceMarketplace,
		ObservedAt: time.Now().UTC(),
		SampleSize: len(prices),
	}

	// Warm the cache. A write failure degrades to a log line; the caller
	// still gets the observation.
	if err := a.store.Put(*obs); err != nil {
		a.log.Warn().Err(err).Str("card", card.String()).Msg("Failed to cache marketplace observation")
	}

	return obs, nil
}

// aggregateConfidence derives confidence from sample size and the
// coefficient of variation of the sample.
func aggregateConfidence(prices []float64) float64 {
	n := float64(len(prices))
	mean, std := stat.MeanStdDev(prices, nil)

	cv := 0.0
	if mean > 0 && len(prices) > 1 {
		cv = std / mean
	}

	confidence := 0.5 + 0.05*math.Log(n) - 0.3*cv
	if confidence < 0.1 {
		confidence = 0.1
	}
	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence
}
