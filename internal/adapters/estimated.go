package adapters

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MurderWizard/pokemon-pricing/internal/adjuster"
	"github.com/MurderWizard/pokemon-pricing/internal/domain"
	"github.com/MurderWizard/pokemon-pricing/internal/guide"
)

// EstimatedConfidence is the static confidence for heuristic estimates
// derived from comparable cards.
const EstimatedConfidence = 0.3

// EstimatedAdapter is the adapter of last resort. It derives a price from
// the guide's comparable base prices scaled by condition multiplier, and
// when absolutely nothing is known it returns a zero-confidence nominal
// estimate rather than failing.
type EstimatedAdapter struct {
	g   *guide.Guide
	adj *adjuster.Adjuster
	log zerolog.Logger
}

// NewEstimatedAdapter creates the fallback heuristic adapter.
func NewEstimatedAdapter(g *guide.Guide, adj *adjuster.Adjuster, log zerolog.Logger) *EstimatedAdapter {
	return &EstimatedAdapter{
		g:   g,
		adj: adj,
		log: log.With().Str("adapter", "estimated").Logger(),
	}
}

// Name implements SourceAdapter.
func (a *EstimatedAdapter) Name() string { return "estimated" }

// Source implements SourceAdapter.
func (a *EstimatedAdapter) Source() domain.Source { return domain.SourceEstimated }

// Fetch never returns an error: the resolver's always-answer guarantee
// rests on that.
func (a *EstimatedAdapter) Fetch(_ context.Context, card domain.CardKey, cond domain.ConditionSpec) (*domain.PriceObservation, error) {
	now := time.Now().UTC()

	base, found := a.comparableBasePrice(card)
	if !found {
		// No comparable at all: nominal estimate, zero confidence.
		return &domain.PriceObservation{
			Card:       card,
			Condition:  cond,
			Price:      a.g.NominalPrice,
			Confidence: 0,
			Source:     domain.SourceEstimated,
			ObservedAt: now,
		}, nil
	}

	// Base prices are raw Near Mint/Mint references; scale to the
	// requested condition.
	price := base
	confidence := EstimatedConfidence
	if !cond.IsUnknown() {
		adj, err := a.adj.AdjustWithFallback(base, domain.Raw(domain.RawNearMintMint), cond)
		if err != nil {
			a.log.Debug().
				Str("card", card.String()).
				Str("condition", cond.String()).
				Err(err).
				Msg("Cannot scale comparable to requested condition, using nominal")
			return &domain.PriceObservation{
				Card:       card,
				Condition:  cond,
				Price:      a.g.NominalPrice,
				Confidence: 0,
				Source:     domain.SourceEstimated,
				ObservedAt: now,
			}, nil
		}
		price = adj.Price
		confidence *= adj.ConfidenceFactor
	}

	return &domain.PriceObservation{
		Card:       card,
		Condition:  cond,
		Price:      price,
		Confidence: confidence,
		Source:     domain.SourceEstimated,
		ObservedAt: now,
	}, nil
}

// comparableBasePrice searches the guide's comparables table by substring
// match on the normalized card name, preferring a set match and falling
// back to the highest-priced known printing. The longest matching name
// wins so "charizard vmax" is not shadowed by "charizard v".
func (a *EstimatedAdapter) comparableBasePrice(card domain.CardKey) (float64, bool) {
	norm := card.Normalized()

	bestLen := 0
	var bestSets map[string]float64
	for baseName, sets := range a.g.BasePrices {
		if strings.Contains(norm.Name, baseName) && len(baseName) > bestLen {
			bestLen = len(baseName)
			bestSets = sets
		}
	}
	if bestSets == nil {
		return 0, false
	}

	for setName, price := range bestSets {
		if norm.Set != "" && strings.Contains(norm.Set, setName) {
			return price, true
		}
	}
	// No set match: take the highest-priced printing deterministically.
	best := 0.0
	for _, price := range bestSets {
		if price > best {
			best = price
		}
	}
	return best, true
}
