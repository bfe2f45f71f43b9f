package resolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
)

// candidate is one adapter answer plus its staleness-decayed effective
// confidence.
type candidate struct {
	obs     domain.PriceObservation
	effConf float64
}

// gather asks every adapter for a price at the given condition. Adapter
// failures and timeouts degrade to the next adapter; they never fail the
// resolution. Decay is applied here so blending sees effective weights.
func (r *Resolver) gather(ctx context.Context, card domain.CardKey, cond domain.ConditionSpec, now time.Time) []candidate {
	var out []candidate
	for _, src := range r.sources {
		fetchCtx, cancel := context.WithTimeout(ctx, r.opts.AdapterTimeout)
		obs, err := src.Fetch(fetchCtx, card, cond)
		cancel()
		if err != nil {
			if !errors.Is(err, domain.ErrUnavailable) {
				r.log.Warn().
					Str("adapter", src.Name()).
					Str("card", card.String()).
					Err(err).
					Msg("Adapter fetch failed")
			}
			continue
		}
		if obs == nil {
			continue
		}
		out = append(out, candidate{
			obs:     *obs,
			effConf: obs.Confidence * decay(obs.AgeDays(now), r.opts.MaxAgeDays),
		})
	}
	return out
}

// decay returns the linear freshness factor max(0, 1 - age/horizon).
func decay(ageDays, horizon float64) float64 {
	if horizon <= 0 {
		return 1
	}
	f := 1 - ageDays/horizon
	if f < 0 {
		return 0
	}
	return f
}

// blend combines the usable candidates into an estimate. Returns nil when
// no candidate clears the usable-confidence bar, signalling the caller to
// degrade.
func (r *Resolver) blend(card domain.CardKey, cond domain.ConditionSpec, cands []candidate, now time.Time) *domain.PriceEstimate {
	var usable []candidate
	var provenance []domain.ContributingSource

	for _, c := range cands {
		// The estimated adapter is a fallback, never a blending peer.
		if c.obs.Source == domain.SourceEstimated {
			continue
		}
		if c.effConf < r.opts.MinUsableConfidence {
			provenance = append(provenance, domain.ContributingSource{
				Source:     c.obs.Source,
				Price:      c.obs.Price,
				Confidence: c.effConf,
				Rejected:   true,
				Reason:     "below usable confidence",
			})
			continue
		}
		usable = append(usable, c)
	}

	if len(usable) == 0 {
		return nil
	}

	kept, rejected := r.rejectOutliers(usable)
	for _, c := range rejected {
		r.log.Info().
			Str("card", card.String()).
			Str("source", string(c.obs.Source)).
			Float64("price", c.obs.Price).
			Msg("Outlier price rejected")
		provenance = append(provenance, domain.ContributingSource{
			Source:     c.obs.Source,
			Price:      c.obs.Price,
			Confidence: c.effConf,
			Rejected:   true,
			Reason:     "outlier",
		})
	}

	var price, confidence float64
	if len(kept) == 1 {
		price = kept[0].obs.Price
		confidence = kept[0].effConf
	} else {
		prices := make([]float64, len(kept))
		confs := make([]float64, len(kept))
		for i, c := range kept {
			prices[i] = c.obs.Price
			confs[i] = c.effConf
		}
		var sum, weightSum float64
		for i := range prices {
			sum += prices[i] * confs[i]
			weightSum += confs[i]
		}
		price = sum / weightSum
		// Harmonic mean penalizes the blend for carrying any
		// low-confidence contributor.
		confidence = stat.HarmonicMean(confs, nil)
	}

	freshest := kept[0].obs.ObservedAt
	for _, c := range kept {
		provenance = append(provenance, domain.ContributingSource{
			Source:     c.obs.Source,
			Price:      c.obs.Price,
			Confidence: c.effConf,
		})
		if c.obs.ObservedAt.After(freshest) {
			freshest = c.obs.ObservedAt
		}
	}

	staleness := now.Sub(freshest)
	if staleness < 0 {
		staleness = 0
	}

	var notes []string
	if len(kept) > 1 {
		notes = append(notes, fmt.Sprintf("blended %d sources", len(kept)))
	}

	return &domain.PriceEstimate{
		Card:       card,
		Condition:  cond,
		Price:      price,
		Confidence: clamp01(confidence),
		Sources:    provenance,
		Staleness:  staleness,
		Notes:      notes,
	}
}

// rejectOutliers drops candidates whose price deviates more than the
// configured fraction from the confidence-weighted median of their peers.
// With fewer than three candidates there is no majority to trust, so
// nothing is rejected.
func (r *Resolver) rejectOutliers(cands []candidate) (kept, rejected []candidate) {
	if len(cands) < 3 {
		return cands, nil
	}
	for i, c := range cands {
		peers := make([]candidate, 0, len(cands)-1)
		peers = append(peers, cands[:i]...)
		peers = append(peers, cands[i+1:]...)
		med := weightedMedian(peers)
		if med <= 0 {
			kept = append(kept, c)
			continue
		}
		if math.Abs(c.obs.Price-med)/med > r.opts.OutlierThreshold {
			rejected = append(rejected, c)
		} else {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		// Everything rejected everything: mutual distrust, keep all.
		return cands, nil
	}
	return kept, rejected
}

// weightedMedian computes the confidence-weighted median price.
func weightedMedian(cands []candidate) float64 {
	sorted := make([]candidate, len(cands))
	copy(sorted, cands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].obs.Price < sorted[j].obs.Price })

	prices := make([]float64, len(sorted))
	weights := make([]float64, len(sorted))
	for i, c := range sorted {
		prices[i] = c.obs.Price
		weights[i] = c.effConf
	}
	return stat.Quantile(0.5, stat.Empirical, prices, weights)
}
