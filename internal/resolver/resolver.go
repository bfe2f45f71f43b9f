// Package resolver combines candidate prices from multiple source
// adapters into one verified price with a confidence score, applying
// staleness decay and outlier rejection.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/MurderWizard/pokemon-pricing/internal/adapters"
	"github.com/MurderWizard/pokemon-pricing/internal/adjuster"
	"github.com/MurderWizard/pokemon-pricing/internal/domain"
	"github.com/MurderWizard/pokemon-pricing/internal/guide"
	"github.com/MurderWizard/pokemon-pricing/pkg/logger"
)

// Options are the resolver tunables. Defaults are inferred from typical
// pricing-confidence patterns and are deliberately configuration, not
// constants.
type Options struct {
	MinUsableConfidence float64       // adapter results below this are not usable on their own
	OutlierThreshold    float64       // fractional deviation from the peer weighted median
	MaxAgeDays          float64       // staleness decay horizon
	AdapterTimeout      time.Duration // per-adapter fetch budget
}

// DefaultOptions returns the standard tunables.
func DefaultOptions() Options {
	return Options{
		MinUsableConfidence: 0.4,
		OutlierThreshold:    0.4,
		MaxAgeDays:          30,
		AdapterTimeout:      5 * time.Second,
	}
}

// EstimatedConfidenceCap bounds the confidence of estimates that rest
// solely on the heuristic fallback adapter.
const EstimatedConfidenceCap = 0.3

// UnknownConditionCap bounds the confidence of estimates for queries whose
// condition could not be classified.
const UnknownConditionCap = 0.5

// Resolver holds an ordered list of adapters (highest trust first) plus
// the value adjuster.
type Resolver struct {
	sources []adapters.SourceAdapter
	adj     *adjuster.Adjuster
	g       *guide.Guide
	opts    Options
	log     zerolog.Logger

	// now is injectable for deterministic decay in tests.
	now func() time.Time
}

// New creates a resolver. The adapter slice must be ordered by descending
// trust (manual, marketplace, estimated).
func New(sources []adapters.SourceAdapter, adj *adjuster.Adjuster, g *guide.Guide, opts Options, log zerolog.Logger) *Resolver {
	return &Resolver{
		sources: sources,
		adj:     adj,
		g:       g,
		opts:    opts,
		log:     logger.Component(log, "resolver"),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

// Resolve produces a PriceEstimate for the card at the desired condition.
// It always returns an estimate unless the multiplier configuration itself
// is unusable (domain.ErrNoData).
func (r *Resolver) Resolve(ctx context.Context, card domain.CardKey, desired domain.ConditionSpec) (*domain.PriceEstimate, error) {
	if err := card.Validate(); err != nil {
		return nil, err
	}

	var notes []string
	confidenceCap := 1.0

	// Unknown condition: assume the median raw tier at reduced confidence.
	if desired.IsUnknown() {
		desired = domain.Raw(r.g.MedianRawCondition())
		confidenceCap = UnknownConditionCap
		notes = append(notes, "condition unknown, assuming "+desired.String())
	}

	now := r.now()

	// Gather candidates for the desired condition in trust order.
	cands := r.gather(ctx, card, desired, now)

	est := r.blend(card, desired, cands, now)
	if est == nil {
		// Nothing usable at the desired condition. Gather at the raw
		// reference tier and translate through the multiplier chain.
		ref := domain.Raw(domain.RawNearMintMint)
		if !desired.Equal(ref) {
			baseCands := r.gather(ctx, card, ref, now)
			if baseEst := r.blend(card, ref, baseCands, now); baseEst != nil {
				adj, err := r.adj.AdjustWithFallback(baseEst.Price, ref, desired)
				if err == nil {
					baseEst.Condition = desired
					baseEst.Price = adj.Price
					baseEst.Confidence *= adj.ConfidenceFactor
					baseEst.Notes = append(baseEst.Notes, adj.Notes...)
					baseEst.Notes = append(baseEst.Notes, "translated from "+ref.String())
					est = baseEst
				} else if !errors.Is(err, domain.ErrUnsupportedGrade) {
					return nil, err
				} else {
					r.log.Warn().
						Str("card", card.String()).
						Str("condition", desired.String()).
						Err(err).
						Msg("Cannot translate base price to requested condition")
				}
			}
		}
	}

	if est == nil {
		// Fall through to the estimated adapter's nominal answer.
		var err error
		est, err = r.estimatedFallback(ctx, card, desired, cands)
		if err != nil {
			return nil, err
		}
	}

	if est.Confidence > confidenceCap {
		est.Confidence = confidenceCap
	}
	est.Confidence = clamp01(est.Confidence)
	est.Notes = append(est.Notes, notes...)

	r.log.Debug().
		Str("card", card.String()).
		Str("condition", est.Condition.String()).
		Float64("price", est.Price).
		Float64("confidence", est.Confidence).
		Int("sources", len(est.Sources)).
		Msg("Price resolved")

	return est, nil
}

// estimatedFallback returns the heuristic adapter's answer, confidence
// capped. If even that fails the configuration is broken and the error is
// fatal.
func (r *Resolver) estimatedFallback(ctx context.Context, card domain.CardKey, desired domain.ConditionSpec, cands []candidate) (*domain.PriceEstimate, error) {
	// Reuse an estimated candidate already gathered for provenance
	// continuity, otherwise fetch one.
	var obs *domain.PriceObservation
	for _, c := range cands {
		if c.obs.Source == domain.SourceEstimated {
			o := c.obs
			obs = &o
			break
		}
	}
	if obs == nil {
		for _, src := range r.sources {
			if src.Source() != domain.SourceEstimated {
				continue
			}
			fetched, err := src.Fetch(ctx, card, desired)
			if err != nil || fetched == nil {
				return nil, fmt.Errorf("%w: estimated adapter failed: %v", domain.ErrNoData, err)
			}
			obs = fetched
			break
		}
	}
	if obs == nil {
		return nil, fmt.Errorf("%w: no estimated adapter configured", domain.ErrNoData)
	}

	confidence := obs.Confidence
	if confidence > EstimatedConfidenceCap {
		confidence = EstimatedConfidenceCap
	}

	return &domain.PriceEstimate{
		Card:       card,
		Condition:  desired,
		Price:      obs.Price,
		Confidence: confidence,
		Sources: []domain.ContributingSource{{
			Source:     obs.Source,
			Price:      obs.Price,
			Confidence: confidence,
		}},
		Staleness: 0,
		Notes:     []string{"no usable sources, heuristic estimate"},
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
