package deals

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
	"github.com/MurderWizard/pokemon-pricing/pkg/logger"
)

// GradingTier selects the grading service speed.
type GradingTier string

const (
	TierBasic GradingTier = "BASIC"
	TierFast  GradingTier = "FAST"
)

// Grading submission costs per tier.
const (
	basicTierCost = 25.0
	fastTierCost  = 50.0
)

// Thresholds for a grading recommendation.
const (
	minGradingROI = 30.0 // percent
)

// gradeOutcome pairs a PSA grade with its probability for a near-mint raw
// card. Lower condition confidence shifts mass toward the lower grades.
type gradeOutcome struct {
	grade float64
	prob  float64
}

// GradingAnalysis is the expected-value breakdown for submitting one raw
// card for grading.
type GradingAnalysis struct {
	Card                domain.CardKey     `json:"card"`
	RawPrice            float64            `json:"raw_price"`
	GradingCost         float64            `json:"grading_cost"`
	ConditionConfidence float64            `json:"condition_confidence"`
	ExpectedValue       float64            `json:"expected_value"`
	ExpectedProfit      float64            `json:"expected_profit"`
	ROIPercent          float64            `json:"roi_percent"`
	GradeProfits        map[string]float64 `json:"grade_profits"`
	GradeChances        map[string]float64 `json:"grade_chances"`
	ShouldGrade         bool               `json:"should_grade"`
	PriceConfidence     float64            `json:"price_confidence"`
}

// PriceResolver is the slice of the resolver the calculator needs.
type PriceResolver interface {
	Resolve(ctx context.Context, card domain.CardKey, cond domain.ConditionSpec) (*domain.PriceEstimate, error)
}

// GradingCalculator estimates whether grading a raw card is worth the
// submission cost, using resolved prices for each grade outcome.
type GradingCalculator struct {
	resolver PriceResolver
	log      zerolog.Logger
}

// NewGradingCalculator creates a calculator on top of the price resolver.
func NewGradingCalculator(resolver PriceResolver, log zerolog.Logger) *GradingCalculator {
	return &GradingCalculator{
		resolver: resolver,
		log:      logger.Component(log, "grading_calculator"),
	}
}

// Evaluate computes the expected profit of grading a raw card bought at
// rawPrice, given how confident the condition assessment is.
func (c *GradingCalculator) Evaluate(ctx context.Context, card domain.CardKey, rawPrice, conditionConfidence float64, tier GradingTier) (*GradingAnalysis, error) {
	if rawPrice <= 0 {
		return nil, fmt.Errorf("%w: raw price must be positive", domain.ErrInvalidObservation)
	}

	gradingCost := basicTierCost
	if tier == TierFast {
		gradingCost = fastTierCost
	}

	outcomes := distribution(conditionConfidence)

	analysis := &GradingAnalysis{
		Card:                card,
		RawPrice:            rawPrice,
		GradingCost:         gradingCost,
		ConditionConfidence: conditionConfidence,
		GradeProfits:        make(map[string]float64, len(outcomes)),
		GradeChances:        make(map[string]float64, len(outcomes)),
	}

	totalCost := rawPrice + gradingCost
	minConfidence := 1.0

	for _, o := range outcomes {
		spec := domain.Graded("PSA", o.grade)
		est, err := c.resolver.Resolve(ctx, card, spec)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", spec.String(), err)
		}
		label := fmt.Sprintf("psa_%s", spec.GradeString())
		analysis.GradeProfits[label] = est.Price - totalCost
		analysis.GradeChances[label] = o.prob
		analysis.ExpectedValue += o.prob * est.Price
		if est.Confidence < minConfidence {
			minConfidence = est.Confidence
		}
	}

	analysis.PriceConfidence = minConfidence
	analysis.ExpectedProfit = analysis.ExpectedValue - totalCost
	analysis.ROIPercent = analysis.ExpectedProfit / totalCost * 100

	// Grade only when the expected return clears the bar and a PSA 9
	// outcome still turns a profit.
	analysis.ShouldGrade = analysis.ROIPercent > minGradingROI &&
		analysis.GradeProfits["psa_9"] > 0

	c.log.Debug().
		Str("card", card.String()).
		Float64("expected_profit", analysis.ExpectedProfit).
		Float64("roi_percent", analysis.ROIPercent).
		Bool("should_grade", analysis.ShouldGrade).
		Msg("Grading analysis complete")

	return analysis, nil
}

// distribution returns the grade probabilities for a near-mint raw card.
// Below 0.8 confidence the PSA 10 odds scale down and the mass moves to
// the lower grades.
func distribution(conditionConfidence float64) []gradeOutcome {
	if conditionConfidence >= 0.8 {
		return []gradeOutcome{
			{10, 0.15},
			{9, 0.35},
			{8, 0.35},
			{7, 0.15},
		}
	}
	p10 := 0.15 * conditionConfidence
	p9 := 0.30
	p8 := 0.40
	return []gradeOutcome{
		{10, p10},
		{9, p9},
		{8, p8},
		{7, 1 - (p10 + p9 + p8)},
	}
}
