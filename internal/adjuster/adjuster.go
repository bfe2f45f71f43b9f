// Package adjuster converts a price at one condition or grade into the
// estimated price at another, using the guide's multiplier tables.
package adjuster

import (
	"fmt"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
	"github.com/MurderWizard/pokemon-pricing/internal/guide"
)

// Confidence factors applied to approximate conversions. Cross-company
// equivalence is not guaranteed by the data, and nearest-grade fallback
// substitutes a neighboring table entry.
const (
	CrossCompanyFactor = 0.7
	NearestGradeFactor = 0.8
)

// Adjuster applies multiplier chains between condition specs. All
// multipliers are defined relative to the raw ungraded reference value,
// so every conversion reduces to divide-by-from, multiply-by-to.
type Adjuster struct {
	g *guide.Guide
}

// Adjustment is the outcome of a conversion. ConfidenceFactor is
// multiplicative: 1.0 for exact table conversions, reduced for
// approximations.
type Adjustment struct {
	Price            float64
	ConfidenceFactor float64
	Notes            []string
}

// New creates an adjuster over the given guide.
func New(g *guide.Guide) *Adjuster {
	return &Adjuster{g: g}
}

// Adjust converts basePrice at condition from into the estimated price at
// condition to. Returns domain.ErrUnsupportedGrade when either side is not
// in the multiplier tables; callers wanting graceful degradation should
// use AdjustWithFallback.
func (a *Adjuster) Adjust(basePrice float64, from, to domain.ConditionSpec) (Adjustment, error) {
	if basePrice <= 0 {
		return Adjustment{}, fmt.Errorf("adjust: base price must be positive, got %.2f", basePrice)
	}

	fromMult, err := a.multiplier(from)
	if err != nil {
		return Adjustment{}, err
	}
	toMult, err := a.multiplier(to)
	if err != nil {
		return Adjustment{}, err
	}

	adj := Adjustment{
		Price:            basePrice / fromMult * toMult,
		ConfidenceFactor: 1.0,
	}

	// Cross-company graded conversions go through the raw reference as an
	// intermediate. The result is an approximation, flagged with reduced
	// confidence.
	if from.IsGraded() && to.IsGraded() && !from.SameCompany(to) {
		adj.ConfidenceFactor = CrossCompanyFactor
		adj.Notes = append(adj.Notes,
			fmt.Sprintf("cross-company conversion %s to %s via raw intermediate", from.Company, to.Company))
	}

	return adj, nil
}

// AdjustWithFallback behaves like Adjust but recovers from unsupported
// grades by substituting the numerically nearest known grade for the same
// company, at reduced confidence. It still fails for unknown companies or
// unknown special labels, which have no meaningful neighbor.
func (a *Adjuster) AdjustWithFallback(basePrice float64, from, to domain.ConditionSpec) (Adjustment, error) {
	adj, err := a.Adjust(basePrice, from, to)
	if err == nil {
		return adj, nil
	}

	factor := 1.0
	var notes []string

	resolvedFrom, fromNote, fromErr := a.nearestSupported(from)
	if fromErr != nil {
		return Adjustment{}, fromErr
	}
	if fromNote != "" {
		factor *= NearestGradeFactor
		notes = append(notes, fromNote)
	}

	resolvedTo, toNote, toErr := a.nearestSupported(to)
	if toErr != nil {
		return Adjustment{}, toErr
	}
	if toNote != "" {
		factor *= NearestGradeFactor
		notes = append(notes, toNote)
	}

	adj, err = a.Adjust(basePrice, resolvedFrom, resolvedTo)
	if err != nil {
		return Adjustment{}, err
	}
	adj.ConfidenceFactor *= factor
	adj.Notes = append(adj.Notes, notes...)
	return adj, nil
}

// multiplier resolves the table multiplier for a spec. Special labels
// override the numeric grade when present.
func (a *Adjuster) multiplier(spec domain.ConditionSpec) (float64, error) {
	switch spec.Kind {
	case domain.ConditionRaw:
		rc, _, ok := a.g.RawConditionFor(spec.RawLabel)
		if !ok {
			return 0, fmt.Errorf("%w: raw condition %q", domain.ErrUnsupportedGrade, spec.RawLabel)
		}
		return rc.Multiplier, nil

	case domain.ConditionGraded:
		company, _, ok := a.g.Company(spec.Company)
		if !ok {
			return 0, fmt.Errorf("%w: grading company %q", domain.ErrUnsupportedGrade, spec.Company)
		}
		m, ok := company.MultiplierFor(spec)
		if !ok {
			return 0, fmt.Errorf("%w: %s", domain.ErrUnsupportedGrade, spec.String())
		}
		return m, nil

	default:
		return 0, fmt.Errorf("%w: unknown condition", domain.ErrUnsupportedGrade)
	}
}

// nearestSupported maps an unsupported numeric grade to the closest known
// grade for the same company. Returns the spec unchanged (empty note) when
// it is already supported. Special labels and unknown companies do not
// participate in nearest-grade search.
func (a *Adjuster) nearestSupported(spec domain.ConditionSpec) (domain.ConditionSpec, string, error) {
	if _, err := a.multiplier(spec); err == nil {
		return spec, "", nil
	}

	if !spec.IsGraded() || spec.SpecialLabel != "" {
		return spec, "", fmt.Errorf("%w: %s", domain.ErrUnsupportedGrade, spec.String())
	}

	company, canonical, ok := a.g.Company(spec.Company)
	if !ok {
		return spec, "", fmt.Errorf("%w: grading company %q", domain.ErrUnsupportedGrade, spec.Company)
	}

	nearest, _, found := company.NearestGrade(spec.Grade)
	if !found {
		return spec, "", fmt.Errorf("%w: %s has no graded multipliers", domain.ErrUnsupportedGrade, canonical)
	}

	resolved := domain.Graded(canonical, nearest)
	note := fmt.Sprintf("grade %s %s not in tables, using nearest %s",
		canonical, spec.GradeString(), resolved.GradeString())
	return resolved, note, nil
}
