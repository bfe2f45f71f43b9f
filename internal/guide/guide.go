// Package guide holds the multiplier and keyword configuration that drives
// condition classification and value adjustment. The guide is loaded once at
// startup and is immutable for the lifetime of the process; components
// receive it by explicit injection, never through globals.
package guide

import (
	"math"
	"strconv"
	"strings"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
)

// RawCondition describes one raw condition tier.
type RawCondition struct {
	Multiplier float64  `json:"multiplier"`
	Confidence float64  `json:"confidence"`
	Keywords   []string `json:"keywords"`
}

// GradingCompany describes one grading company's multiplier table.
// Multipliers are defined relative to the raw ungraded reference price.
type GradingCompany struct {
	Identifiers   []string           `json:"identifiers"`
	Confidence    float64            `json:"confidence"`
	MarketShare   float64            `json:"market_share"`
	MinGrade      float64            `json:"min_grade"`
	MaxGrade      float64            `json:"max_grade"`
	Multipliers   map[string]float64 `json:"multipliers"`
	SpecialLabels map[string]float64 `json:"special_labels"`
}

// KeywordImpacts groups sentiment keyword lists by impact strength.
type KeywordImpacts struct {
	Negative map[string][]string `json:"negative"`
	Positive map[string][]string `json:"positive"`
}

// ListingConfidenceRules holds confidence modifiers derived from listing
// metadata rather than condition keywords.
type ListingConfidenceRules struct {
	HasClearPhotos        float64            `json:"has_clear_photos"`
	MentionsSpecificFlaws float64            `json:"mentions_specific_flaws"`
	SellerRatingImpact    map[string]float64 `json:"seller_rating_impact"`
}

// Guide is the full immutable configuration document.
type Guide struct {
	RawConditions          map[string]RawCondition       `json:"raw_conditions"`
	GradingCompanies       map[string]GradingCompany     `json:"grading_companies"`
	ConditionKeywords      KeywordImpacts                `json:"automatic_condition_keywords"`
	ListingConfidenceRules ListingConfidenceRules        `json:"listing_confidence_rules"`
	BasePrices             map[string]map[string]float64 `json:"base_prices"`
	NominalPrice           float64                       `json:"nominal_price"`
}

// Company resolves a grading company by name, case-insensitive.
func (g *Guide) Company(name string) (GradingCompany, string, bool) {
	for canonical, c := range g.GradingCompanies {
		if strings.EqualFold(canonical, name) {
			return c, canonical, true
		}
	}
	return GradingCompany{}, "", false
}

// RawConditionFor resolves a raw tier by label, case-insensitive.
func (g *Guide) RawConditionFor(label string) (RawCondition, string, bool) {
	for canonical, rc := range g.RawConditions {
		if strings.EqualFold(canonical, label) {
			return rc, canonical, true
		}
	}
	return RawCondition{}, "", false
}

// MedianRawCondition returns the middle raw tier. Unknown classifications
// fall back to this tier.
func (g *Guide) MedianRawCondition() string {
	return domain.RawConditionOrder[len(domain.RawConditionOrder)/2]
}

// MultiplierFor returns the multiplier for a graded spec. Special labels
// override the numeric-grade multiplier when present, matched
// case-insensitively on label text.
func (c GradingCompany) MultiplierFor(spec domain.ConditionSpec) (float64, bool) {
	if spec.SpecialLabel != "" {
		for label, m := range c.SpecialLabels {
			if strings.EqualFold(label, spec.SpecialLabel) {
				return m, true
			}
		}
		// Label named but not in the table: unsupported, do not silently
		// fall back to the numeric grade.
		return 0, false
	}
	if m, ok := c.Multipliers[spec.GradeString()]; ok {
		return m, true
	}
	return 0, false
}

// NearestGrade returns the numerically closest known grade and its
// multiplier. Special labels never participate in the search. Returns
// false when the multiplier table is empty.
func (c GradingCompany) NearestGrade(grade float64) (float64, float64, bool) {
	bestDist := math.Inf(1)
	var bestGrade, bestMult float64
	found := false
	for gradeStr, m := range c.Multipliers {
		g, err := strconv.ParseFloat(gradeStr, 64)
		if err != nil {
			continue
		}
		d := math.Abs(g - grade)
		// Ties resolve to the higher grade for determinism.
		if d < bestDist || (d == bestDist && g > bestGrade) {
			bestDist = d
			bestGrade = g
			bestMult = m
			found = true
		}
	}
	return bestGrade, bestMult, found
}

// ValidGrade reports whether a grade falls in the company's valid range
// and lands on a half-grade step.
func (c GradingCompany) ValidGrade(grade float64) bool {
	if grade < c.MinGrade || grade > c.MaxGrade {
		return false
	}
	stepped := math.Round(grade*2) / 2
	return stepped == grade
}
