// Package classifier maps free-text listing descriptions to a normalized
// condition or grading-company grade using the guide's keyword tables.
package classifier

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
	"github.com/MurderWizard/pokemon-pricing/internal/guide"
)

// Classifier is a pure function over the static keyword tables. Priority
// order: grading-company identifier (with adjacent grade number or special
// label), then explicit raw-condition keyword, then sentiment keywords
// biasing an otherwise-ambiguous classification by one tier.
type Classifier struct {
	g          *guide.Guide
	gradeExprs map[string][]*regexp.Regexp // company -> per-identifier grade patterns
}

// Result carries a classification plus the confidence and reasoning notes
// derived from the listing text.
type Result struct {
	Condition  domain.ConditionSpec
	Confidence float64
	Notes      []string
}

// New builds a classifier over the given guide.
func New(g *guide.Guide) *Classifier {
	c := &Classifier{
		g:          g,
		gradeExprs: make(map[string][]*regexp.Regexp),
	}
	// One pattern per identifier: the identifier followed within a few
	// tokens by a numeric grade, supporting half-grades like "9.5".
	for name, company := range g.GradingCompanies {
		for _, id := range company.Identifiers {
			expr := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(id) + `[^0-9]{0,12}(\d{1,2}(?:\.\d)?)`)
			c.gradeExprs[name] = append(c.gradeExprs[name], expr)
		}
	}
	return c
}

// Classify maps free text to a ConditionSpec. Returns the Unknown variant
// (not an error) when no keyword matches; callers must treat Unknown as
// "assume median raw condition with confidence <= 0.5".
func (c *Classifier) Classify(freeText string) domain.ConditionSpec {
	return c.ClassifyListing(freeText, "", 0).Condition
}

// ClassifyListing classifies a full listing (title plus description) and
// applies the listing-confidence rules. sellerRating is a percentage
// (e.g. 99.8); zero means unknown.
func (c *Classifier) ClassifyListing(title, description string, sellerRating float64) Result {
	text := domain.NormalizeText(title + " " + description)
	if text == "" {
		return Result{Condition: domain.Unknown()}
	}

	// Graded-company identifier match takes priority over everything.
	if res, ok := c.detectGraded(text); ok {
		return res
	}

	res := c.assessRaw(text)
	if res.Condition.IsUnknown() {
		return res
	}

	res = c.applyListingRules(res, text, sellerRating)
	return res
}

// detectGraded looks for a grading-company identifier with an adjacent
// grade number or special label.
func (c *Classifier) detectGraded(text string) (Result, bool) {
	for name, company := range c.g.GradingCompanies {
		matched := false
		for _, id := range company.Identifiers {
			if strings.Contains(text, strings.ToLower(id)) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		// Special labels override numeric grades when both appear.
		for label := range company.SpecialLabels {
			if strings.Contains(text, strings.ToLower(label)) {
				grade := trailingNumber(label)
				return Result{
					Condition:  domain.GradedLabel(name, grade, label),
					Confidence: company.Confidence,
					Notes:      []string{fmt.Sprintf("%s special label: %s", name, label)},
				}, true
			}
		}

		for _, expr := range c.gradeExprs[name] {
			if m := expr.FindStringSubmatch(text); m != nil {
				grade, err := strconv.ParseFloat(m[1], 64)
				if err != nil {
					continue
				}
				return Result{
					Condition:  domain.Graded(name, grade),
					Confidence: company.Confidence,
					Notes:      []string{fmt.Sprintf("%s grade: %s", name, m[1])},
				}, true
			}
		}

		// Identifier present but no grade found; a slabbed card without a
		// readable grade is still better classified as graded-unknown than
		// as raw, but with no grade we cannot price it. Fall through to
		// raw assessment.
	}
	return Result{}, false
}

// assessRaw classifies an ungraded card from condition keywords. Explicit
// tier keywords win; sentiment keywords shift the result by one tier, or
// anchor an otherwise-ambiguous listing around the median tier.
func (c *Classifier) assessRaw(text string) Result {
	var notes []string

	tier, conf, explicit := c.matchExplicitTier(text)

	negImpact := c.matchImpact(c.g.ConditionKeywords.Negative, text)
	posImpact := c.matchImpact(c.g.ConditionKeywords.Positive, text)

	if !explicit {
		if negImpact == "" && posImpact == "" {
			return Result{Condition: domain.Unknown()}
		}
		// Ambiguous listing with sentiment only: bias off the median tier.
		tier = c.g.MedianRawCondition()
		conf = 0.5
		if posImpact != "" {
			tier = shiftTier(tier, -1)
			notes = append(notes, "positive keywords: "+posImpact)
		}
		if negImpact != "" {
			tier = shiftTier(tier, 1)
			notes = append(notes, "negative keywords: "+negImpact)
		}
	} else {
		notes = append(notes, "explicit condition: "+tier)
		switch negImpact {
		case "heavy_impact":
			tier = domain.RawGood
			notes = append(notes, "heavy negative keywords")
		case "medium_impact":
			if tier == domain.RawNearMintMint || tier == domain.RawNearMint {
				tier = domain.RawExcellent
				notes = append(notes, "medium negative keywords")
			}
		case "light_impact":
			if tier == domain.RawNearMintMint {
				tier = domain.RawNearMint
				notes = append(notes, "light negative keywords")
			}
		}
		if negImpact == "" {
			switch posImpact {
			case "high_confidence":
				tier = domain.RawNearMintMint
				conf += 0.1
				notes = append(notes, "strong positive keywords")
			case "medium_confidence":
				if tier != domain.RawNearMintMint {
					tier = domain.RawNearMint
				}
				conf += 0.05
				notes = append(notes, "medium positive keywords")
			}
		}
	}

	if rc, canonical, ok := c.g.RawConditionFor(tier); ok {
		tier = canonical
		if !explicit {
			conf = minf(conf, 0.5)
		} else if conf == 0 {
			conf = rc.Confidence
		}
	}

	return Result{
		Condition:  domain.Raw(tier),
		Confidence: conf,
		Notes:      notes,
	}
}

// matchExplicitTier finds the most specific raw tier keyword present.
// Longer keyword matches win: "near mint" must beat a bare "mint" hit
// from a different tier.
func (c *Classifier) matchExplicitTier(text string) (string, float64, bool) {
	bestLen := 0
	var bestTier string
	var bestConf float64
	for _, tier := range domain.RawConditionOrder {
		rc, canonical, ok := c.g.RawConditionFor(tier)
		if !ok {
			continue
		}
		for _, kw := range rc.Keywords {
			kwNorm := strings.ToLower(kw)
			if strings.Contains(text, kwNorm) && len(kwNorm) > bestLen {
				bestLen = len(kwNorm)
				bestTier = canonical
				bestConf = rc.Confidence
			}
		}
	}
	return bestTier, bestConf, bestLen > 0
}

// matchImpact returns the strongest matching impact bucket, in declaration
// priority: heavy > medium > light, high > medium.
func (c *Classifier) matchImpact(buckets map[string][]string, text string) string {
	order := []string{"heavy_impact", "medium_impact", "light_impact", "high_confidence", "medium_confidence"}
	for _, bucket := range order {
		words, ok := buckets[bucket]
		if !ok {
			continue
		}
		for _, w := range words {
			if strings.Contains(text, strings.ToLower(w)) {
				return bucket
			}
		}
	}
	return ""
}

// applyListingRules adjusts confidence from listing metadata: photo
// quality, flaw specificity, seller rating bands. Clamped to [0, 0.95].
func (c *Classifier) applyListingRules(res Result, text string, sellerRating float64) Result {
	rules := c.g.ListingConfidenceRules

	if strings.Contains(text, "clear photos") {
		res.Confidence += rules.HasClearPhotos
		res.Notes = append(res.Notes, "clear photos provided")
	}

	for _, flaw := range []string{"whitening", "scratch", "wear", "damage"} {
		if strings.Contains(text, flaw) {
			res.Confidence += rules.MentionsSpecificFlaws
			res.Notes = append(res.Notes, "specific flaws mentioned")
			break
		}
	}

	if sellerRating > 0 {
		var band string
		switch {
		case sellerRating >= 99:
			band = "99+"
		case sellerRating >= 98:
			band = "98-99"
		case sellerRating >= 95:
			band = "95-97"
		default:
			band = "<95"
		}
		if impact, ok := rules.SellerRatingImpact[band]; ok {
			res.Confidence += impact
			res.Notes = append(res.Notes, fmt.Sprintf("seller rating %.1f%%", sellerRating))
		}
	}

	if res.Confidence < 0 {
		res.Confidence = 0
	}
	if res.Confidence > 0.95 {
		res.Confidence = 0.95
	}
	return res
}

// shiftTier moves a raw tier by delta steps in the best-to-worst order.
// Positive delta moves toward worse tiers.
func shiftTier(tier string, delta int) string {
	idx := 0
	for i, t := range domain.RawConditionOrder {
		if strings.EqualFold(t, tier) {
			idx = i
			break
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(domain.RawConditionOrder) {
		idx = len(domain.RawConditionOrder) - 1
	}
	return domain.RawConditionOrder[idx]
}

// trailingNumber extracts the numeric grade from a special label like
// "BLACK LABEL 10"; zero when the label carries no number.
func trailingNumber(label string) float64 {
	fields := strings.Fields(label)
	for i := len(fields) - 1; i >= 0; i-- {
		if v, err := strconv.ParseFloat(fields[i], 64); err == nil {
			return v
		}
	}
	return 0
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
