package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Raw condition tiers, ordered best to worst. These are the only valid
// RawLabel values for a ConditionSpec.
const (
	RawNearMintMint = "Near Mint/Mint"
	RawNearMint     = "Near Mint"
	RawExcellent    = "Excellent"
	RawVeryGood     = "Very Good"
	RawGood         = "Good"
)

// RawConditionOrder lists raw tiers from best to worst. Used for tier
// shifts (keyword sentiment bias) and the median-tier default.
var RawConditionOrder = []string{
	RawNearMintMint,
	RawNearMint,
	RawExcellent,
	RawVeryGood,
	RawGood,
}

// ConditionKind discriminates the ConditionSpec variant.
type ConditionKind int

const (
	// ConditionUnknown means classification found no signal. Callers must
	// handle this explicitly (assume median raw tier, confidence <= 0.5).
	ConditionUnknown ConditionKind = iota
	// ConditionRaw is an ungraded card at one of the raw tiers.
	ConditionRaw
	// ConditionGraded is a card slabbed by a grading company.
	ConditionGraded
)

func (k ConditionKind) String() string {
	switch k {
	case ConditionRaw:
		return "raw"
	case ConditionGraded:
		return "graded"
	default:
		return "unknown"
	}
}

// ConditionSpec is a tagged variant: either a raw condition tier or a
// grading-company grade, possibly carrying a special label ("GEM-MT 10")
// that overrides the numeric-grade multiplier.
type ConditionSpec struct {
	Kind         ConditionKind `json:"kind" msgpack:"kind"`
	RawLabel     string        `json:"raw_label,omitempty" msgpack:"raw_label,omitempty"`
	Company      string        `json:"company,omitempty" msgpack:"company,omitempty"`
	Grade        float64       `json:"grade,omitempty" msgpack:"grade,omitempty"`
	SpecialLabel string        `json:"special_label,omitempty" msgpack:"special_label,omitempty"`
}

// Unknown returns the unknown condition.
func Unknown() ConditionSpec {
	return ConditionSpec{Kind: ConditionUnknown}
}

// Raw builds a raw-condition spec.
func Raw(label string) ConditionSpec {
	return ConditionSpec{Kind: ConditionRaw, RawLabel: label}
}

// Graded builds a graded-condition spec.
func Graded(company string, grade float64) ConditionSpec {
	return ConditionSpec{Kind: ConditionGraded, Company: company, Grade: grade}
}

// GradedLabel builds a graded spec carrying a special label.
func GradedLabel(company string, grade float64, label string) ConditionSpec {
	return ConditionSpec{Kind: ConditionGraded, Company: company, Grade: grade, SpecialLabel: label}
}

// IsUnknown reports whether classification produced no result.
func (c ConditionSpec) IsUnknown() bool { return c.Kind == ConditionUnknown }

// IsRaw reports whether this is a raw condition tier.
func (c ConditionSpec) IsRaw() bool { return c.Kind == ConditionRaw }

// IsGraded reports whether this is a grading-company grade.
func (c ConditionSpec) IsGraded() bool { return c.Kind == ConditionGraded }

// GradeString formats the numeric grade the way grading companies print it:
// whole grades without a decimal ("9"), half grades with one ("9.5").
func (c ConditionSpec) GradeString() string {
	return strconv.FormatFloat(c.Grade, 'f', -1, 64)
}

// String renders the condition for provenance and API output.
func (c ConditionSpec) String() string {
	switch c.Kind {
	case ConditionRaw:
		return c.RawLabel
	case ConditionGraded:
		if c.SpecialLabel != "" {
			return fmt.Sprintf("%s %s", c.Company, c.SpecialLabel)
		}
		return fmt.Sprintf("%s %s", c.Company, c.GradeString())
	default:
		return "Unknown"
	}
}

// StoreKey returns the canonical form used to key observations in the
// record store. Case-insensitive on labels.
func (c ConditionSpec) StoreKey() string {
	switch c.Kind {
	case ConditionRaw:
		return "raw:" + NormalizeText(c.RawLabel)
	case ConditionGraded:
		if c.SpecialLabel != "" {
			return "graded:" + NormalizeText(c.Company) + ":" + NormalizeText(c.SpecialLabel)
		}
		return "graded:" + NormalizeText(c.Company) + ":" + c.GradeString()
	default:
		return "unknown"
	}
}

// Equal compares two specs, case-insensitive on labels and company.
func (c ConditionSpec) Equal(other ConditionSpec) bool {
	return c.StoreKey() == other.StoreKey()
}

// SameCompany reports whether both specs are graded by the same company.
func (c ConditionSpec) SameCompany(other ConditionSpec) bool {
	return c.IsGraded() && other.IsGraded() &&
		strings.EqualFold(c.Company, other.Company)
}
