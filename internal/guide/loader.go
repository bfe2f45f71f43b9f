package guide

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
)

//go:embed condition_guide.json
var defaultGuide []byte

// Load reads the guide document. When path is empty the embedded default
// document is used. A guide that fails validation is a configuration-level
// failure: the returned error wraps domain.ErrNoData and must be treated
// as fatal by the caller.
func Load(path string) (*Guide, error) {
	data := defaultGuide
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading guide %s: %v", domain.ErrNoData, path, err)
		}
		data = fileData
	}

	var g Guide
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: parsing guide: %v", domain.ErrNoData, err)
	}

	if err := g.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNoData, err)
	}

	return &g, nil
}

// validate checks the guide for the corruption cases that would make
// estimation impossible.
func (g *Guide) validate() error {
	if len(g.RawConditions) == 0 {
		return fmt.Errorf("guide has no raw conditions")
	}
	for _, label := range domain.RawConditionOrder {
		if _, _, ok := g.RawConditionFor(label); !ok {
			return fmt.Errorf("guide missing raw condition %q", label)
		}
	}
	for label, rc := range g.RawConditions {
		if rc.Multiplier <= 0 {
			return fmt.Errorf("raw condition %q has non-positive multiplier", label)
		}
		if rc.Confidence < 0 || rc.Confidence > 1 {
			return fmt.Errorf("raw condition %q has confidence outside [0,1]", label)
		}
	}
	if len(g.GradingCompanies) == 0 {
		return fmt.Errorf("guide has no grading companies")
	}
	for name, c := range g.GradingCompanies {
		if len(c.Multipliers) == 0 {
			return fmt.Errorf("grading company %q has no multipliers", name)
		}
		if c.Confidence < 0 || c.Confidence > 1 {
			return fmt.Errorf("grading company %q has confidence outside [0,1]", name)
		}
		if c.MinGrade <= 0 || c.MaxGrade < c.MinGrade {
			return fmt.Errorf("grading company %q has invalid grade range", name)
		}
		for grade, m := range c.Multipliers {
			if m <= 0 {
				return fmt.Errorf("grading company %q grade %s has non-positive multiplier", name, grade)
			}
		}
		for label, m := range c.SpecialLabels {
			if m <= 0 {
				return fmt.Errorf("grading company %q label %q has non-positive multiplier", name, label)
			}
		}
	}
	if g.NominalPrice <= 0 {
		return fmt.Errorf("nominal price must be positive")
	}
	return nil
}
