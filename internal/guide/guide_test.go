package guide

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
)

func loadDefault(t *testing.T) *Guide {
	t.Helper()
	g, err := Load("")
	require.NoError(t, err)
	return g
}

func TestLoadEmbeddedDefault(t *testing.T) {
	g := loadDefault(t)

	assert.Len(t, g.RawConditions, 5)
	assert.Contains(t, g.GradingCompanies, "PSA")
	assert.Contains(t, g.GradingCompanies, "BGS")
	assert.Contains(t, g.GradingCompanies, "CGC")
	assert.Equal(t, 5.0, g.NominalPrice)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/guide.json")
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guide.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestLoadRejectsIncompleteGuide(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guide.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"raw_conditions": {}}`), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestCompanyLookup(t *testing.T) {
	g := loadDefault(t)

	c, canonical, ok := g.Company("psa")
	require.True(t, ok)
	assert.Equal(t, "PSA", canonical)
	assert.Equal(t, 0.95, c.Confidence)

	_, _, ok = g.Company("SGC")
	assert.False(t, ok)
}

func TestRawConditionLookup(t *testing.T) {
	g := loadDefault(t)

	rc, canonical, ok := g.RawConditionFor("near mint/mint")
	require.True(t, ok)
	assert.Equal(t, domain.RawNearMintMint, canonical)
	assert.Equal(t, 1.0, rc.Multiplier)

	_, _, ok = g.RawConditionFor("Pristine")
	assert.False(t, ok)
}

func TestMedianRawCondition(t *testing.T) {
	g := loadDefault(t)
	assert.Equal(t, domain.RawExcellent, g.MedianRawCondition())
}

func TestMultiplierFor(t *testing.T) {
	g := loadDefault(t)
	psa, _, _ := g.Company("PSA")
	bgs, _, _ := g.Company("BGS")

	tests := []struct {
		name string
		c    GradingCompany
		spec domain.ConditionSpec
		want float64
		ok   bool
	}{
		{"psa 10", psa, domain.Graded("PSA", 10), 3.0, true},
		{"psa 7", psa, domain.Graded("PSA", 7), 0.8, true},
		{"bgs 9.5", bgs, domain.Graded("BGS", 9.5), 4.0, true},
		{"special label overrides grade", psa, domain.GradedLabel("PSA", 10, "GEM-MT 10"), 3.2, true},
		{"special label case-insensitive", bgs, domain.GradedLabel("BGS", 10, "black label 10"), 10.0, true},
		{"unknown special label never falls back", psa, domain.GradedLabel("PSA", 10, "PERFECT 10"), 0, false},
		{"grade outside table", psa, domain.Graded("PSA", 4), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := tt.c.MultiplierFor(tt.spec)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, m)
			}
		})
	}
}

func TestNearestGrade(t *testing.T) {
	g := loadDefault(t)
	psa, _, _ := g.Company("PSA")

	grade, mult, ok := psa.NearestGrade(9.5)
	require.True(t, ok)
	// Equidistant between 9 and 10: ties resolve to the higher grade.
	assert.Equal(t, 10.0, grade)
	assert.Equal(t, 3.0, mult)

	grade, mult, ok = psa.NearestGrade(6.4)
	require.True(t, ok)
	assert.Equal(t, 6.0, grade)
	assert.Equal(t, 0.6, mult)

	_, _, ok = GradingCompany{}.NearestGrade(9)
	assert.False(t, ok)
}

func TestValidGrade(t *testing.T) {
	g := loadDefault(t)
	psa, _, _ := g.Company("PSA")

	assert.True(t, psa.ValidGrade(10))
	assert.True(t, psa.ValidGrade(8.5))
	assert.False(t, psa.ValidGrade(0.5))
	assert.False(t, psa.ValidGrade(11))
	assert.False(t, psa.ValidGrade(9.3))
}
