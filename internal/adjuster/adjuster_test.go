package adjuster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
	"github.com/MurderWizard/pokemon-pricing/internal/guide"
)

func newAdjuster(t *testing.T) *Adjuster {
	t.Helper()
	g, err := guide.Load("")
	require.NoError(t, err)
	return New(g)
}

func TestAdjustRawToGraded(t *testing.T) {
	a := newAdjuster(t)

	// NM/M is the 1.0 reference, PSA 10 multiplier is 3.0.
	adj, err := a.Adjust(100, domain.Raw(domain.RawNearMintMint), domain.Graded("PSA", 10))
	require.NoError(t, err)
	assert.InDelta(t, 300, adj.Price, 1e-9)
	assert.Equal(t, 1.0, adj.ConfidenceFactor)
	assert.Empty(t, adj.Notes)
}

func TestAdjustSpecialLabel(t *testing.T) {
	a := newAdjuster(t)

	adj, err := a.Adjust(100, domain.Raw(domain.RawNearMintMint), domain.GradedLabel("BGS", 10, "BLACK LABEL 10"))
	require.NoError(t, err)
	assert.InDelta(t, 1000, adj.Price, 1e-9)
	assert.Equal(t, 1.0, adj.ConfidenceFactor)
}

func TestAdjustBetweenGradesSameCompany(t *testing.T) {
	a := newAdjuster(t)

	// PSA 9 (2.0) to PSA 10 (3.0): 200 / 2.0 * 3.0.
	adj, err := a.Adjust(200, domain.Graded("PSA", 9), domain.Graded("PSA", 10))
	require.NoError(t, err)
	assert.InDelta(t, 300, adj.Price, 1e-9)
	assert.Equal(t, 1.0, adj.ConfidenceFactor)
}

func TestAdjustBetweenRawTiers(t *testing.T) {
	a := newAdjuster(t)

	// Excellent (0.7) to Good (0.3).
	adj, err := a.Adjust(70, domain.Raw(domain.RawExcellent), domain.Raw(domain.RawGood))
	require.NoError(t, err)
	assert.InDelta(t, 30, adj.Price, 1e-9)
}

func TestAdjustCrossCompany(t *testing.T) {
	a := newAdjuster(t)

	// PSA 10 (3.0) to BGS 9.5 (4.0), approximated via the raw reference.
	adj, err := a.Adjust(300, domain.Graded("PSA", 10), domain.Graded("BGS", 9.5))
	require.NoError(t, err)
	assert.InDelta(t, 400, adj.Price, 1e-9)
	assert.Equal(t, CrossCompanyFactor, adj.ConfidenceFactor)
	assert.NotEmpty(t, adj.Notes)
}

func TestAdjustRoundTrip(t *testing.T) {
	a := newAdjuster(t)

	from := domain.Raw(domain.RawNearMint)
	to := domain.Graded("CGC", 9.5)

	fwd, err := a.Adjust(90, from, to)
	require.NoError(t, err)
	back, err := a.Adjust(fwd.Price, to, from)
	require.NoError(t, err)
	assert.InDelta(t, 90, back.Price, 1e-9)
}

func TestAdjustErrors(t *testing.T) {
	a := newAdjuster(t)

	tests := []struct {
		name string
		from domain.ConditionSpec
		to   domain.ConditionSpec
	}{
		{"unknown company", domain.Raw(domain.RawNearMintMint), domain.Graded("SGC", 10)},
		{"grade outside table", domain.Raw(domain.RawNearMintMint), domain.Graded("PSA", 3)},
		{"unknown raw tier", domain.Raw("Pristine"), domain.Graded("PSA", 10)},
		{"unknown special label", domain.Raw(domain.RawNearMintMint), domain.GradedLabel("PSA", 10, "PERFECT 10")},
		{"unknown condition", domain.Unknown(), domain.Graded("PSA", 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Adjust(100, tt.from, tt.to)
			assert.ErrorIs(t, err, domain.ErrUnsupportedGrade)
		})
	}

	_, err := a.Adjust(0, domain.Raw(domain.RawNearMintMint), domain.Graded("PSA", 10))
	assert.Error(t, err)
}

func TestAdjustWithFallbackNearestGrade(t *testing.T) {
	a := newAdjuster(t)

	// PSA 9.5 is not in the PSA table; ties resolve upward to PSA 10.
	adj, err := a.AdjustWithFallback(100, domain.Raw(domain.RawNearMintMint), domain.Graded("PSA", 9.5))
	require.NoError(t, err)
	assert.InDelta(t, 300, adj.Price, 1e-9)
	assert.InDelta(t, NearestGradeFactor, adj.ConfidenceFactor, 1e-9)
	assert.NotEmpty(t, adj.Notes)
}

func TestAdjustWithFallbackBothSides(t *testing.T) {
	a := newAdjuster(t)

	// PSA 6.5 falls back to 7 (ties resolve upward), target 9.5 falls back
	// to 10. Both substitutions cost a confidence factor.
	adj, err := a.AdjustWithFallback(80, domain.Graded("PSA", 6.5), domain.Graded("PSA", 9.5))
	require.NoError(t, err)
	assert.InDelta(t, 80/0.8*3.0, adj.Price, 1e-9)
	assert.InDelta(t, NearestGradeFactor*NearestGradeFactor, adj.ConfidenceFactor, 1e-9)
}

func TestAdjustWithFallbackStillFails(t *testing.T) {
	a := newAdjuster(t)

	// Unknown companies and labels have no meaningful neighbor.
	_, err := a.AdjustWithFallback(100, domain.Raw(domain.RawNearMintMint), domain.Graded("SGC", 10))
	assert.ErrorIs(t, err, domain.ErrUnsupportedGrade)

	_, err = a.AdjustWithFallback(100, domain.Raw(domain.RawNearMintMint), domain.GradedLabel("PSA", 10, "PERFECT 10"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedGrade)
}
