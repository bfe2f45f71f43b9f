package trend

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
)

type fakeHistory struct {
	observations []domain.PriceObservation
	err          error
}

func (s *fakeHistory) History(_ domain.CardKey, _ domain.ConditionSpec, limit int) ([]domain.PriceObservation, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := s.observations
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func historyOf(prices ...float64) *fakeHistory {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]domain.PriceObservation, len(prices))
	for i, p := range prices {
		obs[i] = domain.PriceObservation{
			Price:      p,
			ObservedAt: start.Add(time.Duration(i) * 24 * time.Hour),
		}
	}
	return &fakeHistory{observations: obs}
}

func TestAnalyzeRising(t *testing.T) {
	a := New(historyOf(10, 11, 12, 13, 14, 15, 16, 17, 18, 19), zerolog.Nop())
	card := domain.NewCardKey("Umbreon VMAX", "Evolving Skies")

	report, err := a.Analyze(card, domain.Raw(domain.RawNearMint), 0)
	require.NoError(t, err)
	assert.Equal(t, DirectionRising, report.Direction)
	assert.Greater(t, report.ChangePct, 5.0)
	assert.Equal(t, 10, report.Samples)
	assert.True(t, report.Last.After(report.First))
}

func TestAnalyzeFalling(t *testing.T) {
	a := New(historyOf(19, 18, 17, 16, 15, 14, 13, 12, 11, 10), zerolog.Nop())
	card := domain.NewCardKey("Umbreon VMAX", "Evolving Skies")

	report, err := a.Analyze(card, domain.Raw(domain.RawNearMint), 0)
	require.NoError(t, err)
	assert.Equal(t, DirectionFalling, report.Direction)
	assert.Less(t, report.ChangePct, -5.0)
}

func TestAnalyzeStable(t *testing.T) {
	a := New(historyOf(50, 50, 50, 50, 50, 50), zerolog.Nop())
	card := domain.NewCardKey("Pikachu V", "Vivid Voltage")

	report, err := a.Analyze(card, domain.Raw(domain.RawNearMint), 0)
	require.NoError(t, err)
	assert.Equal(t, DirectionStable, report.Direction)
	assert.InDelta(t, 0, report.ChangePct, 1e-9)
	assert.InDelta(t, 0, report.Volatility, 1e-9)
}

func TestAnalyzeSmallDriftIsStable(t *testing.T) {
	// Short SMA within 5% of the long SMA reads as noise, not a trend.
	a := New(historyOf(100, 101, 100, 102, 101, 102, 101, 103, 102, 103), zerolog.Nop())
	card := domain.NewCardKey("Pikachu V", "Vivid Voltage")

	report, err := a.Analyze(card, domain.Raw(domain.RawNearMint), 0)
	require.NoError(t, err)
	assert.Equal(t, DirectionStable, report.Direction)
}

func TestAnalyzeVolatility(t *testing.T) {
	calm := New(historyOf(100, 100, 100, 100, 100), zerolog.Nop())
	choppy := New(historyOf(100, 140, 80, 150, 70), zerolog.Nop())
	card := domain.NewCardKey("Charizard VMAX", "Champions Path")

	calmReport, err := calm.Analyze(card, domain.Raw(domain.RawNearMint), 0)
	require.NoError(t, err)
	choppyReport, err := choppy.Analyze(card, domain.Raw(domain.RawNearMint), 0)
	require.NoError(t, err)

	assert.Greater(t, choppyReport.Volatility, calmReport.Volatility)
}

func TestAnalyzeTooFewSamples(t *testing.T) {
	a := New(historyOf(80, 85), zerolog.Nop())
	card := domain.NewCardKey("Charizard VMAX", "Champions Path")

	report, err := a.Analyze(card, domain.Raw(domain.RawNearMint), 0)
	require.NoError(t, err)
	assert.Equal(t, DirectionStable, report.Direction)
	assert.InDelta(t, 0, report.ChangePct, 1e-9)
	assert.Equal(t, 2, report.Samples)
}

func TestAnalyzeEmptyHistory(t *testing.T) {
	a := New(&fakeHistory{}, zerolog.Nop())
	card := domain.NewCardKey("Charizard VMAX", "Champions Path")

	report, err := a.Analyze(card, domain.Raw(domain.RawNearMint), 0)
	require.NoError(t, err)
	assert.Equal(t, DirectionStable, report.Direction)
	assert.Equal(t, 0, report.Samples)
}

func TestAnalyzeStoreError(t *testing.T) {
	a := New(&fakeHistory{err: errors.New("db locked")}, zerolog.Nop())
	card := domain.NewCardKey("Charizard VMAX", "Champions Path")

	_, err := a.Analyze(card, domain.Raw(domain.RawNearMint), 0)
	assert.Error(t, err)
}
