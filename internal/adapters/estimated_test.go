package adapters

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MurderWizard/pokemon-pricing/internal/adjuster"
	"github.com/MurderWizard/pokemon-pricing/internal/domain"
	"github.com/MurderWizard/pokemon-pricing/internal/guide"
)

func newEstimatedAdapter(t *testing.T) *EstimatedAdapter {
	t.Helper()
	g, err := guide.Load("")
	require.NoError(t, err)
	return NewEstimatedAdapter(g, adjuster.New(g), zerolog.Nop())
}

func TestEstimatedAdapterKnownComparable(t *testing.T) {
	a := newEstimatedAdapter(t)
	card := domain.NewCardKey("Charizard VMAX", "Champions Path")

	obs, err := a.Fetch(context.Background(), card, domain.Raw(domain.RawNearMintMint))
	require.NoError(t, err)
	assert.Equal(t, 85.0, obs.Price)
	assert.Equal(t, EstimatedConfidence, obs.Confidence)
	assert.Equal(t, domain.SourceEstimated, obs.Source)
}

func TestEstimatedAdapterScalesToCondition(t *testing.T) {
	a := newEstimatedAdapter(t)
	card := domain.NewCardKey("Charizard VMAX", "Champions Path")

	// PSA 10 multiplier is 3.0 over the NM/M base of 85.
	obs, err := a.Fetch(context.Background(), card, domain.Graded("PSA", 10))
	require.NoError(t, err)
	assert.InDelta(t, 255, obs.Price, 1e-9)
	assert.Equal(t, EstimatedConfidence, obs.Confidence)

	// Worn raw copy scales down.
	obs, err = a.Fetch(context.Background(), card, domain.Raw(domain.RawGood))
	require.NoError(t, err)
	assert.InDelta(t, 85*0.3, obs.Price, 1e-9)
}

func TestEstimatedAdapterUnknownCard(t *testing.T) {
	a := newEstimatedAdapter(t)
	card := domain.NewCardKey("Some Obscure Card", "Unknown Set")

	obs, err := a.Fetch(context.Background(), card, domain.Raw(domain.RawNearMint))
	require.NoError(t, err)
	assert.Equal(t, 5.0, obs.Price)
	assert.Equal(t, 0.0, obs.Confidence)
}

func TestEstimatedAdapterUnscalableCondition(t *testing.T) {
	a := newEstimatedAdapter(t)
	card := domain.NewCardKey("Charizard VMAX", "Champions Path")

	// Unknown grading company: falls back to nominal, never errors.
	obs, err := a.Fetch(context.Background(), card, domain.Graded("SGC", 10))
	require.NoError(t, err)
	assert.Equal(t, 5.0, obs.Price)
	assert.Equal(t, 0.0, obs.Confidence)
}

func TestEstimatedAdapterNeverErrors(t *testing.T) {
	a := newEstimatedAdapter(t)

	_, err := a.Fetch(context.Background(), domain.CardKey{}, domain.Unknown())
	assert.NoError(t, err)
}

func TestComparableBasePriceSetFallback(t *testing.T) {
	a := newEstimatedAdapter(t)

	// Unknown printing of a known card still finds a comparable.
	obs, err := a.Fetch(context.Background(),
		domain.NewCardKey("Umbreon VMAX", "Some Promo Set"), domain.Raw(domain.RawNearMintMint))
	require.NoError(t, err)
	assert.Equal(t, 120.0, obs.Price)
	assert.Equal(t, EstimatedConfidence, obs.Confidence)
}
