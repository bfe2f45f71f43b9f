package testing

import (
	"time"

	"github.com/google/uuid"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
)

// NewCardFixtures returns a small set of well-known cards used across
// tests.
func NewCardFixtures() []domain.CardKey {
	return []domain.CardKey{
		domain.NewCardKey("Charizard VMAX", "Champions Path"),
		domain.NewCardKey("Pikachu V", "Vivid Voltage"),
		domain.NewCardKey("Umbreon VMAX", "Evolving Skies"),
	}
}

// NewObservationFixtures returns observations for one card across sources
// and ages, anchored at now.
func NewObservationFixtures(card domain.CardKey, cond domain.ConditionSpec, now time.Time) []domain.PriceObservation {
	return []domain.PriceObservation{
		{
			ID:         uuid.New().String(),
			Card:       card,
			Condition:  cond,
			Price:      100,
			Confidence: 0.9,
			Source:     domain.SourceManual,
			ObservedAt: now.Add(-2 * time.Hour),
		},
		{
			ID:         uuid.New().String(),
			Card:       card,
			Condition:  cond,
			Price:      95,
			Confidence: 0.7,
			Source:     domain.SourceMarketplace,
			ObservedAt: now.Add(-24 * time.Hour),
			SampleSize: 12,
		},
		{
			ID:         uuid.New().String(),
			Card:       card,
			Condition:  cond,
			Price:      80,
			Confidence: 0.3,
			Source:     domain.SourceEstimated,
			ObservedAt: now.Add(-48 * time.Hour),
		},
	}
}

// Observation builds a single observation with the given fields, filling
// in defaults for the rest.
func Observation(card domain.CardKey, cond domain.ConditionSpec, price, confidence float64, source domain.Source, observedAt time.Time) domain.PriceObservation {
	return domain.PriceObservation{
		ID:         uuid.New().String(),
		Card:       card,
		Condition:  cond,
		Price:      price,
		Confidence: confidence,
		Source:     source,
		ObservedAt: observedAt,
	}
}
