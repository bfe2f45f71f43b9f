package domain

import (
	"fmt"
	"time"
)

// Source identifies where a price observation came from.
type Source string

const (
	// SourceManual is an explicit human-entered record. Highest trust.
	SourceManual Source = "manual"
	// SourceMarketplace is aggregated from recent marketplace listings.
	SourceMarketplace Source = "marketplace"
	// SourceEstimated is a heuristic fallback derived from comparables.
	SourceEstimated Source = "estimated"
)

// Valid reports whether the source is one of the known enum values.
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceMarketplace, SourceEstimated:
		return true
	}
	return false
}

// PriceObservation is one source's reported price for a card at a condition.
// Observations are append-only: newer ones supersede, never overwrite.
type PriceObservation struct {
	ID         string        `json:"id" msgpack:"id"`
	Card       CardKey       `json:"card" msgpack:"card"`
	Condition  ConditionSpec `json:"condition" msgpack:"condition"`
	Price      float64       `json:"price" msgpack:"price"`
	Confidence float64       `json:"confidence" msgpack:"confidence"`
	Source     Source        `json:"source" msgpack:"source"`
	ObservedAt time.Time     `json:"observed_at" msgpack:"observed_at"`
	SampleSize int           `json:"sample_size,omitempty" msgpack:"sample_size,omitempty"`
}

// Validate enforces the store boundary invariants. Violations map to
// ErrInvalidObservation and are never silently coerced.
func (o PriceObservation) Validate() error {
	if err := o.Card.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidObservation, err)
	}
	if o.Price <= 0 {
		return fmt.Errorf("%w: price must be > 0, got %.2f", ErrInvalidObservation, o.Price)
	}
	if o.Confidence < 0 || o.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be in [0,1], got %.3f", ErrInvalidObservation, o.Confidence)
	}
	if !o.Source.Valid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidObservation, o.Source)
	}
	if o.SampleSize < 0 {
		return fmt.Errorf("%w: sample size must be >= 0", ErrInvalidObservation)
	}
	return nil
}

// AgeDays returns the observation age in fractional days as of now.
func (o PriceObservation) AgeDays(now time.Time) float64 {
	return now.Sub(o.ObservedAt).Hours() / 24.0
}
