package domain

import "errors"

// Error taxonomy for the pricing engine. Per-source failures (ErrUnavailable)
// are absorbed inside the resolver; only configuration-level failures
// (ErrNoData) propagate to callers.
var (
	// ErrInvalidObservation is returned by the store when an observation is
	// malformed (price <= 0 or confidence outside [0,1]). Never coerced.
	ErrInvalidObservation = errors.New("invalid price observation")

	// ErrUnsupportedGrade is returned by the adjuster when a requested
	// grade or label is not present in the multiplier tables.
	ErrUnsupportedGrade = errors.New("unsupported grade")

	// ErrUnavailable signals that a single source adapter could not produce
	// a result (timeout, no data). Internal signal only.
	ErrUnavailable = errors.New("source unavailable")

	// ErrNoData means even the estimated fallback could not produce a
	// nominal value. Indicates corrupt or missing configuration, fatal.
	ErrNoData = errors.New("no pricing data whatsoever")
)
