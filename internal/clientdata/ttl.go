package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Active listings churn quickly; an hour is the longest a median is
	// trustworthy for a hot card.
	TTLListings = time.Hour

	// Sold comparables change only as new sales land.
	TTLComparables = 24 * time.Hour

	// Set and printing metadata is effectively static.
	TTLCatalog = 30 * 24 * time.Hour
)
