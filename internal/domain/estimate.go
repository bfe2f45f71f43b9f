package domain

import "time"

// ContributingSource records one candidate's role in a resolved estimate,
// including candidates dropped by outlier rejection (Rejected=true).
type ContributingSource struct {
	Source     Source  `json:"source"`
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"` // effective confidence after decay
	Rejected   bool    `json:"rejected"`
	Reason     string  `json:"reason,omitempty"`
}

// PriceEstimate is the resolver's final blended output for a query.
// Ephemeral: constructed per request, never persisted.
type PriceEstimate struct {
	Card       CardKey              `json:"card"`
	Condition  ConditionSpec        `json:"condition"`
	Price      float64              `json:"price"`
	Confidence float64              `json:"confidence"`
	Sources    []ContributingSource `json:"sources"`
	Staleness  time.Duration        `json:"staleness"`
	Notes      []string             `json:"notes,omitempty"`
}

// EstimateRecord is the plain structured form handed to external
// collaborators (deal finder, notifier). No transport knowledge here.
type EstimateRecord struct {
	Price      float64  `json:"price"`
	Confidence float64  `json:"confidence"`
	Condition  string   `json:"condition"`
	Sources    []string `json:"sources"`
	Stale      bool     `json:"stale"`
}

// Record flattens the estimate for external consumption. An estimate is
// stale when its freshest contributing observation is older than the
// given freshness window.
func (e PriceEstimate) Record(freshnessWindow time.Duration) EstimateRecord {
	sources := make([]string, 0, len(e.Sources))
	for _, s := range e.Sources {
		if !s.Rejected {
			sources = append(sources, string(s.Source))
		}
	}
	return EstimateRecord{
		Price:      e.Price,
		Confidence: e.Confidence,
		Condition:  e.Condition.String(),
		Sources:    sources,
		Stale:      e.Staleness > freshnessWindow,
	}
}
