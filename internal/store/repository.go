// Package store implements the price record store: an append-only,
// persistent log of price observations keyed by card and condition.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MurderWizard/pokemon-pricing/internal/database"
	"github.com/MurderWizard/pokemon-pricing/internal/domain"
	"github.com/MurderWizard/pokemon-pricing/pkg/logger"
)

// Repository provides access to the price observation log. Writes are
// serialized per card key to preserve the append-only invariant when the
// store is shared; reads proceed concurrently under WAL.
type Repository struct {
	db        *database.DB
	freshness time.Duration
	log       zerolog.Logger

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// Statistics summarizes store contents. "Fresh" means observed within the
// configured freshness window.
type Statistics struct {
	TotalRecords   int            `json:"total_records"`
	UniqueCards    int            `json:"unique_cards"`
	FreshRecords   int            `json:"fresh_records"`
	FreshnessRatio float64        `json:"freshness_ratio"`
	BySource       map[string]int `json:"by_source"`
}

// StaleEntry identifies a (card, condition) pair whose newest observation
// is older than a given age.
type StaleEntry struct {
	Card      domain.CardKey
	Condition domain.ConditionSpec
	LastSeen  time.Time
}

// New creates a repository over the prices database.
func New(db *database.DB, freshness time.Duration, log zerolog.Logger) *Repository {
	return &Repository{
		db:        db,
		freshness: freshness,
		log:       logger.Component(log, "price_store"),
		keyLocks:  make(map[string]*sync.Mutex),
	}
}

// lockFor returns the write lock for a card key, creating it on first use.
func (r *Repository) lockFor(card domain.CardKey) *sync.Mutex {
	norm := card.Normalized()
	key := norm.Name + "|" + norm.Set

	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		r.keyLocks[key] = l
	}
	return l
}

// Put appends an observation. It never overwrites: superseded observations
// remain in the log for trend analysis. Malformed observations fail with
// domain.ErrInvalidObservation.
func (r *Repository) Put(obs domain.PriceObservation) error {
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = time.Now().UTC()
	}
	if err := obs.Validate(); err != nil {
		return err
	}
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}

	condJSON, err := json.Marshal(obs.Condition)
	if err != nil {
		return fmt.Errorf("failed to marshal condition: %w", err)
	}

	norm := obs.Card.Normalized()

	lock := r.lockFor(obs.Card)
	lock.Lock()
	defer lock.Unlock()

	_, err = r.db.Exec(`
		INSERT INTO price_observations
			(id, card_name, set_name, condition_key, condition_json,
			 price, confidence, source, observed_at, sample_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.ID, norm.Name, norm.Set, obs.Condition.StoreKey(), string(condJSON),
		obs.Price, obs.Confidence, string(obs.Source),
		obs.ObservedAt.UTC().Format(time.RFC3339), obs.SampleSize,
	)
	if err != nil {
		return fmt.Errorf("failed to insert observation: %w", err)
	}

	r.log.Debug().
		Str("card", obs.Card.String()).
		Str("condition", obs.Condition.String()).
		Float64("price", obs.Price).
		Str("source", string(obs.Source)).
		Msg("Observation recorded")

	return nil
}

// Get returns all observations for a (card, condition) pair, newest first.
func (r *Repository) Get(card domain.CardKey, cond domain.ConditionSpec) ([]domain.PriceObservation, error) {
	norm := card.Normalized()
	rows, err := r.db.Query(`
		SELECT id, card_name, set_name, condition_json, price, confidence,
		       source, observed_at, sample_size
		FROM price_observations
		WHERE card_name = ? AND set_name = ? AND condition_key = ?
		ORDER BY observed_at DESC`,
		norm.Name, norm.Set, cond.StoreKey(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// Latest returns the newest observation for a (card, condition) pair, or
// nil when none exists.
func (r *Repository) Latest(card domain.CardKey, cond domain.ConditionSpec) (*domain.PriceObservation, error) {
	all, err := r.Get(card, cond)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return &all[0], nil
}

// LatestBySource returns the newest observation from a specific source.
func (r *Repository) LatestBySource(card domain.CardKey, cond domain.ConditionSpec, source domain.Source) (*domain.PriceObservation, error) {
	norm := card.Normalized()
	rows, err := r.db.Query(`
		SELECT id, card_name, set_name, condition_json, price, confidence,
		       source, observed_at, sample_size
		FROM price_observations
		WHERE card_name = ? AND set_name = ? AND condition_key = ? AND source = ?
		ORDER BY observed_at DESC
		LIMIT 1`,
		norm.Name, norm.Set, cond.StoreKey(), string(source),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	obs, err := scanObservations(rows)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, nil
	}
	return &obs[0], nil
}

// History returns observations for a (card, condition) pair oldest first,
// capped at limit. Used for trend analysis.
func (r *Repository) History(card domain.CardKey, cond domain.ConditionSpec, limit int) ([]domain.PriceObservation, error) {
	all, err := r.Get(card, cond)
	if err != nil {
		return nil, err
	}
	// Reverse to oldest-first
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// All returns every observation in the store, newest first. Used for
// export.
func (r *Repository) All() ([]domain.PriceObservation, error) {
	rows, err := r.db.Query(`
		SELECT id, card_name, set_name, condition_json, price, confidence,
		       source, observed_at, sample_size
		FROM price_observations
		ORDER BY observed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// Statistics computes store summary counts.
func (r *Repository) Statistics() (*Statistics, error) {
	stats := &Statistics{BySource: make(map[string]int)}

	if err := r.db.QueryRow(`SELECT COUNT(*) FROM price_observations`).Scan(&stats.TotalRecords); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	if err := r.db.QueryRow(
		`SELECT COUNT(DISTINCT card_name || '|' || set_name) FROM price_observations`,
	).Scan(&stats.UniqueCards); err != nil {
		return nil, fmt.Errorf("failed to count unique cards: %w", err)
	}

	cutoff := time.Now().UTC().Add(-r.freshness).Format(time.RFC3339)
	if err := r.db.QueryRow(
		`SELECT COUNT(*) FROM price_observations WHERE observed_at > ?`, cutoff,
	).Scan(&stats.FreshRecords); err != nil {
		return nil, fmt.Errorf("failed to count fresh records: %w", err)
	}

	rows, err := r.db.Query(`SELECT source, COUNT(*) FROM price_observations GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan source count: %w", err)
		}
		stats.BySource[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	total := stats.TotalRecords
	if total < 1 {
		total = 1
	}
	stats.FreshnessRatio = float64(stats.FreshRecords) / float64(total)

	return stats, nil
}

// StaleEntries returns the (card, condition) pairs whose newest
// observation is older than minAge. The re-verification job walks these.
func (r *Repository) StaleEntries(minAge time.Duration) ([]StaleEntry, error) {
	cutoff := time.Now().UTC().Add(-minAge).Format(time.RFC3339)
	rows, err := r.db.Query(`
		SELECT card_name, set_name, condition_json, MAX(observed_at) AS last_seen
		FROM price_observations
		GROUP BY card_name, set_name, condition_key
		HAVING last_seen < ?
		ORDER BY last_seen ASC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale entries: %w", err)
	}
	defer rows.Close()

	var entries []StaleEntry
	for rows.Next() {
		var name, set, condJSON, lastSeen string
		if err := rows.Scan(&name, &set, &condJSON, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan stale entry: %w", err)
		}
		var cond domain.ConditionSpec
		if err := json.Unmarshal([]byte(condJSON), &cond); err != nil {
			r.log.Warn().Str("card", name).Err(err).Msg("Skipping entry with unreadable condition")
			continue
		}
		ts, err := time.Parse(time.RFC3339, lastSeen)
		if err != nil {
			ts = time.Time{}
		}
		entries = append(entries, StaleEntry{
			Card:      domain.CardKey{Name: name, Set: set},
			Condition: cond,
			LastSeen:  ts,
		})
	}
	return entries, rows.Err()
}

// scanObservations converts result rows into domain observations.
func scanObservations(rows *sql.Rows) ([]domain.PriceObservation, error) {
	var result []domain.PriceObservation
	for rows.Next() {
		var obs domain.PriceObservation
		var condJSON, source, observedAt string
		if err := rows.Scan(
			&obs.ID, &obs.Card.Name, &obs.Card.Set, &condJSON,
			&obs.Price, &obs.Confidence, &source, &observedAt, &obs.SampleSize,
		); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		if err := json.Unmarshal([]byte(condJSON), &obs.Condition); err != nil {
			return nil, fmt.Errorf("failed to unmarshal condition: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, observedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse observation timestamp: %w", err)
		}
		obs.Source = domain.Source(source)
		obs.ObservedAt = ts
		result = append(result, obs)
	}
	return result, rows.Err()
}
