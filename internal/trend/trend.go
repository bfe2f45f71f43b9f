// Package trend classifies direction and volatility from a card's
// recorded price history.
package trend

import (
	"fmt"
	"math"
	"time"

	talib "github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
	"github.com/MurderWizard/pokemon-pricing/pkg/logger"
)

// Direction labels the movement of a price series.
type Direction string

const (
	DirectionRising  Direction = "rising"
	DirectionFalling Direction = "falling"
	DirectionStable  Direction = "stable"
)

// Report summarizes a card's price movement over the sampled window.
type Report struct {
	Card       domain.CardKey       `json:"card"`
	Condition  domain.ConditionSpec `json:"condition"`
	Direction  Direction            `json:"direction"`
	ChangePct  float64              `json:"change_pct"` // short SMA vs long SMA
	Volatility float64              `json:"volatility"` // stddev of daily returns
	Samples    int                  `json:"samples"`
	First      time.Time            `json:"first"`
	Last       time.Time            `json:"last"`
}

// HistoryStore is the slice of the record store the analyzer needs.
type HistoryStore interface {
	History(card domain.CardKey, cond domain.ConditionSpec, limit int) ([]domain.PriceObservation, error)
}

// Analyzer derives trend reports from stored observations.
type Analyzer struct {
	store HistoryStore
	log   zerolog.Logger

	// shortWindow and longWindow are SMA periods in samples.
	shortWindow int
	longWindow  int
	// stableBand is the fractional SMA divergence treated as noise.
	stableBand float64
}

// New creates an analyzer with the default 3/10 sample windows and a 5%
// stability band.
func New(store HistoryStore, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		store:       store,
		log:         logger.Component(log, "trend"),
		shortWindow: 3,
		longWindow:  10,
		stableBand:  0.05,
	}
}

// Analyze classifies the card's recent movement. It needs at least
// shortWindow samples; with fewer it reports stable at zero change.
func (a *Analyzer) Analyze(card domain.CardKey, cond domain.ConditionSpec, limit int) (*Report, error) {
	if limit <= 0 {
		limit = 90
	}
	history, err := a.store.History(card, cond, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	report := &Report{
		Card:      card,
		Condition: cond,
		Direction: DirectionStable,
		Samples:   len(history),
	}
	if len(history) == 0 {
		return report, nil
	}

	report.First = history[0].ObservedAt
	report.Last = history[len(history)-1].ObservedAt

	prices := make([]float64, len(history))
	for i, obs := range history {
		prices[i] = obs.Price
	}

	if len(prices) >= 2 {
		report.Volatility = returnsVolatility(prices)
	}
	if len(prices) < a.shortWindow {
		return report, nil
	}

	shortSMA := lastValid(talib.Sma(prices, a.shortWindow))
	longWindow := a.longWindow
	if len(prices) < longWindow {
		longWindow = len(prices)
	}
	longSMA := lastValid(talib.Sma(prices, longWindow))
	if longSMA <= 0 {
		return report, nil
	}

	report.ChangePct = (shortSMA - longSMA) / longSMA * 100
	switch {
	case report.ChangePct > a.stableBand*100:
		report.Direction = DirectionRising
	case report.ChangePct < -a.stableBand*100:
		report.Direction = DirectionFalling
	}

	a.log.Debug().
		Str("card", card.String()).
		Str("direction", string(report.Direction)).
		Float64("change_pct", report.ChangePct).
		Int("samples", report.Samples).
		Msg("Trend analyzed")

	return report, nil
}

// returnsVolatility is the standard deviation of simple period returns.
func returnsVolatility(prices []float64) float64 {
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil)
}

// lastValid returns the final non-NaN element of a talib output series.
func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && series[i] != 0 {
			return series[i]
		}
	}
	return 0
}
