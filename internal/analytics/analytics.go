package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/store"
)

// tradingDaysPerYear annualizes daily volatility.
const tradingDaysPerYear = 252

// calendarBufferFactor widens the bar fetch so weekends and holidays do not
// starve a trading-day lookback.
const calendarBufferFactor = 2

// VolatilityStats is the result of a realized-volatility computation.
type VolatilityStats struct {
	Value       float64 // std-dev of daily log returns over the lookback
	Annualized  float64 // Value * sqrt(252)
	SampleCount int     // number of log returns used
}

// SummaryStats is the point-in-time view of a symbol over a period.
type SummaryStats struct {
	CurrentPrice  float64
	ChangePercent float64
	Volume        int64
}

// Engine computes derived numeric facts from structured bar data.
type Engine struct {
	store store.DocumentStore
	now   func() time.Time
}

func New(s store.DocumentStore) *Engine {
	return &Engine{store: s, now: time.Now}
}

// NewAt builds an engine with a fixed clock, for tests.
func NewAt(s store.DocumentStore, now func() time.Time) *Engine {
	return &Engine{store: s, now: now}
}

// Volatility computes the standard deviation of daily log returns over the
// trailing lookbackDays trading days ending at date (inclusive). lookbackDays
// returns need lookbackDays+1 closes; fewer than 2 bars in the window is
// ErrInsufficientData, never a silent zero.
func (e *Engine) Volatility(ctx context.Context, symbol string, date time.Time, lookbackDays int) (VolatilityStats, error) {
	if lookbackDays <= 0 {
		return VolatilityStats{}, fmt.Errorf("%w: lookback_days must be positive", models.ErrInvalidArgument)
	}

	end := endOfDay(date)
	start := date.AddDate(0, 0, -(lookbackDays*calendarBufferFactor + 7))
	bars, err := e.store.GetBars(ctx, symbol, models.TimeWindow{Start: start, End: end})
	if err != nil {
		return VolatilityStats{}, models.WrapDependency("document store", err)
	}
	if len(bars) < 2 {
		return VolatilityStats{}, fmt.Errorf("%w: %d bar(s) for %s in lookback window", models.ErrInsufficientData, len(bars), symbol)
	}

	// Trailing lookbackDays trading days: the last lookbackDays+1 closes.
	if n := lookbackDays + 1; len(bars) > n {
		bars = bars[len(bars)-n:]
	}

	returns := logReturns(extractCloses(bars))
	value := stdDev(returns)
	return VolatilityStats{
		Value:       value,
		Annualized:  value * math.Sqrt(tradingDaysPerYear),
		SampleCount: len(returns),
	}, nil
}

// SummaryStats returns the latest close, the percent change against the
// close at the start of the symbolic period, and the latest volume. A symbol
// with no bars at all is ErrSymbolNotFound, never zeroed defaults.
func (e *Engine) SummaryStats(ctx context.Context, symbol string, period models.Period) (SummaryStats, error) {
	now := e.now()
	periodStart, err := period.StartFrom(now)
	if err != nil {
		return SummaryStats{}, err
	}

	bars, err := e.store.GetBars(ctx, symbol, models.TimeWindow{End: now})
	if err != nil {
		return SummaryStats{}, models.WrapDependency("document store", err)
	}
	if len(bars) == 0 {
		return SummaryStats{}, fmt.Errorf("%w: %s", models.ErrSymbolNotFound, symbol)
	}

	latest := bars[len(bars)-1]

	// Baseline: last close at or before the period start. When the series
	// begins inside the period, the earliest bar stands in.
	base := bars[0]
	for _, b := range bars {
		if b.Timestamp.After(periodStart) {
			break
		}
		base = b
	}

	var change float64
	if base.Close != 0 {
		change = (latest.Close - base.Close) / base.Close * 100
	}
	return SummaryStats{
		CurrentPrice:  latest.Close,
		ChangePercent: change,
		Volume:        latest.Volume,
	}, nil
}

func extractCloses(bars []models.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func logReturns(closes []float64) []float64 {
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	return returns
}

// stdDev is the population standard deviation, well-defined down to a
// single sample (a lone return has no dispersion).
func stdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
