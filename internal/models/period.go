package models

import (
	"fmt"
	"time"
)

// Period is a symbolic lookback window accepted by GetStockSummary.
type Period string

const (
	Period1D Period = "1d"
	Period1W Period = "1w"
	Period1M Period = "1m"
	Period3M Period = "3m"
	Period1Y Period = "1y"
)

// Valid reports whether p is one of the accepted periods.
func (p Period) Valid() bool {
	switch p {
	case Period1D, Period1W, Period1M, Period3M, Period1Y:
		return true
	}
	return false
}

// StartFrom maps the symbolic period to a calendar offset back from now.
func (p Period) StartFrom(now time.Time) (time.Time, error) {
	switch p {
	case Period1D:
		return now.AddDate(0, 0, -1), nil
	case Period1W:
		return now.AddDate(0, 0, -7), nil
	case Period1M:
		return now.AddDate(0, -1, 0), nil
	case Period3M:
		return now.AddDate(0, -3, 0), nil
	case Period1Y:
		return now.AddDate(-1, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("%w: unknown period %q", ErrInvalidArgument, p)
}
