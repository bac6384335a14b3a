// Package trade holds the synthetic trade record, its wire encoding and the
// deterministic keys under which trades and results live in the cache.
package trade

import "time"

// TradeRecord represents one simulated FX warrant trade.
// Field names follow the attribute names of the wire format.
type TradeRecord struct {
	FX1                float64   // fx1: spot rate
	StartDate          time.Time // start_date
	EndDate            time.Time // end_date
	Drift              float64   // drift
	Maturity           float64   // maturity in years
	StepCount          int32     // t_steps: business days between start and end
	TrialCount         int32     // trials: Monte Carlo paths
	Ro                 float64   // ro: calibration value
	V                  float64   // v
	Sigma1             float64   // sigma1: volatility
	WarrantCount       int32     // warrantsNo
	NotionalPerWarrant float64   // notionalPerWarr
	Strike             float64   // strike
	TradeNumber        int64     // element body, zero-padded to 10 digits
}

// ResultRecord is the output of pricing or risk for one trade.
// Delta and Vega are only set in delta/vega mode.
type ResultRecord struct {
	TradeNumber   int64
	PV            float64
	PVTimeSeconds float64
	Delta         *float64
	Vega          *float64
}

// Generator distribution constants.
const (
	FX1Min          = 0.8285
	FX1Span         = 0.12
	DriftSpan       = 0.2
	DefaultMaturity = 0.20
	DefaultTrials   = 10000
	DefaultRo       = 0.000038413221829
	DefaultV        = 0.00154807378604
	Sigma1Center    = 0.0808844481978
	Sigma1HalfSpan  = 0.015
	WarrantsMin     = 30000
	WarrantsMax     = 60000
	NotionalMin     = 950.0
	NotionalSpan    = 100.0
	StrikeMin       = 0.7
	StrikeSpan      = 0.12
)

// Fixed calendar window of every generated trade.
var (
	DefaultStartDate = time.Date(2017, time.December, 29, 0, 0, 0, 0, time.UTC)
	DefaultEndDate   = time.Date(2018, time.August, 28, 0, 0, 0, 0, time.UTC)
)

// BusinessDays counts weekdays in [start, end). Returns 0 if end is not after start.
func BusinessDays(start, end time.Time) int32 {
	start = truncateDay(start)
	end = truncateDay(end)
	if !end.After(start) {
		return 0
	}

	days := int(end.Sub(start).Hours() / 24)
	weeks := days / 7
	count := int32(weeks * 5)

	// Walk the remainder day by day
	d := start.AddDate(0, 0, weeks*7)
	for d.Before(end) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
		d = d.AddDate(0, 0, 1)
	}
	return count
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
