// Package pricing declares the pricing collaborator the engine calls in
// pvonly and deltavega modes. The pricing mathematics lives outside this module.
package pricing

import (
	"context"
	"errors"

	"azfinsim/internal/trade"
)

// ErrPricerUnavailable is returned by Unavailable.
var ErrPricerUnavailable = errors.New("pricing library not available")

// Risk factor names accepted by Pricer.Risk.
const (
	FactorFX1    = "fx1"
	FactorSigma1 = "sigma1"
)

// Fields is the named-field view of a trade handed to the pricer.
// Dates are time.Time, counts are int64 and everything else is float64.
type Fields map[string]any

// FieldsOf builds the 13 pricing fields of a trade.
func FieldsOf(r trade.TradeRecord) Fields {
	return Fields{
		"fx1":             r.FX1,
		"start_date":      r.StartDate,
		"end_date":        r.EndDate,
		"drift":           r.Drift,
		"maturity":        r.Maturity,
		"t_steps":         int64(r.StepCount),
		"trials":          int64(r.TrialCount),
		"ro":              r.Ro,
		"v":               r.V,
		"sigma1":          r.Sigma1,
		"warrantsNo":      int64(r.WarrantCount),
		"notionalPerWarr": r.NotionalPerWarrant,
		"strike":          r.Strike,
	}
}

// Pricer prices and risks a single trade. Implementations must be pure.
type Pricer interface {
	// PriceOption returns the present value and the time pricing took in seconds.
	PriceOption(ctx context.Context, fields Fields) (pv, pvTime float64, err error)

	// Risk returns the sensitivity of the price to factor.
	Risk(ctx context.Context, factor string, fields Fields) (float64, error)
}

// Unavailable is the Pricer used when no pricing library is linked in.
type Unavailable struct{}

// PriceOption always fails.
func (Unavailable) PriceOption(context.Context, Fields) (float64, float64, error) {
	return 0, 0, ErrPricerUnavailable
}

// Risk always fails.
func (Unavailable) Risk(context.Context, string, Fields) (float64, error) {
	return 0, ErrPricerUnavailable
}

// Func adapts plain functions to Pricer. Useful in tests and for embedding
// a pricing library without a wrapper type.
type Func struct {
	Price  func(ctx context.Context, fields Fields) (float64, float64, error)
	RiskOf func(ctx context.Context, factor string, fields Fields) (float64, error)
}

// PriceOption calls f.Price.
func (f Func) PriceOption(ctx context.Context, fields Fields) (float64, float64, error) {
	if f.Price == nil {
		return 0, 0, ErrPricerUnavailable
	}
	return f.Price(ctx, fields)
}

// Risk calls f.RiskOf.
func (f Func) Risk(ctx context.Context, factor string, fields Fields) (float64, error) {
	if f.RiskOf == nil {
		return 0, ErrPricerUnavailable
	}
	return f.RiskOf(ctx, factor, fields)
}
