package trade

import (
	"iter"
	"math/rand/v2"
)

// Draw returns one random trade with the given trade number.
// The result is canonical: it survives an encode/decode round trip unchanged.
func Draw(rng *rand.Rand, tradeNumber int64) TradeRecord {
	return Canonical(TradeRecord{
		FX1:                rng.Float64()*FX1Span + FX1Min,
		StartDate:          DefaultStartDate,
		EndDate:            DefaultEndDate,
		Drift:              rng.Float64()*DriftSpan - DriftSpan/2,
		Maturity:           DefaultMaturity,
		StepCount:          BusinessDays(DefaultStartDate, DefaultEndDate),
		TrialCount:         DefaultTrials,
		Ro:                 DefaultRo,
		V:                  DefaultV,
		Sigma1:             rng.Float64()*2*Sigma1HalfSpan - Sigma1HalfSpan + Sigma1Center,
		WarrantCount:       int32(WarrantsMin + rng.IntN(WarrantsMax-WarrantsMin)),
		NotionalPerWarrant: rng.Float64()*NotionalSpan + NotionalMin,
		Strike:             rng.Float64()*StrikeSpan + StrikeMin,
		TradeNumber:        tradeNumber,
	})
}

// Generate yields count encoded trades numbered from start, keyed by Key.
// The sequence is seeded from the global source and is single pass: ranging
// over it a second time yields nothing.
func Generate(start int64, count int) iter.Seq2[string, []byte] {
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	consumed := false
	return func(yield func(string, []byte) bool) {
		if consumed {
			return
		}
		consumed = true
		for i := range count {
			n := start + int64(i)
			data, err := Encode(Draw(rng, n))
			if err != nil {
				// Encode only fails on writer errors, which a byte buffer never returns
				panic(err)
			}
			if !yield(Key(n), data) {
				return
			}
		}
	}
}
