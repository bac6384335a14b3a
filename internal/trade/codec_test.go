package trade

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() TradeRecord {
	return TradeRecord{
		FX1:                0.9,
		StartDate:          DefaultStartDate,
		EndDate:            DefaultEndDate,
		Drift:              -0.05,
		Maturity:           0.2,
		StepCount:          172,
		TrialCount:         10000,
		Ro:                 DefaultRo,
		V:                  DefaultV,
		Sigma1:             0.08,
		WarrantCount:       45000,
		NotionalPerWarrant: 1000.5,
		Strike:             0.75,
		TradeNumber:        42,
	}
}

func TestEncode_WireFormat(t *testing.T) {
	data, err := Encode(sampleRecord())
	require.NoError(t, err)

	want := `<AZFINSIM><trade fx1="0.9000000000000000" start_date="2017-12-29" end_date="2018-08-28"` +
		` drift="-0.05000000000000000" maturity="0.20" t_steps="172" trials="10000" ro="3.8413221829e-05"` +
		` v="0.0015480737860400" sigma1="0.08000000000000000" warrantsNo="45000"` +
		` notionalPerWarr="1000.5000000000000000" strike="0.7500000000000000">0000000042</trade></AZFINSIM>`
	assert.Equal(t, want, string(data))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for n := int64(0); n < 2000; n++ {
		want := Draw(rng, n)

		data, err := Encode(want)
		require.NoError(t, err)

		got, err := Decode(data)
		require.NoError(t, err)
		if got != want {
			t.Fatalf("round trip mismatch for trade %d:\n got  %+v\n want %+v", n, got, want)
		}
	}
}

func TestCanonical_FixedPoint(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 1000; i++ {
		r := Draw(rng, int64(i))
		assert.Equal(t, r, Canonical(r))
	}
}

func TestDecode_Malformed(t *testing.T) {
	valid, err := Encode(sampleRecord())
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "empty", payload: nil},
		{name: "not xml", payload: []byte("hello")},
		{name: "wrong root", payload: []byte(`<OTHER><trade/></OTHER>`)},
		{name: "missing trade element", payload: []byte(`<AZFINSIM></AZFINSIM>`)},
		{name: "missing attribute", payload: []byte(strings.Replace(string(valid), ` drift="-0.05000000000000000"`, "", 1))},
		{name: "unparsable float", payload: []byte(strings.Replace(string(valid), `fx1="0.9000000000000000"`, `fx1="abc"`, 1))},
		{name: "unparsable date", payload: []byte(strings.Replace(string(valid), `start_date="2017-12-29"`, `start_date="29/12/2017"`, 1))},
		{name: "missing trade number", payload: []byte(strings.Replace(string(valid), "0000000042", "", 1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.payload)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRecord), "got %v", err)
		})
	}
}

func TestEncodeResult_RoundTrip(t *testing.T) {
	delta, vega := 0.125, -3.5

	pvOnly := ResultRecord{TradeNumber: 7, PV: 1234.5, PVTimeSeconds: 0.25}
	data, err := EncodeResult(pvOnly)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "delta=")

	got, err := DecodeResult(data)
	require.NoError(t, err)
	assert.Equal(t, pvOnly, got)

	risk := ResultRecord{TradeNumber: 8, Delta: &delta, Vega: &vega}
	data, err = EncodeResult(risk)
	require.NoError(t, err)

	got, err = DecodeResult(data)
	require.NoError(t, err)
	require.NotNil(t, got.Delta)
	require.NotNil(t, got.Vega)
	assert.Equal(t, delta, *got.Delta)
	assert.Equal(t, vega, *got.Vega)
	assert.Equal(t, int64(8), got.TradeNumber)
}
