package trade

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedRecord is returned when a payload cannot be decoded into a record.
var ErrMalformedRecord = errors.New("malformed trade record")

// Wire formats of the numeric attributes. The pricing side parses these
// values back, so changing any of them changes pricing inputs.
const (
	fmtFX1      = "%.16f"
	fmtDrift    = "%.17f"
	fmtMaturity = "%.2f"
	fmtRo       = "%.10e"
	fmtV        = "%.16f"
	fmtSigma1   = "%.17f"
	fmtNotional = "%.16f"
	fmtStrike   = "%.16f"
	fmtResult   = "%.16f"

	dateLayout = "2006-01-02"
)

type tradeDocument struct {
	XMLName xml.Name      `xml:"AZFINSIM"`
	Trade   *tradeElement `xml:"trade"`
}

type tradeElement struct {
	FX1             string `xml:"fx1,attr"`
	StartDate       string `xml:"start_date,attr"`
	EndDate         string `xml:"end_date,attr"`
	Drift           string `xml:"drift,attr"`
	Maturity        string `xml:"maturity,attr"`
	TSteps          string `xml:"t_steps,attr"`
	Trials          string `xml:"trials,attr"`
	Ro              string `xml:"ro,attr"`
	V               string `xml:"v,attr"`
	Sigma1          string `xml:"sigma1,attr"`
	WarrantsNo      string `xml:"warrantsNo,attr"`
	NotionalPerWarr string `xml:"notionalPerWarr,attr"`
	Strike          string `xml:"strike,attr"`
	Body            string `xml:",chardata"`
}

type resultDocument struct {
	XMLName xml.Name       `xml:"AZFINSIM"`
	Result  *resultElement `xml:"result"`
}

type resultElement struct {
	PV     string `xml:"pv,attr"`
	PVTime string `xml:"pv_time,attr"`
	Delta  string `xml:"delta,attr,omitempty"`
	Vega   string `xml:"vega,attr,omitempty"`
	Body   string `xml:",chardata"`
}

// Encode renders a trade in the attribute-based XML wire format.
func Encode(r TradeRecord) ([]byte, error) {
	doc := tradeDocument{Trade: &tradeElement{
		FX1:             fmt.Sprintf(fmtFX1, r.FX1),
		StartDate:       r.StartDate.Format(dateLayout),
		EndDate:         r.EndDate.Format(dateLayout),
		Drift:           fmt.Sprintf(fmtDrift, r.Drift),
		Maturity:        fmt.Sprintf(fmtMaturity, r.Maturity),
		TSteps:          strconv.FormatInt(int64(r.StepCount), 10),
		Trials:          strconv.FormatInt(int64(r.TrialCount), 10),
		Ro:              fmt.Sprintf(fmtRo, r.Ro),
		V:               fmt.Sprintf(fmtV, r.V),
		Sigma1:          fmt.Sprintf(fmtSigma1, r.Sigma1),
		WarrantsNo:      strconv.FormatInt(int64(r.WarrantCount), 10),
		NotionalPerWarr: fmt.Sprintf(fmtNotional, r.NotionalPerWarrant),
		Strike:          fmt.Sprintf(fmtStrike, r.Strike),
		Body:            fmt.Sprintf("%010d", r.TradeNumber),
	}}

	data, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode trade %d: %w", r.TradeNumber, err)
	}
	return data, nil
}

// Decode parses a payload produced by Encode.
// Every failure wraps ErrMalformedRecord.
func Decode(data []byte) (TradeRecord, error) {
	if len(data) == 0 {
		return TradeRecord{}, fmt.Errorf("%w: empty payload", ErrMalformedRecord)
	}

	var doc tradeDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return TradeRecord{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if doc.Trade == nil {
		return TradeRecord{}, fmt.Errorf("%w: missing trade element", ErrMalformedRecord)
	}

	p := attrParser{}
	e := doc.Trade
	r := TradeRecord{
		FX1:                p.float("fx1", e.FX1),
		StartDate:          p.date("start_date", e.StartDate),
		EndDate:            p.date("end_date", e.EndDate),
		Drift:              p.float("drift", e.Drift),
		Maturity:           p.float("maturity", e.Maturity),
		StepCount:          p.i32("t_steps", e.TSteps),
		TrialCount:         p.i32("trials", e.Trials),
		Ro:                 p.float("ro", e.Ro),
		V:                  p.float("v", e.V),
		Sigma1:             p.float("sigma1", e.Sigma1),
		WarrantCount:       p.i32("warrantsNo", e.WarrantsNo),
		NotionalPerWarrant: p.float("notionalPerWarr", e.NotionalPerWarr),
		Strike:             p.float("strike", e.Strike),
		TradeNumber:        p.i64("trade", e.Body),
	}
	if p.err != nil {
		return TradeRecord{}, p.err
	}
	return r, nil
}

// Canonical quantizes every float field through its wire format.
// Two passes reach a fixed point, so Decode(Encode(Canonical(r))) == Canonical(r).
func Canonical(r TradeRecord) TradeRecord {
	for range 2 {
		r.FX1 = quantize(fmtFX1, r.FX1)
		r.Drift = quantize(fmtDrift, r.Drift)
		r.Maturity = quantize(fmtMaturity, r.Maturity)
		r.Ro = quantize(fmtRo, r.Ro)
		r.V = quantize(fmtV, r.V)
		r.Sigma1 = quantize(fmtSigma1, r.Sigma1)
		r.NotionalPerWarrant = quantize(fmtNotional, r.NotionalPerWarrant)
		r.Strike = quantize(fmtStrike, r.Strike)
	}
	r.StartDate = truncateDay(r.StartDate)
	r.EndDate = truncateDay(r.EndDate)
	return r
}

func quantize(format string, v float64) float64 {
	q, err := strconv.ParseFloat(fmt.Sprintf(format, v), 64)
	if err != nil {
		return v
	}
	return q
}

// EncodeResult renders a result record. Delta and vega attributes are
// omitted when unset.
func EncodeResult(r ResultRecord) ([]byte, error) {
	el := &resultElement{
		PV:     fmt.Sprintf(fmtResult, r.PV),
		PVTime: fmt.Sprintf(fmtResult, r.PVTimeSeconds),
		Body:   fmt.Sprintf("%010d", r.TradeNumber),
	}
	if r.Delta != nil {
		el.Delta = fmt.Sprintf(fmtResult, *r.Delta)
	}
	if r.Vega != nil {
		el.Vega = fmt.Sprintf(fmtResult, *r.Vega)
	}

	data, err := xml.Marshal(resultDocument{Result: el})
	if err != nil {
		return nil, fmt.Errorf("encode result %d: %w", r.TradeNumber, err)
	}
	return data, nil
}

// DecodeResult parses a payload produced by EncodeResult.
func DecodeResult(data []byte) (ResultRecord, error) {
	if len(data) == 0 {
		return ResultRecord{}, fmt.Errorf("%w: empty payload", ErrMalformedRecord)
	}

	var doc resultDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return ResultRecord{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if doc.Result == nil {
		return ResultRecord{}, fmt.Errorf("%w: missing result element", ErrMalformedRecord)
	}

	p := attrParser{}
	e := doc.Result
	r := ResultRecord{
		TradeNumber:   p.i64("trade", e.Body),
		PV:            p.float("pv", e.PV),
		PVTimeSeconds: p.float("pv_time", e.PVTime),
	}
	if e.Delta != "" {
		d := p.float("delta", e.Delta)
		r.Delta = &d
	}
	if e.Vega != "" {
		v := p.float("vega", e.Vega)
		r.Vega = &v
	}
	if p.err != nil {
		return ResultRecord{}, p.err
	}
	return r, nil
}

// attrParser parses attribute values and keeps the first error.
type attrParser struct {
	err error
}

func (p *attrParser) fail(name, value string, cause error) {
	if p.err != nil {
		return
	}
	if value == "" {
		p.err = fmt.Errorf("%w: missing attribute %q", ErrMalformedRecord, name)
		return
	}
	p.err = fmt.Errorf("%w: attribute %q=%q: %v", ErrMalformedRecord, name, value, cause)
}

func (p *attrParser) float(name, value string) float64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.fail(name, value, err)
	}
	return v
}

func (p *attrParser) i32(name, value string) int32 {
	v, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		p.fail(name, value, err)
	}
	return int32(v)
}

func (p *attrParser) i64(name, value string) int64 {
	value = strings.TrimSpace(value)
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		p.fail(name, value, err)
	}
	return v
}

func (p *attrParser) date(name, value string) time.Time {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		p.fail(name, value, err)
	}
	return t
}
