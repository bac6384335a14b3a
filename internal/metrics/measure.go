// Package metrics implements tag-scoped measure aggregation for a single run.
// Values are accumulated with Put and handed to a Sink exactly once by Record.
package metrics

import (
	"errors"
	"fmt"
	"strings"
)

// Aggregator errors.
var (
	// ErrUnknownMeasure is returned when a measure is not declared in the table.
	ErrUnknownMeasure = errors.New("unknown measure")

	// ErrTypeMismatch is returned when a value does not match the measure's declared type.
	ErrTypeMismatch = errors.New("measure type mismatch")

	// ErrFlushed is returned when an aggregator is used after Record.
	ErrFlushed = errors.New("aggregator already flushed")

	// ErrInvalidTable is returned when a measure table fails validation.
	ErrInvalidTable = errors.New("invalid measure table")
)

// Type is the value type of a measure.
type Type int

const (
	TypeFloat Type = iota + 1
	TypeInt
)

// String returns the config name of the type.
func (t Type) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	default:
		return "unknown"
	}
}

// ParseType parses "float" or "int".
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "float":
		return TypeFloat, nil
	case "int":
		return TypeInt, nil
	default:
		return 0, fmt.Errorf("%w: unknown type %q", ErrInvalidTable, s)
	}
}

// Aggregation is how repeated puts into one measure are combined.
type Aggregation int

const (
	AggregationSum Aggregation = iota + 1
	AggregationLastValue
)

// String returns the config name of the aggregation.
func (a Aggregation) String() string {
	switch a {
	case AggregationSum:
		return "sum"
	case AggregationLastValue:
		return "last_value"
	default:
		return "unknown"
	}
}

// ParseAggregation parses "sum" or "last_value".
func ParseAggregation(s string) (Aggregation, error) {
	switch strings.ToLower(s) {
	case "sum":
		return AggregationSum, nil
	case "last_value":
		return AggregationLastValue, nil
	default:
		return 0, fmt.Errorf("%w: unknown aggregation %q", ErrInvalidTable, s)
	}
}

// Measure declares one named metric.
type Measure struct {
	Name        string
	Description string
	Unit        string
	Type        Type
	Aggregation Aggregation
}

// Table is an ordered set of measures. Order is preserved in flushed batches.
type Table []Measure

// Validate checks names are non-empty and unique and every type and
// aggregation is known.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: no measures", ErrInvalidTable)
	}

	seen := make(map[string]struct{}, len(t))
	for i, m := range t {
		if m.Name == "" {
			return fmt.Errorf("%w: measure %d has no name", ErrInvalidTable, i)
		}
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("%w: duplicate measure %q", ErrInvalidTable, m.Name)
		}
		seen[m.Name] = struct{}{}

		if m.Type != TypeFloat && m.Type != TypeInt {
			return fmt.Errorf("%w: measure %q has unknown type", ErrInvalidTable, m.Name)
		}
		if m.Aggregation != AggregationSum && m.Aggregation != AggregationLastValue {
			return fmt.Errorf("%w: measure %q has unknown aggregation", ErrInvalidTable, m.Name)
		}
	}
	return nil
}

// Lookup returns the measure named name.
func (t Table) Lookup(name string) (Measure, bool) {
	for _, m := range t {
		if m.Name == name {
			return m, true
		}
	}
	return Measure{}, false
}

// Engine measure names.
const (
	MeasureStartTime   = "start_time"
	MeasureEndTime     = "end_time"
	MeasureTaskTime    = "task_time"
	MeasureIOReadTime  = "io_read_time"
	MeasureIOWriteTime = "io_write_time"
	MeasureNumTrades   = "num_trades"
	MeasureComputeTime = "compute_time"
	MeasureFailed      = "failed"
	MeasurePV          = "pv"
	MeasurePVTime      = "pv_time"
	MeasureDelta       = "delta"
	MeasureVega        = "vega"
)

// Generator measure names.
const (
	MeasureExecutionTime = "execution_time"
	MeasureIOTime        = "io_time"
)

// EngineMeasures is the measure table of the trade processing engine.
var EngineMeasures = Table{
	{Name: MeasureStartTime, Description: "Task launch time", Unit: "s", Type: TypeFloat, Aggregation: AggregationLastValue},
	{Name: MeasureEndTime, Description: "Task end time", Unit: "s", Type: TypeFloat, Aggregation: AggregationLastValue},
	{Name: MeasureTaskTime, Description: "Time for individual task/process", Unit: "s", Type: TypeFloat, Aggregation: AggregationLastValue},
	{Name: MeasureIOReadTime, Description: "Time to get trades from cache", Unit: "s", Type: TypeFloat, Aggregation: AggregationSum},
	{Name: MeasureIOWriteTime, Description: "Time to write results to cache", Unit: "s", Type: TypeFloat, Aggregation: AggregationSum},
	{Name: MeasureNumTrades, Description: "Number of trades in the window", Unit: "1", Type: TypeInt, Aggregation: AggregationLastValue},
	{Name: MeasureComputeTime, Description: "Time to process trades", Unit: "s", Type: TypeFloat, Aggregation: AggregationSum},
	{Name: MeasureFailed, Description: "Injected task failures", Unit: "1", Type: TypeInt, Aggregation: AggregationSum},
	{Name: MeasurePV, Description: "Present value of the last priced trade", Unit: "1", Type: TypeFloat, Aggregation: AggregationLastValue},
	{Name: MeasurePVTime, Description: "Time to calculate PV", Unit: "s", Type: TypeFloat, Aggregation: AggregationLastValue},
	{Name: MeasureDelta, Description: "Delta of the last risked trade", Unit: "1", Type: TypeFloat, Aggregation: AggregationLastValue},
	{Name: MeasureVega, Description: "Vega of the last risked trade", Unit: "1", Type: TypeFloat, Aggregation: AggregationLastValue},
}

// GeneratorMeasures is the measure table of the trade generator.
var GeneratorMeasures = Table{
	{Name: MeasureExecutionTime, Description: "Execution time", Unit: "s", Type: TypeFloat, Aggregation: AggregationLastValue},
	{Name: MeasureIOTime, Description: "Time for IO", Unit: "s", Type: TypeFloat, Aggregation: AggregationSum},
}
