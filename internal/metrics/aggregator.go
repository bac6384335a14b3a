package metrics

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// Value is the flushed aggregate of one measure.
// Exactly one of Float and Int is meaningful, selected by Measure.Type.
type Value struct {
	Measure Measure
	Float   float64
	Int     int64
	Count   int // number of puts folded into the value
}

// Number returns the aggregate as float64 regardless of type.
func (v Value) Number() float64 {
	if v.Measure.Type == TypeInt {
		return float64(v.Int)
	}
	return v.Float
}

// TagBatchStart scopes the aggregator of one generator batch. Sinks that keep
// one series per run skip batches carrying it.
const TagBatchStart = "batch_start"

// Batch is the tag-scoped set of aggregates produced by one Record call.
type Batch struct {
	Tags   map[string]string
	Values []Value
}

// Get returns the value of the named measure.
func (b Batch) Get(name string) (Value, bool) {
	for _, v := range b.Values {
		if v.Measure.Name == name {
			return v, true
		}
	}
	return Value{}, false
}

// IsPartial reports whether the batch covers one slice of a run.
func (b Batch) IsPartial() bool {
	_, ok := b.Tags[TagBatchStart]
	return ok
}

// TagKeys returns the batch tag keys in sorted order.
func (b Batch) TagKeys() []string {
	return slices.Sorted(maps.Keys(b.Tags))
}

type state int

const (
	stateInitialized state = iota
	stateAccumulating
	stateFlushed
)

// Aggregator accumulates values for one tag scope.
// It is not safe for concurrent Put; concurrent workers use one aggregator each.
type Aggregator struct {
	table  Table
	index  map[string]int
	values []Value
	tags   map[string]string
	sink   Sink
	state  state
}

// New creates an aggregator for table with tags attached to every measure.
// A nil sink discards the flushed batch.
func New(table Table, sink Sink, tags map[string]string) (*Aggregator, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = NopSink{}
	}

	a := &Aggregator{
		table:  table,
		index:  make(map[string]int, len(table)),
		values: make([]Value, len(table)),
		tags:   maps.Clone(tags),
		sink:   sink,
	}
	if a.tags == nil {
		a.tags = map[string]string{}
	}
	for i, m := range table {
		a.index[m.Name] = i
		a.values[i].Measure = m
	}
	return a, nil
}

// Tags returns a copy of the aggregator's tag set.
func (a *Aggregator) Tags() map[string]string {
	return maps.Clone(a.tags)
}

// Put folds value into the named measure.
// Float measures accept float64 and float32; int measures accept int, int32 and int64.
func (a *Aggregator) Put(name string, value any) error {
	if a.state == stateFlushed {
		return fmt.Errorf("%w: put %s", ErrFlushed, name)
	}

	i, ok := a.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMeasure, name)
	}
	v := &a.values[i]

	switch v.Measure.Type {
	case TypeFloat:
		f, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("%w: %s expects float, got %T", ErrTypeMismatch, name, value)
		}
		if v.Measure.Aggregation == AggregationSum {
			v.Float += f
		} else {
			v.Float = f
		}
	case TypeInt:
		n, ok := asInt(value)
		if !ok {
			return fmt.Errorf("%w: %s expects int, got %T", ErrTypeMismatch, name, value)
		}
		if v.Measure.Aggregation == AggregationSum {
			v.Int += n
		} else {
			v.Int = n
		}
	}

	v.Count++
	a.state = stateAccumulating
	return nil
}

// Snapshot returns the measures with at least one put, in table order,
// without flushing.
func (a *Aggregator) Snapshot() Batch {
	b := Batch{Tags: maps.Clone(a.tags)}
	for _, v := range a.values {
		if v.Count > 0 {
			b.Values = append(b.Values, v)
		}
	}
	return b
}

// Record hands the accumulated batch to the sink. It may be called once;
// later calls and puts return ErrFlushed.
func (a *Aggregator) Record(ctx context.Context) error {
	if a.state == stateFlushed {
		return ErrFlushed
	}
	a.state = stateFlushed

	if err := a.sink.Export(ctx, a.Snapshot()); err != nil {
		return fmt.Errorf("export metrics: %w", err)
	}
	return nil
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	default:
		return 0, false
	}
}

func asInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}
