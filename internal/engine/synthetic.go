package engine

import (
	"context"
	"time"
)

// floatsPerMB is the number of float64 values in one MB.
const floatsPerMB = 131072

// syntheticLoad holds the working set of the synthetic compute stage.
type syntheticLoad struct {
	data []float64
}

func newSyntheticLoad(memMB int) *syntheticLoad {
	return &syntheticLoad{data: make([]float64, max(0, memMB)*floatsPerMB)}
}

// run sleeps for delay, then keeps the working set busy until duration elapses.
func (s *syntheticLoad) run(ctx context.Context, delay, duration time.Duration) error {
	for i := range s.data {
		s.data[i] = 1.0
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range s.data {
			s.data[i] *= 12345.67890
		}
		for i := range s.data {
			s.data[i] = 1.0
		}
	}
	return nil
}
