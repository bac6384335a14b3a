package engine

import (
	"fmt"
	"strings"
)

// Mode selects the compute stage.
type Mode int

const (
	// ModeSynthetic burns CPU and memory for a fixed duration instead of pricing.
	ModeSynthetic Mode = iota + 1
	// ModePVOnly prices each trade.
	ModePVOnly
	// ModeDeltaVega prices each trade and computes delta (fx1) and vega (sigma1).
	ModeDeltaVega
)

// String returns the command-line name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSynthetic:
		return "synthetic"
	case ModePVOnly:
		return "pvonly"
	case ModeDeltaVega:
		return "deltavega"
	default:
		return "unknown"
	}
}

// ParseMode parses "synthetic", "pvonly" or "deltavega".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "synthetic":
		return ModeSynthetic, nil
	case "pvonly":
		return ModePVOnly, nil
	case "deltavega":
		return ModeDeltaVega, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}
