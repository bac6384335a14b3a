// Package run carries the identity of one tool invocation.
package run

import (
	"maps"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Info identifies a run. It is captured once in main and passed down.
type Info struct {
	ID         string
	Tool       string
	LaunchedAt time.Time
	Tags       map[string]string
}

// New captures a fresh run id and the launch time.
func New(tool string, tags map[string]string) Info {
	return Info{
		ID:         uuid.NewString(),
		Tool:       tool,
		LaunchedAt: time.Now(),
		Tags:       maps.Clone(tags),
	}
}

// MetricTags returns the tag set attached to every metric of the run:
// the caller tags plus tool and run_id, and any extra pairs given.
// Extra pairs override caller tags; tool and run_id always win.
func (i Info) MetricTags(extra map[string]string) map[string]string {
	tags := make(map[string]string, len(i.Tags)+len(extra)+2)
	maps.Copy(tags, i.Tags)
	maps.Copy(tags, extra)
	tags["tool"] = i.Tool
	tags["run_id"] = i.ID
	return tags
}

// LaunchUnix returns the launch time in fractional unix seconds.
func (i Info) LaunchUnix() float64 {
	return float64(i.LaunchedAt.UnixNano()) / 1e9
}

// Itoa formats an integer tag value.
func Itoa[T ~int | ~int32 | ~int64](v T) string {
	return strconv.FormatInt(int64(v), 10)
}
