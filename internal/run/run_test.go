package run

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tags := map[string]string{"env": "ci"}
	before := time.Now()
	info := New("azfinsim", tags)

	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "azfinsim", info.Tool)
	assert.False(t, info.LaunchedAt.Before(before))

	tags["env"] = "mutated"
	assert.Equal(t, "ci", info.Tags["env"])

	assert.NotEqual(t, info.ID, New("azfinsim", nil).ID)
}

func TestInfo_MetricTags(t *testing.T) {
	info := Info{ID: "r1", Tool: "generator", Tags: map[string]string{"env": "ci", "tool": "spoofed"}}

	got := info.MetricTags(map[string]string{"window": Itoa(25), "env": "override"})
	assert.Equal(t, map[string]string{
		"env":    "override",
		"window": "25",
		"tool":   "generator",
		"run_id": "r1",
	}, got)
}

func TestInfo_LaunchUnix(t *testing.T) {
	info := Info{LaunchedAt: time.Unix(1700000000, 500_000_000)}
	assert.InDelta(t, 1700000000.5, info.LaunchUnix(), 1e-6)
}
