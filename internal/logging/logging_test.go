package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want zerolog.Level
	}{
		{name: "default", cfg: Config{}, want: zerolog.InfoLevel},
		{name: "warn", cfg: Config{Level: "WARN"}, want: zerolog.WarnLevel},
		{name: "invalid", cfg: Config{Level: "loud"}, want: zerolog.InfoLevel},
		{name: "verbose wins", cfg: Config{Level: "error", Verbose: true}, want: zerolog.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, closer := NewWithWriter(tt.cfg, &bytes.Buffer{})
			defer closer.Close()
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestNew_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log, closer := NewWithWriter(Config{}, &buf)
	defer closer.Close()

	log.Info().Int64("start_trade", 0).Msg("generating")
	log.Debug().Msg("hidden")

	out := buf.String()
	assert.Contains(t, out, `"start_trade":0`)
	assert.Contains(t, out, `"time":`)
	assert.NotContains(t, out, "hidden")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "azfinsim.log")

	var buf bytes.Buffer
	log, closer := NewWithWriter(Config{FilePath: path}, &buf)
	log.Warn().Msg("to both")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.Contains(t, buf.String(), "to both")
}
