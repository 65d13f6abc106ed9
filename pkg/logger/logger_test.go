package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"DISABLED", zerolog.Disabled},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseLevel("LOUD")
	assert.Error(t, err)
}

func TestInitOnce(t *testing.T) {
	var buf bytes.Buffer
	output = &buf
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	Init(&config.Configs{AppName: "tourism-test", LogLevel: "WARN"})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	log.Info().Msg("hidden")
	log.Warn().Str("stage", "train").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "tourism-test")

	// a second Init keeps the first configuration
	Init(&config.Configs{LogLevel: "DEBUG"})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
