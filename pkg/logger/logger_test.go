package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run("level_"+tt.level, func(t *testing.T) {
			New(Config{Level: tt.level})
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestComponentTagsEveryLine(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	log := Component(base, "resolver")
	log.Info().Msg("resolved")

	require.Contains(t, buf.String(), `"component":"resolver"`)
	require.Contains(t, buf.String(), `"resolved"`)
}
