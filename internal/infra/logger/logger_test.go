package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tubeplay.log")

	closer, err := Init(Config{Output: path, Level: "info"})
	require.NoError(t, err)

	zlog.Info().Msgf("hello: key=%s", "value")
	zlog.Debug().Msg("hidden")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello: key=value"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestInit_Outputs(t *testing.T) {
	for _, output := range []string{"", "stderr", "none"} {
		closer, err := Init(Config{Output: output, Level: "debug"})
		require.NoError(t, err, output)
		assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
		assert.NoError(t, closer.Close())
	}

	closer, err := Init(Config{Output: filepath.Join(t.TempDir(), "a", "b", "x.log")})
	require.NoError(t, err, "parent directories are created")
	assert.NoError(t, closer.Close())

	t.Cleanup(func() {
		_, _ = Init(Config{Output: "none"})
	})
}
