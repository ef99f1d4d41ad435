package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TUBEPLAY_BACKEND_URL", "TUBEPLAY_REMOTE_TOKEN",
		"SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET", "SPOTIFY_REFRESH_TOKEN",
		"LASTFM_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout())
	assert.Equal(t, 15000, cfg.Playback.ResolveTimeoutMs)
	assert.Equal(t, 32, cfg.Playback.EventBuffer)
	assert.Equal(t, "speaker", cfg.Audio.Type)
	assert.Equal(t, 1.0, cfg.Audio.InitialVolume())
	assert.Equal(t, "downloads", cfg.Download.Dir)
	assert.False(t, cfg.Remote.Enabled)
	assert.Equal(t, "tubeplay> ", cfg.Console.Prompt)
	assert.Equal(t, 3, cfg.Console.MinQueryLength)
	assert.Equal(t, "popular music", cfg.Suggest.SeedQuery)
	assert.Equal(t, 10, cfg.Suggest.Count)
	assert.Equal(t, "JP", cfg.Spotify.Market)
	assert.Equal(t, "Lyrics not available", cfg.GetMessage("lyrics_unavailable"))
	assert.Equal(t, "No song selected to download!", cfg.GetMessage("no_track_selected"))
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
backend:
  base_url: http://music.local:9000
audio:
  type: "null"
  volume: 0
  settings:
    simulated_length_ms: 1000
remote:
  enabled: true
  token: secret
suggest:
  count: 5
  providers:
    - type: backend
      display_name: Popular
    - type: lastfm
      display_name: Last.fm
      settings:
        tag: jazz
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://music.local:9000", cfg.Backend.BaseURL)
	assert.Equal(t, "null", cfg.Audio.Type)
	assert.Equal(t, 0.0, cfg.Audio.InitialVolume())
	assert.Equal(t, 1000, cfg.Audio.Settings["simulated_length_ms"])
	assert.True(t, cfg.Remote.Enabled)
	assert.Equal(t, "secret", cfg.Remote.Token)
	assert.Equal(t, 5, cfg.Suggest.Count)
	require.Len(t, cfg.Suggest.Providers, 2)
	assert.True(t, cfg.HasProvider("lastfm"))
	assert.False(t, cfg.HasProvider("spotify"))
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TUBEPLAY_BACKEND_URL", "http://env-backend:8000")
	t.Setenv("TUBEPLAY_REMOTE_TOKEN", "env-token")
	t.Setenv("LASTFM_API_KEY", "env-lastfm")

	path := writeConfig(t, `
remote:
  enabled: true
suggest:
  providers:
    - type: lastfm
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env-backend:8000", cfg.Backend.BaseURL)
	assert.Equal(t, "env-token", cfg.Remote.Token)
	assert.Equal(t, "env-lastfm", cfg.Suggest.Providers[0].Settings["api_key"])
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			name:   "remote enabled without token",
			yaml:   "remote:\n  enabled: true\n",
			errMsg: "Token",
		},
		{
			name:   "volume out of range",
			yaml:   "audio:\n  volume: 1.5\n",
			errMsg: "Volume",
		},
		{
			name:   "bad backend url",
			yaml:   "backend:\n  base_url: not-a-url\n",
			errMsg: "BaseURL",
		},
		{
			name:   "unknown provider",
			yaml:   "suggest:\n  providers:\n    - type: radio\n",
			errMsg: "Type",
		},
		{
			name:   "spotify provider without credentials",
			yaml:   "suggest:\n  providers:\n    - type: spotify\n      settings:\n        playlist_url: spotify:playlist:abc\n",
			errMsg: "spotify",
		},
		{
			name:   "bad market",
			yaml:   "spotify:\n  market: JPN\n",
			errMsg: "Market",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSpotifyConfig_Configured(t *testing.T) {
	assert.False(t, SpotifyConfig{}.Configured())
	assert.True(t, SpotifyConfig{ClientID: "id", ClientSecret: "secret", RefreshToken: "token"}.Configured())
}

func TestGetMessage_Default(t *testing.T) {
	cfg := &Config{Messages: MessagesConfig{DefaultError: "oops"}}
	assert.Equal(t, "oops", cfg.GetMessage("unknown_code"))
}
