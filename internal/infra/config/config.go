// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Playback PlaybackConfig `yaml:"playback"`
	Audio    AudioConfig    `yaml:"audio"`
	Download DownloadConfig `yaml:"download"`
	Remote   RemoteConfig   `yaml:"remote"`
	Console  ConsoleConfig  `yaml:"console"`
	Suggest  SuggestConfig  `yaml:"suggest"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	Messages MessagesConfig `yaml:"messages"`
}

// BackendConfig represents the search/streaming backend.
type BackendConfig struct {
	BaseURL   string `yaml:"base_url" default:"http://127.0.0.1:8000" validate:"required,url"`
	TimeoutMs int    `yaml:"timeout_ms" default:"10000" validate:"gte=100,lte=120000"`
}

// Timeout returns the backend request timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// PlaybackConfig represents queue and stream resolution configuration.
type PlaybackConfig struct {
	ResolveTimeoutMs  int `yaml:"resolve_timeout_ms" default:"15000" validate:"gte=100,lte=120000"`
	PrefetchTimeoutMs int `yaml:"prefetch_timeout_ms" default:"15000" validate:"gte=100,lte=120000"`
	LyricsTimeoutMs   int `yaml:"lyrics_timeout_ms" default:"10000" validate:"gte=100,lte=120000"`
	EventBuffer       int `yaml:"event_buffer" default:"32" validate:"gte=1,lte=4096"`
}

// AudioConfig represents the audio output configuration.
type AudioConfig struct {
	Type     string         `yaml:"type" default:"speaker" validate:"required"`
	Volume   *float64       `yaml:"volume" default:"1.0" validate:"required,gte=0,lte=1"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// InitialVolume returns the configured start volume.
func (a AudioConfig) InitialVolume() float64 {
	if a.Volume == nil {
		return 1
	}
	return *a.Volume
}

// DownloadConfig represents where downloaded songs are stored.
type DownloadConfig struct {
	Dir      string `yaml:"dir" default:"downloads" validate:"required"`
	Progress string `yaml:"progress" default:"bar" validate:"oneof=bar none"`
}

// RemoteConfig represents the remote-control RPC server.
type RemoteConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" default:"127.0.0.1:8090" validate:"required"`
	Token   string `yaml:"token" validate:"required_if=Enabled true"`
}

// ConsoleConfig represents the interactive console.
type ConsoleConfig struct {
	Prompt         string `yaml:"prompt" default:"tubeplay> "`
	MinQueryLength int    `yaml:"min_query_length" default:"3" validate:"gte=1"`
	HistoryFile    string `yaml:"history_file"`
	SearchLimit    int    `yaml:"search_limit" default:"10" validate:"gte=1,lte=50"`
}

// SuggestConfig represents suggested-songs configuration.
type SuggestConfig struct {
	SeedQuery string           `yaml:"seed_query" default:"popular music"`
	Count     int              `yaml:"count" default:"10" validate:"gte=1,lte=50"`
	Providers []ProviderConfig `yaml:"providers" validate:"dive"`
	Filters   []FilterConfig   `yaml:"filters" validate:"dive"`
}

// FilterConfig represents a single suggestion filter configuration.
type FilterConfig struct {
	Name     string         `yaml:"name" validate:"required"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// ProviderConfig represents a single suggestion provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required,oneof=backend spotify lastfm"`
	DisplayName string         `yaml:"display_name"`
	Settings    map[string]any `yaml:"settings,omitempty"`
}

// SpotifyConfig represents Spotify API configuration. Credentials are only
// required when a spotify suggestion provider is configured.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// Configured reports whether all credentials are present.
func (s SpotifyConfig) Configured() bool {
	return s.ClientID != "" && s.ClientSecret != "" && s.RefreshToken != ""
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	LyricsUnavailable string `yaml:"lyrics_unavailable" default:"Lyrics not available"`
	NoTrackSelected   string `yaml:"no_track_selected" default:"No song selected to download!"`
	PlaybackError     string `yaml:"playback_error" default:"Could not play this song."`
	Busy              string `yaml:"busy" default:"Still loading the previous song, try again in a moment."`
	SearchFailed      string `yaml:"search_failed" default:"Search failed."`
	QueryTooShort     string `yaml:"query_too_short" default:"Type at least %d characters to search."`
	DefaultError      string `yaml:"default_error" default:"Something went wrong."`
}

// Load loads configuration from a YAML file. An empty path yields the
// defaults. Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("TUBEPLAY_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("TUBEPLAY_REMOTE_TOKEN"); v != "" {
		c.Remote.Token = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		for i := range c.Suggest.Providers {
			if c.Suggest.Providers[i].Type != "lastfm" {
				continue
			}
			if c.Suggest.Providers[i].Settings == nil {
				c.Suggest.Providers[i].Settings = make(map[string]any)
			}
			c.Suggest.Providers[i].Settings["api_key"] = v
		}
	}
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "lyrics_unavailable":
		return c.Messages.LyricsUnavailable
	case "no_track_selected":
		return c.Messages.NoTrackSelected
	case "playback_error":
		return c.Messages.PlaybackError
	case "busy":
		return c.Messages.Busy
	case "search_failed":
		return c.Messages.SearchFailed
	case "query_too_short":
		return c.Messages.QueryTooShort
	default:
		return c.Messages.DefaultError
	}
}

// HasProvider reports whether a suggestion provider of the given type is configured.
func (c *Config) HasProvider(providerType string) bool {
	for _, p := range c.Suggest.Providers {
		if p.Type == providerType {
			return true
		}
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.HasProvider("spotify") && !c.Spotify.Configured() {
		return errors.New("spotify suggestion provider requires spotify client_id, client_secret and refresh_token")
	}

	return nil
}
