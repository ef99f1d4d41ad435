package spotify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zmb3/spotify/v2"
)

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Spotify URI format",
			input:    "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Spotify URL format",
			input:    "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Localised URL",
			input:    "https://open.spotify.com/intl-ja/playlist/37i9dQZF1DXcBWIGoYBM5M/",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "URL with query params",
			input:    "https://open.spotify.com/playlist/abc123?si=xyz&utm_source=copy",
			expected: "abc123",
		},
		{
			name:     "Plain playlist ID with whitespace",
			input:    "  37i9dQZF1DXcBWIGoYBM5M ",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractPlaylistID(tt.input))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "429", err: errors.New("Error 429: rate limit exceeded"), expected: true},
		{name: "rate limit text", err: errors.New("rate limit exceeded"), expected: true},
		{name: "500", err: errors.New("Error 500: internal server error"), expected: true},
		{name: "503", err: errors.New("503 Service Unavailable"), expected: true},
		{name: "400", err: errors.New("400 Bad Request"), expected: false},
		{name: "404", err: errors.New("404 not found"), expected: false},
		{name: "generic", err: errors.New("something went wrong"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}

func TestRetry(t *testing.T) {
	c := &Client{maxRetries: 3}

	calls := 0
	err := c.retry(func() error {
		calls++
		if calls < 3 {
			return errors.New("503 Service Unavailable")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = c.retry(func() error {
		calls++
		return errors.New("404 not found")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestConvertTrack(t *testing.T) {
	full := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			ID:   "4uLU6hMCjMI75M1A2tKUQC",
			Name: "Get Lucky",
			Artists: []spotify.SimpleArtist{
				{Name: "Daft Punk"},
				{Name: "Pharrell Williams"},
			},
		},
		Album: spotify.SimpleAlbum{Name: "Random Access Memories"},
	}

	got := convertTrack(full)
	assert.Equal(t, "4uLU6hMCjMI75M1A2tKUQC", got.ID)
	assert.Equal(t, "Daft Punk", got.Artist())
	assert.Equal(t, "Random Access Memories", got.Album)
	assert.Equal(t, "Get Lucky Daft Punk", got.Query())

	assert.Equal(t, "", Track{}.Artist())
	assert.Equal(t, "Solo", Track{Name: "Solo"}.Query())
}
