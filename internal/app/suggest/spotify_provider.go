package suggest

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubeplay/internal/domain/track"
	"github.com/osa030/tubeplay/internal/infra/spotify"
)

// PlaylistClient defines the Spotify operations needed by SpotifyProvider.
type PlaylistClient interface {
	GetPlaylistTracksRandom(ctx context.Context, playlistURL string, count int) ([]spotify.Track, error)
}

type SpotifyProviderConfig struct {
	PlaylistURL string `yaml:"playlist_url" mapstructure:"playlist_url" validate:"required"`
	// SampleFactor over-fetches from the playlist because not every Spotify
	// track is found on the backend.
	SampleFactor int `yaml:"sample_factor" mapstructure:"sample_factor" default:"2" validate:"gte=1,lte=10"`
}

// SpotifyProvider suggests random tracks of a Spotify playlist, matched to
// backend tracks by searching "<name> <artist>".
type SpotifyProvider struct {
	spotify  PlaylistClient
	searcher Searcher
	config   *SpotifyProviderConfig
}

// NewSpotifyProvider creates a new SpotifyProvider.
func NewSpotifyProvider(client PlaylistClient, searcher Searcher, settings map[string]any) (*SpotifyProvider, error) {
	if client == nil {
		return nil, errors.New("spotify client is required")
	}
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}

	var config SpotifyProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("spotify provider config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	return &SpotifyProvider{
		spotify:  client,
		searcher: searcher,
		config:   &config,
	}, nil
}

// Suggest samples the playlist and matches the sample on the backend.
func (p *SpotifyProvider) Suggest(ctx context.Context, count int, _ *track.Track, exclude map[string]bool) ([]track.Track, error) {
	if count <= 0 {
		return []track.Track{}, nil
	}

	sample, err := p.spotify.GetPlaylistTracksRandom(ctx, p.config.PlaylistURL, count*p.config.SampleFactor)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get random tracks from playlist")
	}

	queries := make([]string, 0, len(sample))
	for _, t := range sample {
		queries = append(queries, t.Query())
	}
	return matchQueries(ctx, p.searcher, queries, count, exclude), nil
}

// Name returns the provider name.
func (p *SpotifyProvider) Name() string {
	return "spotify"
}
