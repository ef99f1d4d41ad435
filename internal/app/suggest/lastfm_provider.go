package suggest

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubeplay/internal/domain/track"
	"github.com/osa030/tubeplay/internal/infra/lastfm"
)

// LastFmClient defines the Last.fm operations needed by LastFmProvider.
type LastFmClient interface {
	GetSimilarTracks(ctx context.Context, trackName, artistName string, limit int) ([]lastfm.Track, error)
	GetTopTracks(ctx context.Context, tagName string, limit int) ([]lastfm.Track, error)
	GetChartTopTracks(ctx context.Context, limit int) ([]lastfm.Track, error)
}

type LastFmProviderConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key" validate:"required"`
	// Tag selects tag.getTopTracks instead of the global chart when there
	// is no seed track.
	Tag          string `yaml:"tag" mapstructure:"tag"`
	SampleFactor int    `yaml:"sample_factor" mapstructure:"sample_factor" default:"3" validate:"gte=1,lte=10"`
}

// LastFmProvider suggests tracks similar to the one playing now. Without a
// seed (or when Last.fm knows no similar tracks) it falls back to the tag or
// global chart. Results are matched to backend tracks through search.
type LastFmProvider struct {
	lastfm   LastFmClient
	searcher Searcher
	config   *LastFmProviderConfig
}

// NewLastFmProvider creates a LastFmProvider with its own Last.fm client.
func NewLastFmProvider(searcher Searcher, settings map[string]any) (*LastFmProvider, error) {
	config, err := decodeLastFmConfig(settings)
	if err != nil {
		return nil, err
	}
	client, err := lastfm.New(lastfm.Config{APIKey: config.APIKey})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create last.fm client")
	}
	return newLastFmProvider(client, searcher, config)
}

func newLastFmProvider(client LastFmClient, searcher Searcher, config *LastFmProviderConfig) (*LastFmProvider, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	return &LastFmProvider{
		lastfm:   client,
		searcher: searcher,
		config:   config,
	}, nil
}

func decodeLastFmConfig(settings map[string]any) (*LastFmProviderConfig, error) {
	if len(settings) == 0 {
		return nil, errors.New("settings are required")
	}

	var config LastFmProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &config, nil
}

// Suggest returns up to count backend tracks found through Last.fm.
func (p *LastFmProvider) Suggest(ctx context.Context, count int, seed *track.Track, exclude map[string]bool) ([]track.Track, error) {
	if count <= 0 {
		return []track.Track{}, nil
	}
	limit := count * p.config.SampleFactor

	var candidates []lastfm.Track
	if seed != nil && seed.Title != "" && seed.Artist != "" {
		similar, err := p.lastfm.GetSimilarTracks(ctx, seed.Title, seed.Artist, limit)
		if err != nil {
			zlog.Warn().Msgf("lastfm provider: similar tracks unavailable: title=%s artist=%s err=%v", seed.Title, seed.Artist, err)
		}
		candidates = similar
	}

	if len(candidates) == 0 {
		var err error
		if p.config.Tag != "" {
			candidates, err = p.lastfm.GetTopTracks(ctx, p.config.Tag, limit)
		} else {
			candidates, err = p.lastfm.GetChartTopTracks(ctx, limit)
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to get top tracks")
		}
	}

	queries := make([]string, 0, len(candidates))
	for _, t := range candidates {
		queries = append(queries, t.Query())
	}
	return matchQueries(ctx, p.searcher, queries, count, exclude), nil
}

// Name returns the provider name.
func (p *LastFmProvider) Name() string {
	return "lastfm"
}
