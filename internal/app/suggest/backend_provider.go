package suggest

import (
	"context"
	"math/rand/v2"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/tubeplay/internal/domain/track"
)

type BackendProviderConfig struct {
	SeedQuery string `yaml:"seed_query" mapstructure:"seed_query" default:"popular music" validate:"required"`
}

// BackendProvider suggests a shuffled sample of the backend's results for a
// fixed seed query.
type BackendProvider struct {
	searcher Searcher
	config   *BackendProviderConfig
	shuffle  func(n int, swap func(i, j int))
}

// NewBackendProvider creates a new BackendProvider. defaultSeed is used when
// the settings do not name a seed query.
func NewBackendProvider(searcher Searcher, defaultSeed string, settings map[string]any) (*BackendProvider, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}

	config := BackendProviderConfig{SeedQuery: defaultSeed}
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	return &BackendProvider{
		searcher: searcher,
		config:   &config,
		shuffle:  rand.Shuffle,
	}, nil
}

// Suggest searches the seed query, shuffles the results and returns up to count.
func (p *BackendProvider) Suggest(ctx context.Context, count int, _ *track.Track, exclude map[string]bool) ([]track.Track, error) {
	if count <= 0 {
		return []track.Track{}, nil
	}

	found, err := p.searcher.Search(ctx, p.config.SeedQuery)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search seed query %q", p.config.SeedQuery)
	}

	candidates := make([]track.Track, 0, len(found))
	for _, t := range found {
		if !exclude[t.ID] {
			candidates = append(candidates, t)
		}
	}

	p.shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates, nil
}

// Name returns the provider name.
func (p *BackendProvider) Name() string {
	return "backend"
}
