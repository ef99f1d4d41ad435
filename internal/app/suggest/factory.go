package suggest

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubeplay/internal/infra/config"
)

// NewChainFromConfig creates a provider chain from configuration. With no
// providers configured the chain holds a single backend provider using the
// seed query. spotify may be nil unless a spotify provider is configured.
func NewChainFromConfig(cfg config.SuggestConfig, searcher Searcher, spotify PlaylistClient) (*Chain, error) {
	providerConfigs := cfg.Providers
	if len(providerConfigs) == 0 {
		providerConfigs = []config.ProviderConfig{{Type: "backend", DisplayName: "Suggested"}}
	}

	var providers []ProviderWithMetadata
	for i, pcfg := range providerConfigs {
		var provider Provider
		var err error
		zlog.Debug().Msgf("creating suggestion provider: index=%d type=%s", i+1, pcfg.Type)

		switch pcfg.Type {
		case "backend":
			provider, err = NewBackendProvider(searcher, cfg.SeedQuery, pcfg.Settings)

		case "spotify":
			if spotify == nil {
				err = errors.New("spotify client is not configured")
				break
			}
			provider, err = NewSpotifyProvider(spotify, searcher, pcfg.Settings)

		case "lastfm":
			provider, err = NewLastFmProvider(searcher, pcfg.Settings)

		default:
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		displayName := pcfg.DisplayName
		if displayName == "" {
			displayName = provider.Name()
		}
		providers = append(providers, ProviderWithMetadata{
			Provider:    provider,
			DisplayName: displayName,
		})

		zlog.Info().Msgf("registered suggestion provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, displayName)
	}

	return NewChain(providers), nil
}
