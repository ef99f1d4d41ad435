package suggest

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubeplay/internal/domain/track"
)

// Suggestion is a suggested track with the display name of its provider.
type Suggestion struct {
	Track       track.Track
	DisplayName string
}

// ProviderWithMetadata wraps a provider with its metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// Chain asks providers in order until enough suggestions are collected.
type Chain struct {
	providers []ProviderWithMetadata
}

// NewChain creates a new provider chain.
func NewChain(providers []ProviderWithMetadata) *Chain {
	return &Chain{providers: providers}
}

// Suggest collects up to count suggestions. Failing providers are skipped;
// IDs in exclude and IDs returned by earlier providers are never repeated.
func (c *Chain) Suggest(ctx context.Context, count int, seed *track.Track, exclude map[string]bool) ([]Suggestion, error) {
	if count <= 0 {
		return []Suggestion{}, nil
	}

	seen := make(map[string]bool, len(exclude))
	for k, v := range exclude {
		seen[k] = v
	}

	var result []Suggestion
	var failures int
	for i, pm := range c.providers {
		remaining := count - len(result)
		if remaining <= 0 {
			break
		}

		zlog.Debug().Msgf("trying suggestion provider: index=%d total=%d name=%s provider_type=%s",
			i+1, len(c.providers), pm.DisplayName, pm.Provider.Name())

		tracks, err := pm.Provider.Suggest(ctx, remaining, seed, seen)
		if err != nil {
			failures++
			zlog.Warn().Msgf("suggestion provider failed, trying next: provider=%s error=%v", pm.DisplayName, err)
			continue
		}

		added := 0
		for _, t := range tracks {
			if seen[t.ID] || len(result) >= count {
				continue
			}
			seen[t.ID] = true
			result = append(result, Suggestion{Track: t, DisplayName: pm.DisplayName})
			added++
		}
		zlog.Debug().Msgf("suggestion provider returned tracks: provider=%s count=%d total_so_far=%d",
			pm.DisplayName, added, len(result))
	}

	if len(result) == 0 && failures > 0 && failures == len(c.providers) {
		return nil, errors.New("all suggestion providers failed")
	}
	return result, nil
}

// Len returns the number of providers in the chain.
func (c *Chain) Len() int {
	return len(c.providers)
}
