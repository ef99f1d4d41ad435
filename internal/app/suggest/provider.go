// Package suggest provides suggested-song strategies and the chain that
// combines them.
package suggest

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubeplay/internal/domain/track"
)

// Provider is the interface for suggestion providers.
type Provider interface {
	// Suggest returns up to count tracks. seed is the track playing now and
	// may be nil. Tracks whose IDs are in exclude must not be returned.
	Suggest(ctx context.Context, count int, seed *track.Track, exclude map[string]bool) ([]track.Track, error)

	// Name returns the provider type (used in config).
	Name() string
}

// Searcher finds playable tracks on the backend.
type Searcher interface {
	Search(ctx context.Context, query string) ([]track.Track, error)
}

// matchQueries searches each query on the backend and keeps the first
// result that is neither excluded nor already picked, until count tracks are
// found. Queries that fail or find nothing are skipped.
func matchQueries(ctx context.Context, searcher Searcher, queries []string, count int, exclude map[string]bool) []track.Track {
	picked := make(map[string]bool)
	result := make([]track.Track, 0, count)

	for _, q := range queries {
		if len(result) >= count {
			break
		}
		if err := ctx.Err(); err != nil {
			break
		}

		found, err := searcher.Search(ctx, q)
		if err != nil {
			zlog.Debug().Msgf("suggest: search failed: query=%q err=%v", q, err)
			continue
		}
		for _, t := range found {
			if exclude[t.ID] || picked[t.ID] {
				continue
			}
			picked[t.ID] = true
			result = append(result, t)
			break
		}
	}
	return result
}
