package filter

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/tubeplay/internal/domain/track"
	"github.com/osa030/tubeplay/internal/infra/config"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// NewChainFromConfig builds a chain from the configured filters, in order.
func NewChainFromConfig(cfgs []config.FilterConfig) (*Chain, error) {
	chain := NewChain()
	for i, fc := range cfgs {
		factory, ok := registry[fc.Name]
		if !ok {
			return nil, errors.Newf("unknown filter at index %d: %s", i, fc.Name)
		}
		f := factory()
		if err := f.ValidateConfig(fc.Settings); err != nil {
			return nil, errors.Wrapf(err, "invalid settings for filter %s", fc.Name)
		}
		chain.Add(f)
	}
	return chain, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the candidate.
func (c *Chain) Execute(ctx context.Context, candidate track.Track, queue []track.Track) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, candidate, queue)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
