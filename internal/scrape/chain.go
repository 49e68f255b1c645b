// Package scrape hides the fact that there are several interchangeable
// remote scraping providers behind one fetch call: backends are tried in
// fixed priority order and the first one returning usable content wins.
package scrape

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"estate_search/internal/adapters/observability"
	"estate_search/internal/domain"
)

type limited struct {
	backend domain.ScrapeBackend
	sem     *semaphore.Weighted
}

// Chain is an ordered fallback list of scrape backends, each gated by its
// own counting semaphore sized to the backend's rate tolerance.
type Chain struct {
	backends []limited
}

// NewChain builds a chain in the given priority order. A non-positive limit
// falls back to 10 concurrent in-flight fetches.
func NewChain(limitPerBackend int, backends ...domain.ScrapeBackend) *Chain {
	if limitPerBackend <= 0 {
		limitPerBackend = 10
	}
	c := &Chain{}
	for _, b := range backends {
		c.backends = append(c.backends, limited{
			backend: b,
			sem:     semaphore.NewWeighted(int64(limitPerBackend)),
		})
	}
	return c
}

// Fetch tries each backend in order until one returns non-empty content.
// A backend failure is logged and absorbed, never propagated; when every
// backend fails the caller gets ErrAllBackendsFailed and skips the URL.
func (c *Chain) Fetch(ctx context.Context, url string) (domain.RawContent, error) {
	for _, l := range c.backends {
		content, err := c.fetchOne(ctx, l, url)
		if err != nil {
			if ctx.Err() != nil {
				return domain.RawContent{}, ctx.Err()
			}
			observability.ObserveScrape(l.backend.Name(), "error")
			log.Warn().Str("backend", l.backend.Name()).Str("url", url).Err(err).
				Msg("scrape backend failed, trying next")
			continue
		}
		if content.Empty() {
			observability.ObserveScrape(l.backend.Name(), "empty")
			continue
		}
		observability.ObserveScrape(l.backend.Name(), "ok")
		return content, nil
	}
	return domain.RawContent{}, domain.ErrAllBackendsFailed
}

func (c *Chain) fetchOne(ctx context.Context, l limited, url string) (domain.RawContent, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return domain.RawContent{}, err
	}
	defer l.sem.Release(1)
	return l.backend.Fetch(ctx, url)
}
