package domain

import (
	"context"
	"errors"
)

var (
	// ErrSourceUnavailable marks a single backend/provider failure for one
	// request. The fallback chain or skip-and-continue policy absorbs it.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrAllBackendsFailed is returned by the scrape chain when every
	// configured backend failed for a URL. Callers skip the URL.
	ErrAllBackendsFailed = errors.New("all scrape backends failed")

	// ErrNoPlausibleLocation means geocoding returned only results outside
	// the expected region. The property is kept without coordinates.
	ErrNoPlausibleLocation = errors.New("no plausible location")
)

// SearchProvider is the external web search used to discover candidate
// listing pages.
type SearchProvider interface {
	Search(ctx context.Context, query string) ([]SearchHit, error)
}

// ScrapeBackend fetches raw content for one URL. Implementations enforce
// their own timeouts; the chain enforces per-backend concurrency bounds.
type ScrapeBackend interface {
	Name() string
	Fetch(ctx context.Context, url string) (RawContent, error)
}

// Geocoder resolves a free-text address, optionally restricted to a country
// (ISO code, e.g. "PT"). May return several candidates; the region validator
// picks the plausible one.
type Geocoder interface {
	Geocode(ctx context.Context, address, countryCode string) ([]GeoCandidate, error)
}

// POIProvider finds points of interest near a coordinate.
type POIProvider interface {
	Nearby(ctx context.Context, lat, lon float64, category string, limit int) ([]POI, error)
}

// Cache is a TTL key/value store for external-call results.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Summarizer turns a ranked result set into display text. It is an external
// collaborator (an LLM call); callers must tolerate errors and fall back to a
// static summary.
type Summarizer interface {
	Summarize(ctx context.Context, req Requirements, props []Property) (string, error)
}

// Negotiator places a negotiation phone call for a property, given the
// leverage data the pipeline computed. External collaborator, interface only.
type Negotiator interface {
	Negotiate(ctx context.Context, address string, leverageScore float64, context string) (summary string, err error)
}
