// Package app drives the search pipeline: query the web, scrape listing
// feeds, scrape details, score, rank, and publish the outcome on the
// session bus. All fan-out here is bounded and all per-URL failures are
// absorbed; only a failing search provider is fatal for a request.
package app

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"estate_search/internal/adapters/observability"
	"estate_search/internal/domain"
	"estate_search/internal/extract"
	"estate_search/internal/score"
	"estate_search/internal/session"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// SearchOutcome is the terminal value published under KindSearch. Completed
// with an empty Properties slice is a valid outcome; Failed means the search
// provider itself failed and nothing downstream ran.
type SearchOutcome struct {
	Status      string            `json:"status"`
	Properties  []domain.Property `json:"properties"`
	Summary     string            `json:"summary"`
	TotalFound  int               `json:"total_found"`
	EnrichCount int               `json:"enrich_count"`
	Error       string            `json:"error,omitempty"`
}

// GeocodeOutcome is published under KindGeocode, one per enriched property.
// Index refers to the position in SearchOutcome.Properties.
type GeocodeOutcome struct {
	Index     int     `json:"index"`
	OK        bool    `json:"ok"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// POIOutcome is published under KindPOI, one per enriched property. Empty
// POIs when geocoding failed for that index.
type POIOutcome struct {
	Index int          `json:"index"`
	POIs  []domain.POI `json:"pois"`
}

// Fetcher is what the service needs from the scrape layer; *scrape.Chain
// satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (domain.RawContent, error)
}

// Options tunes the pipeline. Zero values fall back to the documented
// defaults in NewSearchService.
type Options struct {
	AllowedDomains []string // host suffixes accepted from search results
	POICategories  []string // categories looked up per enriched property
	Concurrency    int      // fan-out bound for listing and detail scraping
	DetailCap      int      // max detail pages scraped per request
	TopN           int      // ranked properties returned
	EnrichCount    int      // top entries that get geocode + POI enrichment
	EnrichWorkers  int      // fan-out bound for the geocode/POI providers
	CacheTTLSec    int      // geocode cache TTL
}

type SearchService struct {
	provider   domain.SearchProvider
	fetcher    Fetcher
	extractors *extract.Registry
	geocoder   domain.Geocoder
	pois       domain.POIProvider
	cache      domain.Cache
	summarizer domain.Summarizer
	bus        *session.Bus
	opts       Options
}

func NewSearchService(
	provider domain.SearchProvider,
	fetcher Fetcher,
	extractors *extract.Registry,
	geocoder domain.Geocoder,
	pois domain.POIProvider,
	cache domain.Cache,
	summarizer domain.Summarizer,
	bus *session.Bus,
	opts Options,
) *SearchService {
	if len(opts.AllowedDomains) == 0 {
		opts.AllowedDomains = []string{"idealista.pt", "imovirtual.com", "casasapo.pt", "casa.sapo.pt", "olx.pt"}
	}
	if len(opts.POICategories) == 0 {
		opts.POICategories = []string{"grocery", "restaurant", "transport"}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.DetailCap <= 0 {
		opts.DetailCap = 30
	}
	if opts.TopN <= 0 {
		opts.TopN = 20
	}
	if opts.EnrichCount <= 0 {
		opts.EnrichCount = 5
	}
	if opts.EnrichWorkers <= 0 {
		opts.EnrichWorkers = 4
	}
	if opts.CacheTTLSec <= 0 {
		opts.CacheTTLSec = 86400
	}
	return &SearchService{
		provider:   provider,
		fetcher:    fetcher,
		extractors: extractors,
		geocoder:   geocoder,
		pois:       pois,
		cache:      cache,
		summarizer: summarizer,
		bus:        bus,
		opts:       opts,
	}
}

// SearchProperties runs the whole pipeline and publishes the outcome under
// sessionID. Callers fire it in a goroutine; it never returns an error, a
// failed run publishes a Failed outcome instead.
func (s *SearchService) SearchProperties(ctx context.Context, req domain.Requirements, sessionID string) {
	query := buildQuery(req)
	log.Info().Str("session", sessionID).Str("query", query).Msg("search started")

	hits, err := s.provider.Search(ctx, query)
	if err != nil {
		log.Error().Str("session", sessionID).Err(err).Msg("search provider failed")
		s.bus.Publish(sessionID, session.KindSearch, SearchOutcome{
			Status: StatusFailed,
			Error:  err.Error(),
		})
		return
	}

	hits = s.filterHits(hits, req.Location)
	log.Info().Str("session", sessionID).Int("candidates", len(hits)).Msg("feed candidates after filter")

	candidates := s.scrapeListings(ctx, hits)
	detailURLs := s.selectDetailURLs(candidates)
	props := s.scrapeDetails(ctx, detailURLs, candidates)

	ranked := s.rank(props, req)
	enrich := s.opts.EnrichCount
	if enrich > len(ranked) {
		enrich = len(ranked)
	}

	s.bus.Publish(sessionID, session.KindSearch, SearchOutcome{
		Status:      StatusCompleted,
		Properties:  ranked,
		Summary:     s.summarize(ctx, req, ranked),
		TotalFound:  len(props),
		EnrichCount: enrich,
	})

	s.enrich(ctx, sessionID, req, ranked[:enrich])
}

// buildQuery turns structured requirements into a web search query the way a
// local would phrase it.
func buildQuery(req domain.Requirements) string {
	var parts []string
	if req.Bedrooms != nil {
		parts = append(parts, fmt.Sprintf("apartamento T%d", *req.Bedrooms))
	} else {
		parts = append(parts, "apartamento")
	}
	parts = append(parts, "para alugar")
	if req.Location != "" {
		parts = append(parts, "em "+req.Location)
	}
	if req.BudgetMax != nil {
		monthly := score.MonthlyBudget(*req.BudgetMax)
		parts = append(parts, fmt.Sprintf("até %d€ por mês", monthly))
	}
	if req.AdditionalInfo != nil && *req.AdditionalInfo != "" {
		parts = append(parts, *req.AdditionalInfo)
	}
	return strings.Join(parts, " ")
}

// filterHits keeps hits on allow-listed domains that also mention the
// requested location somewhere visible. Both checks are needed: the allow
// list kills aggregator spam, the location check kills national-level feed
// pages for the wrong city.
func (s *SearchService) filterHits(hits []domain.SearchHit, location string) []domain.SearchHit {
	loc := strings.ToLower(strings.TrimSpace(location))
	var out []domain.SearchHit
	for _, h := range hits {
		if !s.allowedDomain(h.URL) {
			continue
		}
		if loc != "" {
			blob := strings.ToLower(h.Title + " " + h.Description + " " + h.URL)
			if !strings.Contains(blob, loc) {
				continue
			}
		}
		out = append(out, h)
	}
	return out
}

func (s *SearchService) allowedDomain(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range s.opts.AllowedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// scrapeListings fans out over feed pages and harvests listing candidates.
// Failures are skipped per URL.
func (s *SearchService) scrapeListings(ctx context.Context, hits []domain.SearchHit) []extract.Candidate {
	var (
		mu  sync.Mutex
		out []extract.Candidate
		wg  sync.WaitGroup
	)
	sem := semaphore.NewWeighted(int64(s.opts.Concurrency))
	for _, h := range hits {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(h domain.SearchHit) {
			defer wg.Done()
			defer sem.Release(1)
			content, err := s.fetcher.Fetch(ctx, h.URL)
			if err != nil {
				log.Warn().Str("url", h.URL).Err(err).Msg("feed scrape skipped")
				return
			}
			cands := s.extractors.ForURL(h.URL).ExtractListing(content, h.URL)
			observability.ObserveExtraction("listing", len(cands))
			mu.Lock()
			out = append(out, cands...)
			mu.Unlock()
		}(h)
	}
	wg.Wait()
	return out
}

// selectDetailURLs dedupes candidates by detail URL, drops anything that does
// not classify as an individual listing, and caps the fan-out.
func (s *SearchService) selectDetailURLs(cands []extract.Candidate) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, c := range cands {
		u := c.DetailURL
		if u == "" || !extract.IsListingDetailURL(u) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if len(out) >= s.opts.DetailCap {
			break
		}
	}
	return out
}

// scrapeDetails fans out over detail pages. When a detail scrape fails but
// the listing card already carried enough to score, the partial record is
// kept instead of dropping the property.
func (s *SearchService) scrapeDetails(ctx context.Context, urls []string, cands []extract.Candidate) []domain.Property {
	partials := map[string]domain.Property{}
	for _, c := range cands {
		if _, ok := partials[c.DetailURL]; !ok {
			partials[c.DetailURL] = c.Partial
		}
	}

	var (
		mu  sync.Mutex
		out []domain.Property
		wg  sync.WaitGroup
	)
	sem := semaphore.NewWeighted(int64(s.opts.Concurrency))
	for _, u := range urls {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			defer sem.Release(1)
			partial := partials[u]

			content, err := s.fetcher.Fetch(ctx, u)
			if err != nil {
				log.Warn().Str("url", u).Err(err).Msg("detail scrape skipped")
				if partial.Scoreable() {
					mu.Lock()
					out = append(out, partial)
					mu.Unlock()
				}
				return
			}
			p, ok := s.extractors.ForURL(u).ExtractDetail(content, u)
			if !ok {
				if partial.Scoreable() {
					mu.Lock()
					out = append(out, partial)
					mu.Unlock()
				}
				return
			}
			observability.ObserveExtraction("detail", 1)
			merged := mergeProperty(p, partial)
			if !merged.Scoreable() {
				return
			}
			mu.Lock()
			out = append(out, merged)
			mu.Unlock()
		}(u)
	}
	wg.Wait()
	return out
}

// mergeProperty fills fields missing from the detail record with what the
// listing card already knew. Detail values win on conflict.
func mergeProperty(detail, partial domain.Property) domain.Property {
	if detail.Price.Amount == nil {
		detail.Price = partial.Price
	}
	if detail.Bedrooms == nil {
		detail.Bedrooms = partial.Bedrooms
	}
	if detail.Bathrooms == nil {
		detail.Bathrooms = partial.Bathrooms
	}
	if detail.AreaM2 == nil {
		detail.AreaM2 = partial.AreaM2
	}
	if detail.PropertyType == nil {
		detail.PropertyType = partial.PropertyType
	}
	if detail.FullAddress == "" && partial.FullAddress != "" {
		detail.Street = partial.Street
		detail.Neighborhood = partial.Neighborhood
		detail.City = partial.City
		detail.District = partial.District
		detail.FullAddress = partial.FullAddress
	}
	if detail.Latitude == nil {
		detail.Latitude = partial.Latitude
		detail.Longitude = partial.Longitude
	}
	if len(detail.Images) == 0 {
		detail.Images = partial.Images
	}
	if detail.Seller.Phone == nil && partial.Seller.Phone != nil {
		detail.Seller = partial.Seller
	}
	if detail.Description == nil {
		detail.Description = partial.Description
	}
	return detail
}

// rank scores, sorts descending by match, trims to TopN, and attaches the
// leverage score to the survivors.
func (s *SearchService) rank(props []domain.Property, req domain.Requirements) []domain.Property {
	for i := range props {
		props[i].MatchScore = score.Match(props[i], req)
	}
	sort.SliceStable(props, func(i, j int) bool {
		if props[i].MatchScore != props[j].MatchScore {
			return props[i].MatchScore > props[j].MatchScore
		}
		return props[i].URL < props[j].URL
	})
	if len(props) > s.opts.TopN {
		props = props[:s.opts.TopN]
	}
	for i := range props {
		props[i].NegotiationScore = score.Leverage(props[i], req)
	}
	return props
}

func (s *SearchService) summarize(ctx context.Context, req domain.Requirements, ranked []domain.Property) string {
	if s.summarizer != nil {
		if text, err := s.summarizer.Summarize(ctx, req, ranked); err == nil && text != "" {
			return text
		} else if err != nil {
			log.Warn().Err(err).Msg("summarizer failed, using fallback")
		}
	}
	if len(ranked) == 0 {
		return fmt.Sprintf("No rental properties matching your criteria were found in %s.", req.Location)
	}
	return fmt.Sprintf("Found %d rental properties in %s. Best match scores %.0f/100.",
		len(ranked), req.Location, ranked[0].MatchScore)
}
