package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"estate_search/internal/domain"
	"estate_search/internal/geo"
	"estate_search/internal/session"
)

// enrich geocodes and POI-annotates the top of the ranking. Exactly one
// geocode outcome and one POI outcome is published per index, success or
// not, so waiters can count instead of guessing.
func (s *SearchService) enrich(ctx context.Context, sessionID string, req domain.Requirements, top []domain.Property) {
	if len(top) == 0 {
		return
	}
	// The geocode/POI providers get their own bound; scrape traffic and
	// enrichment traffic hit different services.
	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(int64(s.opts.EnrichWorkers))
	for i, p := range top {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, p domain.Property) {
			defer wg.Done()
			defer sem.Release(1)
			s.enrichOne(ctx, sessionID, req, i, p)
		}(i, p)
	}
	wg.Wait()
}

func (s *SearchService) enrichOne(ctx context.Context, sessionID string, req domain.Requirements, idx int, p domain.Property) {
	lat, lon, ok := s.locate(ctx, req, p)
	s.bus.Publish(sessionID, session.KindGeocode, GeocodeOutcome{
		Index: idx, OK: ok, Latitude: lat, Longitude: lon,
	})
	if !ok {
		s.bus.Publish(sessionID, session.KindPOI, POIOutcome{Index: idx})
		return
	}
	s.bus.Publish(sessionID, session.KindPOI, POIOutcome{
		Index: idx, POIs: s.nearby(ctx, lat, lon),
	})
}

// locate resolves coordinates for a property: already-extracted coordinates
// win, then the geocode cache, then a fresh forward geocode gated by the
// region validator.
func (s *SearchService) locate(ctx context.Context, req domain.Requirements, p domain.Property) (float64, float64, bool) {
	if p.Latitude != nil && p.Longitude != nil {
		if geo.IsPlausible(*p.Latitude, *p.Longitude, req.Location) {
			return *p.Latitude, *p.Longitude, true
		}
		log.Warn().Str("url", p.URL).Float64("lat", *p.Latitude).Float64("lon", *p.Longitude).
			Msg("extracted coordinates rejected by region check")
	}
	if p.FullAddress == "" || s.geocoder == nil {
		return 0, 0, false
	}

	key := "geocode:" + p.FullAddress
	var cached domain.GeoCandidate
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached.Latitude, cached.Longitude, true
		}
	}

	cands, err := s.geocoder.Geocode(ctx, p.FullAddress, "PT")
	if err != nil {
		log.Warn().Str("address", p.FullAddress).Err(err).Msg("geocode failed")
		return 0, 0, false
	}
	best, err := geo.SelectCandidate(cands, req.Location, req.Location)
	if err != nil {
		log.Info().Str("address", p.FullAddress).Msg("no plausible geocode candidate")
		return 0, 0, false
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, best, s.opts.CacheTTLSec)
	}
	return best.Latitude, best.Longitude, true
}

func (s *SearchService) nearby(ctx context.Context, lat, lon float64) []domain.POI {
	if s.pois == nil {
		return nil
	}
	var out []domain.POI
	for _, cat := range s.opts.POICategories {
		pois, err := s.pois.Nearby(ctx, lat, lon, cat, 3)
		if err != nil {
			log.Warn().Str("category", cat).Err(err).Msg("poi lookup failed")
			continue
		}
		out = append(out, pois...)
	}
	return out
}
