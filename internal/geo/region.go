// Package geo sanity-checks coordinates against the region the user actually
// searched. Checks are deliberately coarse rectangular bounding boxes: the
// goal is rejecting wrong-country/wrong-region geocoding results, not polygon
// containment.
package geo

import (
	"strings"

	"github.com/rs/zerolog/log"

	"estate_search/internal/domain"
)

// Box is a latitude/longitude bounding rectangle.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

func (b Box) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Country is the coarse box for Portugal, mainland plus Madeira and the
// Azores. Anything outside is rejected regardless of region hint.
var Country = Box{MinLat: 32.2, MaxLat: 42.2, MinLon: -31.6, MaxLon: -6.1}

type region struct {
	keywords []string
	box      Box
}

// Tight regional boxes, selected by keyword match against the search
// location string.
var regions = []region{
	{
		keywords: []string{"algarve", "faro", "albufeira", "lagos", "portimão", "portimao", "tavira", "loulé", "loule"},
		box:      Box{MinLat: 36.9, MaxLat: 37.45, MinLon: -9.0, MaxLon: -7.3},
	},
	{
		keywords: []string{"lisboa", "lisbon", "cascais", "sintra", "oeiras", "almada", "amadora"},
		box:      Box{MinLat: 38.55, MaxLat: 39.1, MinLon: -9.55, MaxLon: -8.75},
	},
	{
		keywords: []string{"porto", "gaia", "matosinhos", "maia", "braga", "guimarães", "guimaraes"},
		box:      Box{MinLat: 40.9, MaxLat: 41.65, MinLon: -8.8, MaxLon: -8.1},
	},
	{
		keywords: []string{"madeira", "funchal"},
		box:      Box{MinLat: 32.35, MaxLat: 33.15, MinLon: -17.4, MaxLon: -16.2},
	},
	{
		keywords: []string{"açores", "azores", "ponta delgada", "terceira"},
		box:      Box{MinLat: 36.9, MaxLat: 39.8, MinLon: -31.5, MaxLon: -24.7},
	},
}

// RegionFor returns the tight box matching the location hint, if any.
func RegionFor(hint string) (Box, bool) {
	h := strings.ToLower(hint)
	for _, r := range regions {
		for _, kw := range r.keywords {
			if strings.Contains(h, kw) {
				return r.box, true
			}
		}
	}
	return Box{}, false
}

// IsPlausible decides whether a coordinate pair plausibly belongs to the
// searched region: the coarse country box always applies, and a tight
// regional box applies when the hint names a recognized region.
func IsPlausible(lat, lon float64, hint string) bool {
	if !Country.Contains(lat, lon) {
		return false
	}
	if tight, ok := RegionFor(hint); ok {
		return tight.Contains(lat, lon)
	}
	return true
}

// SelectCandidate picks the best geocoding candidate for a query:
// first a candidate whose address text contains the original search term,
// then one passing the tight regional box, then one passing only the coarse
// country box. Returns ErrNoPlausibleLocation when nothing qualifies.
func SelectCandidate(cands []domain.GeoCandidate, searchTerm, hint string) (domain.GeoCandidate, error) {
	term := strings.ToLower(strings.TrimSpace(searchTerm))
	for _, c := range cands {
		if term != "" && strings.Contains(strings.ToLower(c.FormattedAddress), term) &&
			Country.Contains(c.Latitude, c.Longitude) {
			return c, nil
		}
	}
	if tight, ok := RegionFor(hint); ok {
		for _, c := range cands {
			if tight.Contains(c.Latitude, c.Longitude) {
				return c, nil
			}
		}
	}
	for _, c := range cands {
		if Country.Contains(c.Latitude, c.Longitude) {
			return c, nil
		}
	}
	log.Debug().Str("term", searchTerm).Int("candidates", len(cands)).
		Msg("no plausible geocoding candidate")
	return domain.GeoCandidate{}, domain.ErrNoPlausibleLocation
}
