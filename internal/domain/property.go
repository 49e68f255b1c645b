package domain

import "strings"

// SqftPerSquareMeter converts between the two area units sites report.
const SqftPerSquareMeter = 10.764

func SquareMetersToSqft(m2 float64) float64 { return m2 * SqftPerSquareMeter }
func SqftToSquareMeters(ft float64) float64 { return ft / SqftPerSquareMeter }

// Requirements is the structured search request produced by the (out-of-scope)
// conversational scoping step.
type Requirements struct {
	Location       string   `json:"location"`
	BudgetMin      *int     `json:"budget_min,omitempty"`
	BudgetMax      *int     `json:"budget_max,omitempty"`
	Bedrooms       *int     `json:"bedrooms,omitempty"`
	Bathrooms      *float64 `json:"bathrooms,omitempty"`
	AdditionalInfo *string  `json:"additional_info,omitempty"`
}

type Price struct {
	Amount        *int `json:"amount,omitempty"` // monthly for rentals, whole currency units
	IsRent        bool `json:"is_rent"`
	OriginalPrice *int `json:"original_price,omitempty"` // pre-reduction price, when advertised
}

type Seller struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	URL   *string `json:"url,omitempty"`
}

// Property is the canonical, site-independent record every extractor produces
// into. URL is the natural key within one search batch; a record without a
// detail-page URL is not actionable and must be discarded.
type Property struct {
	URL string `json:"url"`

	Street       *string `json:"street,omitempty"`
	Neighborhood *string `json:"neighborhood,omitempty"`
	City         *string `json:"city,omitempty"`
	District     *string `json:"district,omitempty"`
	// FullAddress is derived from the structured parts above, never from raw
	// listing-card titles, so geocoding stays deterministic.
	FullAddress string   `json:"full_address,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`

	Price        Price    `json:"price"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *float64 `json:"bathrooms,omitempty"`
	AreaM2       *float64 `json:"area_m2,omitempty"`
	PropertyType *string  `json:"property_type,omitempty"` // e.g. "T2", "Apartamento"
	Description  *string  `json:"description,omitempty"`

	Images []string `json:"images,omitempty"` // first entry is the primary image
	Seller Seller   `json:"seller"`

	// Computed, never scraped.
	MatchScore       float64 `json:"match_score"`
	NegotiationScore float64 `json:"negotiation_score"`

	POIs []POI `json:"pois,omitempty"`
}

// ComposeFullAddress joins the structured location parts. Empty parts are
// skipped; the result is "" when nothing structured was extracted.
func ComposeFullAddress(parts ...*string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == nil {
			continue
		}
		if t := strings.TrimSpace(*p); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, ", ")
}

// Scoreable reports whether the record carries enough commercial signal to be
// retained: a price or at least a structured address.
func (p Property) Scoreable() bool {
	if p.URL == "" {
		return false
	}
	return p.Price.Amount != nil || p.FullAddress != ""
}

// POI is a point of interest near a property.
type POI struct {
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Address        *string `json:"address,omitempty"`
	DistanceMeters *int    `json:"distance_meters,omitempty"`
}

// SearchHit is one organic result from the external search provider.
type SearchHit struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// RawContent is what a scrape backend returns for one URL. Either field may be
// empty; a backend result is usable when at least one is non-empty.
type RawContent struct {
	HTML     string
	Markdown string
}

func (r RawContent) Empty() bool { return r.HTML == "" && r.Markdown == "" }

// GeoCandidate is one geocoding result for a free-text address.
type GeoCandidate struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
}
