// internal/adapters/mapbox/client.go
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"estate_search/internal/adapters/observability"
	"estate_search/internal/domain"
)

// Client wraps the Mapbox geocoding and search APIs. The same client serves
// both ports: forward geocoding of listing addresses and category search for
// nearby points of interest.
type Client struct {
	base  string
	hc    *http.Client
	token string
}

func New(base, token string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("access token is required")
	}
	if base == "" {
		base = "https://api.mapbox.com"
	}
	return &Client{
		base:  base,
		hc:    &http.Client{Timeout: 15 * time.Second},
		token: token,
	}, nil
}

type geocodeResponse struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"` // [lon, lat]
	} `json:"features"`
}

// Geocode forward-geocodes a free-text address. countryCode, when set,
// restricts results server-side (ISO 3166-1 alpha-2, lowercased on the wire).
func (c *Client) Geocode(ctx context.Context, address, countryCode string) ([]domain.GeoCandidate, error) {
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("limit", "5")
	if countryCode != "" {
		q.Set("country", strings.ToLower(countryCode))
	}
	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s",
		c.base, url.PathEscape(address), q.Encode())

	var out geocodeResponse
	if err := c.get(ctx, endpoint, "geocode", &out); err != nil {
		return nil, fmt.Errorf("mapbox geocode: %w", err)
	}
	cands := make([]domain.GeoCandidate, 0, len(out.Features))
	for _, f := range out.Features {
		if len(f.Center) < 2 {
			continue
		}
		cands = append(cands, domain.GeoCandidate{
			Latitude:         f.Center[1],
			Longitude:        f.Center[0],
			FormattedAddress: f.PlaceName,
		})
	}
	return cands, nil
}

type poiResponse struct {
	Features []struct {
		Properties struct {
			Name        string `json:"name"`
			FullAddress string `json:"full_address"`
			Coordinates struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"coordinates"`
		} `json:"properties"`
	} `json:"features"`
}

// Nearby returns up to limit POIs of the given category around a coordinate,
// closest first as the API orders them.
func (c *Client) Nearby(ctx context.Context, lat, lon float64, category string, limit int) ([]domain.POI, error) {
	if limit <= 0 {
		limit = 5
	}
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("proximity", fmt.Sprintf("%f,%f", lon, lat))
	q.Set("limit", fmt.Sprintf("%d", limit))
	endpoint := fmt.Sprintf("%s/search/searchbox/v1/category/%s?%s",
		c.base, url.PathEscape(category), q.Encode())

	var out poiResponse
	if err := c.get(ctx, endpoint, "poi", &out); err != nil {
		return nil, fmt.Errorf("mapbox poi: %w", err)
	}
	pois := make([]domain.POI, 0, len(out.Features))
	for _, f := range out.Features {
		p := domain.POI{
			Name:      f.Properties.Name,
			Category:  category,
			Latitude:  f.Properties.Coordinates.Latitude,
			Longitude: f.Properties.Coordinates.Longitude,
		}
		if f.Properties.FullAddress != "" {
			addr := f.Properties.FullAddress
			p.Address = &addr
		}
		if p.Latitude != 0 || p.Longitude != 0 {
			d := int(haversineMeters(lat, lon, p.Latitude, p.Longitude))
			p.DistanceMeters = &d
		}
		pois = append(pois, p)
	}
	return pois, nil
}

func (c *Client) get(ctx context.Context, endpoint, label string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		observability.ObserveExternal("mapbox", label, 0, time.Since(start))
		return err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("mapbox", label, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

const earthRadiusM = 6371000.0

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}
