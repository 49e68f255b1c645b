package extract

import (
	"regexp"
	"strings"

	"estate_search/internal/domain"
)

// Markdown parsing handles backends that return page content as markdown
// (the remote scraping services render US portals this way). Listing rows
// look like "[123 Main St, Springfield, CA 90210](https://...)" followed by
// a "$2,400/mo" line and a "**2** bds **1** ba **850** sqft" line.

var (
	mdLinkRe  = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+)\)`)
	mdImageRe = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^)\s]+)\)`)
	mdBoldRe  = regexp.MustCompile(`\*\*([\d.,]+)\*\*\s*(bds?|ba|baths?|sqft)`)
)

var streetMarkers = []string{"St,", "Ave,", "Rd,", "Blvd,", "Way,", "Dr,", "Ln,", "APT", "Unit"}

var imageSkipWords = []string{"icon", "logo", "avatar", "badge", "button",
	"16x16", "32x32", "48x48", "64x64"}

// FirstImageFromMarkdown returns the first image URL that looks like a
// property photo, skipping icons, logos and tiny assets.
func FirstImageFromMarkdown(markdown string) string {
	for _, m := range mdImageRe.FindAllStringSubmatch(markdown, -1) {
		u := m[1]
		low := strings.ToLower(u)
		skip := false
		for _, w := range imageSkipWords {
			if strings.Contains(low, w) {
				skip = true
				break
			}
		}
		if !skip {
			return u
		}
	}
	return ""
}

// parseMarkdownListing harvests address-link blocks from rendered markdown.
func parseMarkdownListing(markdown, pageURL string) []Candidate {
	var out []Candidate
	var cur *domain.Property
	flush := func() {
		if cur == nil || cur.URL == "" {
			cur = nil
			return
		}
		if IsListingDetailURL(cur.URL) {
			out = append(out, Candidate{Partial: *cur, DetailURL: cur.URL})
		}
		cur = nil
	}

	for _, line := range strings.Split(markdown, "\n") {
		if hasStreetMarker(line) {
			if m := mdLinkRe.FindStringSubmatch(line); m != nil {
				flush()
				p := domain.Property{URL: m[2]}
				addr := strings.TrimSpace(m[1])
				p.Street, p.Neighborhood, p.City, p.District = splitLocation(addr)
				p.FullAddress = domain.ComposeFullAddress(p.Street, p.Neighborhood, p.City, p.District)
				cur = &p
				continue
			}
		}
		if cur == nil {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "$") && cur.Price.Amount == nil {
			cur.Price.Amount = parsePriceUS(trimmed)
			cur.Price.IsRent = strings.Contains(strings.ToLower(trimmed), "/mo")
			continue
		}
		for _, m := range mdBoldRe.FindAllStringSubmatch(line, -1) {
			switch {
			case strings.HasPrefix(m[2], "bd"):
				if cur.Bedrooms == nil {
					if n := parsePriceUS(m[1]); n != nil {
						cur.Bedrooms = n
					}
				}
			case strings.HasPrefix(m[2], "ba"):
				if cur.Bathrooms == nil {
					cur.Bathrooms = parseFloatPtr(m[1])
				}
			case m[2] == "sqft":
				if cur.AreaM2 == nil {
					if f := parseFloatPtr(strings.ReplaceAll(m[1], ",", "")); f != nil {
						m2 := domain.SqftToSquareMeters(*f)
						cur.AreaM2 = &m2
					}
				}
			}
		}
	}
	flush()
	return out
}

// parseMarkdownDetail builds one record from a detail page's markdown.
func parseMarkdownDetail(markdown, pageURL string) (domain.Property, bool) {
	p := domain.Property{URL: pageURL}
	lines := strings.Split(markdown, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if p.FullAddress == "" && hasStreetMarker(trimmed) {
			addr := trimmed
			if m := mdLinkRe.FindStringSubmatch(trimmed); m != nil {
				addr = strings.TrimSpace(m[1])
			}
			addr = strings.TrimLeft(addr, "# ")
			p.Street, p.Neighborhood, p.City, p.District = splitLocation(addr)
			p.FullAddress = domain.ComposeFullAddress(p.Street, p.Neighborhood, p.City, p.District)
			continue
		}
		if p.Price.Amount == nil && strings.HasPrefix(trimmed, "$") {
			p.Price.Amount = parsePriceUS(trimmed)
			p.Price.IsRent = strings.Contains(strings.ToLower(trimmed), "/mo")
		}
	}
	if m := bedroomRe.FindStringSubmatch(markdown); m != nil {
		p.Bedrooms = parsePriceUS(m[1])
	}
	if m := bathRe.FindStringSubmatch(markdown); m != nil {
		p.Bathrooms = parseFloatPtr(m[1])
	}
	p.AreaM2 = areaFromText(markdown)
	if img := FirstImageFromMarkdown(markdown); img != "" {
		p.Images = []string{img}
	}
	if !p.Scoreable() {
		return domain.Property{}, false
	}
	return p, true
}

func hasStreetMarker(line string) bool {
	for _, m := range streetMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}
