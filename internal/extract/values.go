package extract

import (
	"regexp"
	"strconv"
	"strings"

	"estate_search/internal/domain"
)

/********** flexible lookups over decoded JSON **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// floatAt: number from several paths (float64/int/string like "38,7").
func floatAt(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

func strAt(m map[string]any, paths ...string) *string {
	for _, k := range paths {
		if s := strings.TrimSpace(lookupStr(m, k)); s != "" {
			return &s
		}
	}
	return nil
}

/********** text parsing **********/

var (
	numberRun = regexp.MustCompile(`\d[\d.,\s\x{a0}]*`)
	tTypeRe   = regexp.MustCompile(`(?i)\bT(\d+)\b`)
	areaM2Re  = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*m[²2]`)
	areaFtRe  = regexp.MustCompile(`(?i)([\d,.]+)\s*sq\.?\s*ft|([\d,.]+)\s*sqft`)
	bedroomRe = regexp.MustCompile(`(?i)(\d+)\s*(?:quartos?|bedrooms?|beds?\b|bds?\b)`)
	bathRe    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:casas? de banho|bathrooms?|baths?\b|ba\b)`)
)

// priceTextRe: currency-first runs accept any digit-like tail; number-first
// runs must look like a formatted amount (dot or space thousands groups,
// comma decimals), so a match can never begin on a stray digit separated
// from the currency symbol by punctuation.
var priceTextRe = regexp.MustCompile(`(?:€|\$|EUR)\s*\d[\d.,\s]*|\d+(?:[.\s]\d{3})*(?:,\d{1,2})?\s*(?:€|EUR)`)

// priceText finds a price-looking run in free text. Typology shorthand like
// "T2" is blanked first so its digit can never seed a price match.
func priceText(s string) string {
	return priceTextRe.FindString(tTypeRe.ReplaceAllString(s, " "))
}

// parsePricePT extracts an integer amount from Portuguese-style price text
// ("1.200 € /mês"): dots are thousands separators, commas decimals.
func parsePricePT(text string) *int {
	run := numberRun.FindString(text)
	if run == "" {
		return nil
	}
	s := strings.NewReplacer(".", "", " ", "", " ", "").Replace(run)
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "."), 64)
	if err != nil || f <= 0 {
		return nil
	}
	n := int(f)
	return &n
}

// parsePriceUS extracts an integer amount from US-style text ("$2,500/mo").
func parsePriceUS(text string) *int {
	run := numberRun.FindString(text)
	if run == "" {
		return nil
	}
	s := strings.NewReplacer(",", "", " ", "", " ", "").Replace(run)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// bedroomsFromType reads the Portuguese T-typology shorthand ("T2" = two
// bedrooms) out of a property-type string.
func bedroomsFromType(typ string) *int {
	m := tTypeRe.FindStringSubmatch(typ)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// areaFromText finds an area marker and normalizes to square meters.
func areaFromText(text string) *float64 {
	if m := areaM2Re.FindStringSubmatch(text); m != nil {
		s := strings.ReplaceAll(m[1], ",", ".")
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
			return &f
		}
	}
	if m := areaFtRe.FindStringSubmatch(text); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		s := strings.ReplaceAll(raw, ",", "")
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
			m2 := domain.SqftToSquareMeters(f)
			return &m2
		}
	}
	return nil
}

// splitLocation breaks "Street, Neighborhood, City, District" card text into
// structured parts. Two-part text is treated as "City, District".
func splitLocation(text string) (street, neighborhood, city, district *string) {
	parts := make([]string, 0, 4)
	for _, p := range strings.Split(text, ",") {
		if t := strings.TrimSpace(p); t != "" {
			parts = append(parts, t)
		}
	}
	switch len(parts) {
	case 0:
	case 1:
		city = &parts[0]
	case 2:
		city, district = &parts[0], &parts[1]
	default:
		street = &parts[0]
		neighborhood = &parts[1]
		city = &parts[len(parts)-2]
		district = &parts[len(parts)-1]
	}
	return
}

func parseFloatPtr(s string) *float64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		return nil
	}
	return &f
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
