package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// Structural signals that a URL is a search/feed/category page rather than an
// individual listing. Recursing into a feed page from a listing page is a
// correctness bug, so classification errs on the side of rejection.
var feedSegments = map[string]struct{}{
	"search":     {},
	"results":    {},
	"pesquisa":   {},
	"resultados": {},
	"listings":   {},
	"lista":      {},
}

var feedQueryKeys = []string{"q", "query", "search", "page", "ordem", "sort"}

// Patterns that identify an individual listing's detail page across the
// supported sites: a numeric id segment, an id path, or an imovirtual/olx
// style suffix id.
var detailPatterns = []*regexp.Regexp{
	regexp.MustCompile(`-\d{4,}(?:\.html?)?/?$`),
	regexp.MustCompile(`/(?:property|properties|imovel|anuncio|anuncios|rooms|homedetails|detalhes)/\d+`),
	regexp.MustCompile(`(?i)[-_]id[0-9a-z]{4,}(?:\.html?)?$`),
	regexp.MustCompile(`(?i)[?&]id=\d+`),
}

// IsListingDetailURL reports whether raw points at one individual listing.
// Feed/search pages are recognized first and always rejected; everything that
// carries no recognizable listing id is rejected too.
func IsListingDetailURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, seg := range strings.Split(path, "/") {
		if _, ok := feedSegments[seg]; ok {
			return false
		}
	}
	low := strings.ToLower(raw)
	for _, re := range detailPatterns {
		if re.MatchString(low) {
			return true
		}
	}
	// Query parameters without a listing id are a feed signature.
	if q := u.Query(); len(q) > 0 {
		for _, k := range feedQueryKeys {
			if q.Has(k) {
				return false
			}
		}
	}
	return false
}
