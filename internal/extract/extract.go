// Package extract turns raw scraped content into canonical property records.
// Extractors are best-effort: a page with no recognizable structure yields
// zero records, not an error, and downstream code tolerates missing fields.
package extract

import (
	"errors"
	"net/url"
	"strings"

	"estate_search/internal/domain"
)

var errEmptyContent = errors.New("extract: empty content")

// Candidate is one harvested listing reference: a partial record plus the
// detail-page URL to scrape next.
type Candidate struct {
	Partial   domain.Property
	DetailURL string
}

// Extractor parses one site family. ExtractListing runs over search/category
// pages and only returns candidates whose DetailURL classifies as an
// individual listing. ExtractDetail returns ok=false when the page holds no
// recognizable property structure.
type Extractor interface {
	ExtractListing(content domain.RawContent, pageURL string) []Candidate
	ExtractDetail(content domain.RawContent, pageURL string) (domain.Property, bool)
}

type hostRule struct {
	suffix string
	ex     Extractor
}

// Registry dispatches URLs to site-specific extractors, with a generic
// heuristic fallback for unknown domains.
type Registry struct {
	rules    []hostRule
	fallback Extractor
}

func NewRegistry() *Registry {
	return &Registry{
		rules: []hostRule{
			{suffix: "casa.sapo.pt", ex: NewCasaSapo()},
			{suffix: "casasapo.pt", ex: NewCasaSapo()},
		},
		fallback: NewGeneric(),
	}
}

// ForURL returns the extractor responsible for the URL's host.
func (r *Registry) ForURL(raw string) Extractor {
	if u, err := url.Parse(raw); err == nil {
		host := strings.ToLower(u.Hostname())
		for _, rule := range r.rules {
			if host == rule.suffix || strings.HasSuffix(host, "."+rule.suffix) {
				return rule.ex
			}
		}
	}
	return r.fallback
}

// absoluteURL resolves href against the page it was found on and unwraps
// "l=" style tracking redirects.
func absoluteURL(href, pageURL string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if u, err := url.Parse(href); err == nil {
		if wrapped := u.Query().Get("l"); strings.HasPrefix(wrapped, "http") {
			return wrapped
		}
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
