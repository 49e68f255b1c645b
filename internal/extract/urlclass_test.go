package extract_test

import (
	"testing"

	"estate_search/internal/extract"
)

func TestIsListingDetailURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		// individual listings
		{"https://casa.sapo.pt/alugar/apartamento-t2-faro-1234567.html", true},
		{"https://casa.sapo.pt/imovel/998877", true},
		{"https://www.imovirtual.com/anuncio/t1-lisboa-id98765", true},
		{"https://www.zillow.com/homedetails/123456", true},
		{"https://site.pt/listing-page?id=9987", true},
		{"https://www.olx.pt/d/anuncio/apartamento-IDaBcDe.html", true},

		// feeds and search pages
		{"https://casa.sapo.pt/search?location=faro", false},
		{"https://www.imovirtual.com/resultados/arrendar/apartamento/faro", false},
		{"https://casa.sapo.pt/alugar-apartamentos/faro/", false},
		{"https://example.pt/lista/faro", false},
		{"https://example.pt/?page=2", false},

		// a feed segment wins even when an id-looking suffix is present
		{"https://casa.sapo.pt/search/apartamento-1234567.html", false},

		// garbage
		{"not a url", false},
		{"", false},
		{"/relative/only-1234567.html", false},
	}
	for _, c := range cases {
		if got := extract.IsListingDetailURL(c.url); got != c.want {
			t.Errorf("IsListingDetailURL(%q) = %v, want %v", c.url, got, c.want)
		}
	}
}
