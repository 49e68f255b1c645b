package extract_test

import (
	"testing"

	"estate_search/internal/domain"
	"estate_search/internal/extract"
)

const listingMarkdown = `
Rental results for Springfield

[123 Main St, Springfield, CA 90210](https://www.zillow.com/homedetails/123456)
$2,400/mo
**2** bds **1** ba **850** sqft

[456 Oak Ave, Springfield, CA 90211](https://www.zillow.com/homedetails/234567)
$1,950/mo
**1** bds **1** ba

[See more homes](https://www.zillow.com/search?q=springfield)
`

func TestMarkdownListing(t *testing.T) {
	gen := extract.NewGeneric()
	cands := gen.ExtractListing(domain.RawContent{Markdown: listingMarkdown}, "https://www.zillow.com/springfield-ca/rentals/")
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates (search link ignored), got %d", len(cands))
	}
	p := cands[0].Partial
	if p.Street == nil || *p.Street != "123 Main St" {
		t.Fatalf("street not parsed: %+v", p.Street)
	}
	if p.Price.Amount == nil || *p.Price.Amount != 2400 {
		t.Fatalf("price wrong: %+v", p.Price.Amount)
	}
	if !p.Price.IsRent {
		t.Fatalf("/mo not detected as rent")
	}
	if p.Bedrooms == nil || *p.Bedrooms != 2 {
		t.Fatalf("bedrooms wrong: %+v", p.Bedrooms)
	}
	if p.Bathrooms == nil || *p.Bathrooms != 1 {
		t.Fatalf("bathrooms wrong: %+v", p.Bathrooms)
	}
	if p.AreaM2 == nil || *p.AreaM2 < 78 || *p.AreaM2 > 80 {
		t.Fatalf("850 sqft should be about 79 m2, got %+v", p.AreaM2)
	}
}

const detailMarkdown = `
# 123 Main St, Springfield, CA

$2,400/mo

3 beds 2 baths 1,200 sqft

![icon](https://cdn.zillow.com/static/icon-phone-16x16.png)
![logo](https://cdn.zillow.com/static/logo.svg)
![front of house](https://photos.zillow.com/p/house-front.jpg)
`

func TestMarkdownDetail(t *testing.T) {
	gen := extract.NewGeneric()
	p, ok := gen.ExtractDetail(domain.RawContent{Markdown: detailMarkdown}, "https://www.zillow.com/homedetails/123456")
	if !ok {
		t.Fatal("expected a retained record")
	}
	if p.FullAddress == "" || p.Street == nil || *p.Street != "123 Main St" {
		t.Fatalf("address not parsed: %q", p.FullAddress)
	}
	if p.Price.Amount == nil || *p.Price.Amount != 2400 || !p.Price.IsRent {
		t.Fatalf("price wrong: %+v", p.Price)
	}
	if p.Bedrooms == nil || *p.Bedrooms != 3 {
		t.Fatalf("bedrooms wrong: %+v", p.Bedrooms)
	}
	if p.Bathrooms == nil || *p.Bathrooms != 2 {
		t.Fatalf("bathrooms wrong: %+v", p.Bathrooms)
	}
	if len(p.Images) != 1 || p.Images[0] != "https://photos.zillow.com/p/house-front.jpg" {
		t.Fatalf("icon/logo must be skipped: %v", p.Images)
	}
}

func TestFirstImageFromMarkdown(t *testing.T) {
	md := `![](https://cdn.example.com/avatar-32x32.png) ![](https://cdn.example.com/badge.png) ![](https://photos.example.com/real.jpg)`
	if got := extract.FirstImageFromMarkdown(md); got != "https://photos.example.com/real.jpg" {
		t.Fatalf("got %q", got)
	}
	if got := extract.FirstImageFromMarkdown("no images here"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
