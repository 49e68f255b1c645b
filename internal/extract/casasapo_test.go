package extract_test

import (
	"strings"
	"testing"

	"estate_search/internal/domain"
	"estate_search/internal/extract"
)

const listingPageURL = "https://casa.sapo.pt/alugar-apartamentos/faro/"

const listingFixture = `<html><body>
<div class="property">
  <a href="/alugar/apartamento-t2-faro-1234567.html">ver</a>
  <div class="property-type">Apartamento T2</div>
  <div class="property-location">Rua de Santo António, Sé, Faro, Faro</div>
  <div class="property-price">
    <div class="property-price-type">Alugar</div>
    <div class="property-price-value">650 € <span class="price-reduction">baixou de <span class="price-reduction-value">700 €</span></span></div>
  </div>
  <picture class="property-photos">
    <source srcset="https://img.sapo.pt/a-small.jpg 1x, https://img.sapo.pt/a-large.jpg 2x">
    <img src="https://img.sapo.pt/a.jpg">
  </picture>
</div>
<div class="property">
  <a href="https://redirect.sapo.pt/c?l=https%3A%2F%2Fcasa.sapo.pt%2Fimovel%2F998877">ver</a>
  <div class="property-type">Moradia T3</div>
  <div class="property-price">
    <div class="property-price-type">Alugar</div>
    <div class="property-price-value">1.200 €</div>
  </div>
</div>
<div class="property">
  <a href="/alugar/estudio-faro-7654321.html">ver</a>
  <div class="property-type">Apartamento T0</div>
  <div class="property-price">
    <div class="property-price-type">Alugar</div>
    <div class="property-price-value">480 €</div>
  </div>
</div>
<div class="property">
  <a href="/search?location=faro&page=2">mais resultados</a>
  <div class="property-type">Apartamento T1</div>
</div>
</body></html>`

func TestCasaSapo_ExtractListing(t *testing.T) {
	ex := extract.NewCasaSapo()
	cands := ex.ExtractListing(domain.RawContent{HTML: listingFixture}, listingPageURL)
	if len(cands) != 3 {
		t.Fatalf("expected 3 candidates (feed link dropped), got %d", len(cands))
	}

	first := cands[0].Partial
	if cands[0].DetailURL != "https://casa.sapo.pt/alugar/apartamento-t2-faro-1234567.html" {
		t.Fatalf("relative href not resolved: %s", cands[0].DetailURL)
	}
	if first.Bedrooms == nil || *first.Bedrooms != 2 {
		t.Fatalf("T2 typology not read: %+v", first.Bedrooms)
	}
	if !first.Price.IsRent {
		t.Fatalf("alugar not detected as rent")
	}
	if first.Price.Amount == nil || *first.Price.Amount != 650 {
		t.Fatalf("current price wrong: %+v", first.Price.Amount)
	}
	if first.Price.OriginalPrice == nil || *first.Price.OriginalPrice != 700 {
		t.Fatalf("pre-reduction price wrong: %+v", first.Price.OriginalPrice)
	}
	if first.FullAddress != "Rua de Santo António, Sé, Faro, Faro" {
		t.Fatalf("address split wrong: %q", first.FullAddress)
	}
	if len(first.Images) != 1 || first.Images[0] != "https://img.sapo.pt/a-large.jpg" {
		t.Fatalf("expected last srcset url as image, got %v", first.Images)
	}

	// tracking redirect unwrapped to the real listing
	if cands[1].DetailURL != "https://casa.sapo.pt/imovel/998877" {
		t.Fatalf("tracking link not unwrapped: %s", cands[1].DetailURL)
	}
	if cands[1].Partial.Price.Amount == nil || *cands[1].Partial.Price.Amount != 1200 {
		t.Fatalf("dot-thousands price wrong: %+v", cands[1].Partial.Price.Amount)
	}
}

const detailFixture = `<html><body>
<script type="application/ld+json">
{"@type":"Offer","price":"1.200","category":"Apartamento T3",
 "availableAtOrFrom":{"address":{"addressLocality":"Faro","addressRegion":"Faro"},
                      "geo":{"latitude":37.02,"longitude":-7.93}},
 "seller":{"name":"Imobiliária do Sul","telephone":"+351 912 345 678","url":"https://agente.example"},
 "image":"https://img.sapo.pt/main.jpg"}
</script>
<div class="property-description">Apartamento espaçoso com varanda e vista para a ria.</div>
<p>3 casas de banho, 120 m²</p>
</body></html>`

func TestCasaSapo_ExtractDetail_JSONLD(t *testing.T) {
	ex := extract.NewCasaSapo()
	p, ok := ex.ExtractDetail(domain.RawContent{HTML: detailFixture}, "https://casa.sapo.pt/imovel/998877")
	if !ok {
		t.Fatal("expected a retained record")
	}
	if p.Price.Amount == nil || *p.Price.Amount != 1200 {
		t.Fatalf("JSON-LD price wrong: %+v", p.Price.Amount)
	}
	if p.Bedrooms == nil || *p.Bedrooms != 3 {
		t.Fatalf("bedrooms from category wrong: %+v", p.Bedrooms)
	}
	if p.Latitude == nil || *p.Latitude != 37.02 || p.Longitude == nil || *p.Longitude != -7.93 {
		t.Fatalf("geo not read: %+v %+v", p.Latitude, p.Longitude)
	}
	if p.Seller.Phone == nil || *p.Seller.Phone != "+351 912 345 678" {
		t.Fatalf("seller phone not read: %+v", p.Seller.Phone)
	}
	if p.FullAddress != "Faro, Faro" {
		t.Fatalf("address wrong: %q", p.FullAddress)
	}
	if p.Bathrooms == nil || *p.Bathrooms != 3 {
		t.Fatalf("bathrooms from body wrong: %+v", p.Bathrooms)
	}
	if p.AreaM2 == nil || *p.AreaM2 != 120 {
		t.Fatalf("area from body wrong: %+v", p.AreaM2)
	}
	if p.Description == nil || !strings.Contains(*p.Description, "varanda") {
		t.Fatalf("description not found: %+v", p.Description)
	}
	if len(p.Images) == 0 || p.Images[0] != "https://img.sapo.pt/main.jpg" {
		t.Fatalf("image not read: %v", p.Images)
	}
}

const detailGalleryFixture = `<html><body>
<script type="application/ld+json">
{"@type":"Offer","price":"1.200","category":"Apartamento T3",
 "image":"https://img.sapo.pt/main.jpg"}
</script>
<picture class="property-photos">
  <source srcset="https://img.sapo.pt/main-small.jpg 1x, https://img.sapo.pt/main.jpg 2x">
  <img src="https://img.sapo.pt/main.jpg">
</picture>
<picture class="property-photos">
  <img src="https://img.sapo.pt/kitchen.jpg">
</picture>
</body></html>`

func TestCasaSapo_ExtractDetail_StructuredImageStaysPrimary(t *testing.T) {
	ex := extract.NewCasaSapo()
	p, ok := ex.ExtractDetail(domain.RawContent{HTML: detailGalleryFixture}, "https://casa.sapo.pt/imovel/998877")
	if !ok {
		t.Fatal("expected a retained record")
	}
	if len(p.Images) == 0 || p.Images[0] != "https://img.sapo.pt/main.jpg" {
		t.Fatalf("structured image must stay first: %v", p.Images)
	}
	found := false
	for _, u := range p.Images[1:] {
		if u == "https://img.sapo.pt/kitchen.jpg" {
			found = true
		}
		if u == p.Images[0] {
			t.Fatalf("primary image duplicated by the gallery pass: %v", p.Images)
		}
	}
	if !found {
		t.Fatalf("gallery images must extend the structured one: %v", p.Images)
	}
}

func TestCasaSapo_ExtractDetail_UnusableContent(t *testing.T) {
	ex := extract.NewCasaSapo()
	if _, ok := ex.ExtractDetail(domain.RawContent{HTML: "<html><body><p>Página não encontrada</p></body></html>"}, "https://casa.sapo.pt/imovel/1"); ok {
		t.Fatal("page without price or address must be discarded")
	}
	if _, ok := ex.ExtractDetail(domain.RawContent{}, "https://casa.sapo.pt/imovel/1"); ok {
		t.Fatal("empty content must be discarded")
	}
}
