package extract_test

import (
	"testing"

	"estate_search/internal/domain"
	"estate_search/internal/extract"
)

func TestGeneric_ExtractListing_HTMLCards(t *testing.T) {
	html := `<html><body>
<article><a href="https://example.pt/imovel/445566">T2 em Faro</a><p>T2, 700 € por mês, 65 m², para alugar</p></article>
<article><a href="https://example.pt/pesquisa?page=2">mais</a></article>
<article><a href="https://example.pt/imovel/445566">duplicado</a></article>
</body></html>`

	gen := extract.NewGeneric()
	cands := gen.ExtractListing(domain.RawContent{HTML: html}, "https://example.pt/pesquisa")
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate (feed + duplicate dropped), got %d", len(cands))
	}
	p := cands[0].Partial
	if cands[0].DetailURL != "https://example.pt/imovel/445566" {
		t.Fatalf("detail url wrong: %s", cands[0].DetailURL)
	}
	if p.Price.Amount == nil || *p.Price.Amount != 700 {
		t.Fatalf("price wrong: %+v", p.Price.Amount)
	}
	if !p.Price.IsRent {
		t.Fatalf("alugar not detected")
	}
	if p.Bedrooms == nil || *p.Bedrooms != 2 {
		t.Fatalf("T2 not read: %+v", p.Bedrooms)
	}
	if p.AreaM2 == nil || *p.AreaM2 != 65 {
		t.Fatalf("area wrong: %+v", p.AreaM2)
	}
}

func TestGeneric_PriceIgnoresTypologyDigits(t *testing.T) {
	gen := extract.NewGeneric()
	for _, body := range []string{
		"Moradia T3 950 € por mês em Faro, para alugar",
		"Moradia T3, 950 € por mês em Faro, para alugar",
	} {
		html := `<html><body><p>` + body + `</p></body></html>`
		p, ok := gen.ExtractDetail(domain.RawContent{HTML: html}, "https://example.pt/imovel/112233")
		if !ok {
			t.Fatalf("%q: expected a retained record", body)
		}
		if p.Price.Amount == nil || *p.Price.Amount != 950 {
			t.Fatalf("%q: price must not start inside the typology token: %+v", body, p.Price.Amount)
		}
		if p.Bedrooms == nil || *p.Bedrooms != 3 {
			t.Fatalf("%q: T3 not read: %+v", body, p.Bedrooms)
		}
	}
}

func TestRegistry_Dispatch(t *testing.T) {
	r := extract.NewRegistry()
	if _, ok := r.ForURL("https://casa.sapo.pt/imovel/1").(*extract.CasaSapo); !ok {
		t.Fatalf("casa.sapo.pt must dispatch to the CasaSapo extractor")
	}
	if _, ok := r.ForURL("https://www.idealista.pt/imovel/1").(*extract.Generic); !ok {
		t.Fatalf("unknown hosts must fall back to the generic extractor")
	}
	if _, ok := r.ForURL("::bad::").(*extract.Generic); !ok {
		t.Fatalf("unparseable urls must fall back to the generic extractor")
	}
}
