package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"estate_search/internal/domain"
)

// CasaSapo parses casa.sapo.pt markup. Detail pages prefer the embedded
// JSON-LD Offer block (price, coordinates, seller contact) and fall back to
// the HTML card structure; listing pages walk the repeated div.property
// cards.
type CasaSapo struct{}

func NewCasaSapo() *CasaSapo { return &CasaSapo{} }

var rentWords = []string{"alugar", "arrendar", "rent"}

func isRentText(s string) bool {
	low := strings.ToLower(s)
	for _, w := range rentWords {
		if strings.Contains(low, w) {
			return true
		}
	}
	return false
}

func (e *CasaSapo) ExtractListing(content domain.RawContent, pageURL string) []Candidate {
	doc, err := parseHTML(content.HTML)
	if err != nil {
		return nil
	}
	var out []Candidate
	doc.Find("div.property").Each(func(_ int, card *goquery.Selection) {
		p := domain.Property{}

		if typ := text(card, "div.property-type"); typ != "" {
			p.PropertyType = &typ
			p.Bedrooms = bedroomsFromType(typ)
		}
		if loc := text(card, "div.property-location"); loc != "" {
			p.Street, p.Neighborhood, p.City, p.District = splitLocation(loc)
			p.FullAddress = domain.ComposeFullAddress(p.Street, p.Neighborhood, p.City, p.District)
		}
		e.fillPrice(card, &p)
		if img := cardImage(card); img != "" {
			p.Images = []string{img}
		}
		applyOfferJSONLD(card, &p)

		href, _ := card.Find("a[href]").First().Attr("href")
		detail := absoluteURL(href, pageURL)
		if detail == "" || !IsListingDetailURL(detail) {
			return
		}
		p.URL = detail
		out = append(out, Candidate{Partial: p, DetailURL: detail})
	})
	return out
}

func (e *CasaSapo) ExtractDetail(content domain.RawContent, pageURL string) (domain.Property, bool) {
	doc, err := parseHTML(content.HTML)
	if err != nil {
		return domain.Property{}, false
	}
	p := domain.Property{URL: pageURL}

	applyOfferJSONLD(doc.Selection, &p)

	if p.PropertyType == nil {
		if typ := text(doc.Selection, "div.property-type"); typ != "" {
			p.PropertyType = &typ
		}
	}
	if p.PropertyType != nil && p.Bedrooms == nil {
		p.Bedrooms = bedroomsFromType(*p.PropertyType)
	}
	if loc := text(doc.Selection, "div.property-location"); loc != "" {
		p.Street, p.Neighborhood, p.City, p.District = splitLocation(loc)
	}
	p.FullAddress = domain.ComposeFullAddress(p.Street, p.Neighborhood, p.City, p.District)

	e.fillPrice(doc.Selection, &p)
	// The Offer block image stays primary; gallery markup only extends it.
	for _, u := range detailImages(doc) {
		if len(p.Images) == 0 || u != p.Images[0] {
			p.Images = append(p.Images, u)
		}
	}

	if desc := descriptionText(doc); desc != "" {
		d := truncate(desc, 1000)
		p.Description = &d
	}
	if body := doc.Find("body").Text(); body != "" {
		if p.AreaM2 == nil {
			p.AreaM2 = areaFromText(body)
		}
		if p.Bathrooms == nil {
			if m := bathRe.FindStringSubmatch(body); m != nil {
				p.Bathrooms = parseFloatPtr(m[1])
			}
		}
	}

	if !p.Scoreable() {
		return domain.Property{}, false
	}
	return p, true
}

// fillPrice reads the price block: rent/sale type, current amount, and the
// pre-reduction amount when the listing advertises a cut.
func (e *CasaSapo) fillPrice(s *goquery.Selection, p *domain.Property) {
	block := s.Find("div.property-price").First()
	if block.Length() == 0 {
		return
	}
	if t := text(block, "div.property-price-type"); t != "" {
		p.Price.IsRent = isRentText(t)
	}
	value := block.Find("div.property-price-value").First()
	if value.Length() == 0 {
		return
	}
	if p.Price.Amount == nil {
		// Drop the reduction span before parsing so the old price does
		// not shadow the current one.
		current := value.Clone()
		current.Find("span.price-reduction").Remove()
		p.Price.Amount = parsePricePT(current.Text())
	}
	if old := text(value, "span.price-reduction-value"); old != "" {
		p.Price.OriginalPrice = parsePricePT(old)
	}
}

func cardImage(card *goquery.Selection) string {
	pic := card.Find("picture.property-photos").First()
	if pic.Length() == 0 {
		return ""
	}
	// Highest resolution source first, img fallback.
	if srcset, ok := pic.Find("source").Last().Attr("srcset"); ok && srcset != "" {
		if u := lastSrcsetURL(srcset); u != "" {
			return u
		}
	}
	img := pic.Find("img").First()
	if src, ok := img.Attr("src"); ok && src != "" {
		return src
	}
	if src, ok := img.Attr("data-src"); ok {
		return src
	}
	return ""
}

func detailImages(doc *goquery.Document) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(u string) {
		if u == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	doc.Find("picture.property-photos").Each(func(_ int, pic *goquery.Selection) {
		pic.Find("source").Each(func(_ int, src *goquery.Selection) {
			if srcset, ok := src.Attr("srcset"); ok {
				add(lastSrcsetURL(srcset))
			}
		})
		img := pic.Find("img").First()
		if src, ok := img.Attr("src"); ok && src != "" {
			add(src)
		} else if src, ok := img.Attr("data-src"); ok {
			add(src)
		}
	})
	return out
}

func lastSrcsetURL(srcset string) string {
	parts := strings.Split(srcset, ",")
	last := strings.TrimSpace(parts[len(parts)-1])
	if last == "" {
		return ""
	}
	return strings.Fields(last)[0]
}

var descClassRe = regexp.MustCompile(`(?i)description|descricao|details`)

func descriptionText(doc *goquery.Document) string {
	found := ""
	doc.Find("div,section").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if cls, ok := s.Attr("class"); ok && descClassRe.MatchString(cls) {
			found = strings.TrimSpace(s.Text())
			return false
		}
		return true
	})
	return found
}

// applyOfferJSONLD merges fields from a schema.org Offer block into p.
// Structured data wins over free-text parsing wherever both exist.
func applyOfferJSONLD(s *goquery.Selection, p *domain.Property) {
	s.Find(`script[type="application/ld+json"]`).Each(func(_ int, sc *goquery.Selection) {
		var data map[string]any
		if err := json.Unmarshal([]byte(sc.Text()), &data); err != nil {
			return
		}
		if t, _ := data["@type"].(string); t != "Offer" {
			return
		}
		if p.Price.Amount == nil {
			p.Price.Amount = offerPrice(data["price"])
		}
		if cat := lookupStr(data, "category"); cat != "" && p.PropertyType == nil {
			p.PropertyType = &cat
			p.Bedrooms = bedroomsFromType(cat)
		}
		if p.City == nil {
			p.City = strAt(data, "availableAtOrFrom.address.addressLocality")
		}
		if p.District == nil {
			p.District = strAt(data, "availableAtOrFrom.address.addressRegion")
		}
		if p.Latitude == nil {
			p.Latitude = floatAt(data, "availableAtOrFrom.geo.latitude")
			p.Longitude = floatAt(data, "availableAtOrFrom.geo.longitude")
		}
		if p.Seller.Name == nil {
			p.Seller.Name = strAt(data, "seller.name")
			p.Seller.Phone = strAt(data, "seller.telephone")
			p.Seller.URL = strAt(data, "seller.url")
		}
		if len(p.Images) == 0 {
			if img := lookupStr(data, "image"); img != "" {
				p.Images = []string{img}
			}
		}
		if p.FullAddress == "" {
			p.FullAddress = domain.ComposeFullAddress(p.Street, p.Neighborhood, p.City, p.District)
		}
	})
}

// offerPrice accepts the shapes Offer blocks use in the wild: a number, a
// formatted string, or a list of either.
func offerPrice(v any) *int {
	switch t := v.(type) {
	case float64:
		if t > 0 {
			n := int(t)
			return &n
		}
	case string:
		return parsePricePT(t)
	case []any:
		if len(t) > 0 {
			return offerPrice(t[0])
		}
	}
	return nil
}

func parseHTML(html string) (*goquery.Document, error) {
	if strings.TrimSpace(html) == "" {
		return nil, errEmptyContent
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Debug().Err(err).Msg("html parse failed")
		return nil, err
	}
	return doc, nil
}

func text(s *goquery.Selection, selector string) string {
	return strings.TrimSpace(s.Find(selector).First().Text())
}
