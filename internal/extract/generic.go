package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"estate_search/internal/domain"
)

// Generic is the fallback extractor for domains without a dedicated parser.
// It applies broad heuristics (card-like containers, price-looking and
// room-count-looking substrings) and is expected to produce sparser, noisier
// records than the specialized extractors; downstream code tolerates the
// missing fields.
type Generic struct{}

func NewGeneric() *Generic { return &Generic{} }

var cardSelectors = []string{
	"article", "li", `div[class*="card"]`, `div[class*="listing"]`,
	`div[class*="property"]`, `div[class*="item"]`,
}

func (e *Generic) ExtractListing(content domain.RawContent, pageURL string) []Candidate {
	if content.HTML == "" {
		return parseMarkdownListing(content.Markdown, pageURL)
	}
	doc, err := parseHTML(content.HTML)
	if err != nil {
		return nil
	}

	var out []Candidate
	seen := map[string]struct{}{}
	for _, sel := range cardSelectors {
		doc.Find(sel).Each(func(_ int, card *goquery.Selection) {
			href, ok := card.Find("a[href]").First().Attr("href")
			if !ok {
				return
			}
			detail := absoluteURL(href, pageURL)
			if detail == "" || !IsListingDetailURL(detail) {
				return
			}
			if _, dup := seen[detail]; dup {
				return
			}
			seen[detail] = struct{}{}

			p := domain.Property{URL: detail}
			cardText := card.Text()
			if m := priceText(cardText); m != "" {
				p.Price.Amount = parsePricePT(m)
				p.Price.IsRent = isRentText(cardText)
			}
			if typ := tTypeRe.FindString(cardText); typ != "" {
				p.PropertyType = &typ
				p.Bedrooms = bedroomsFromType(typ)
			} else if m := bedroomRe.FindStringSubmatch(cardText); m != nil {
				p.Bedrooms = parsePriceUS(m[1])
			}
			p.AreaM2 = areaFromText(cardText)
			out = append(out, Candidate{Partial: p, DetailURL: detail})
		})
		if len(out) > 0 {
			break // first selector family that yields cards wins
		}
	}
	return out
}

func (e *Generic) ExtractDetail(content domain.RawContent, pageURL string) (domain.Property, bool) {
	if content.HTML == "" {
		return parseMarkdownDetail(content.Markdown, pageURL)
	}
	doc, err := parseHTML(content.HTML)
	if err != nil {
		return domain.Property{}, false
	}
	p := domain.Property{URL: pageURL}

	applyOfferJSONLD(doc.Selection, &p)

	body := doc.Find("body").Text()
	if p.Price.Amount == nil {
		if m := priceText(body); m != "" {
			p.Price.Amount = parsePricePT(m)
			p.Price.IsRent = isRentText(body)
		}
	}
	if p.Bedrooms == nil {
		if typ := tTypeRe.FindString(body); typ != "" {
			p.PropertyType = &typ
			p.Bedrooms = bedroomsFromType(typ)
		} else if m := bedroomRe.FindStringSubmatch(body); m != nil {
			p.Bedrooms = parsePriceUS(m[1])
		}
	}
	if p.Bathrooms == nil {
		if m := bathRe.FindStringSubmatch(body); m != nil {
			p.Bathrooms = parseFloatPtr(m[1])
		}
	}
	if p.AreaM2 == nil {
		p.AreaM2 = areaFromText(body)
	}
	if p.FullAddress == "" {
		// Meta address tags are structured enough to geocode; free-text
		// titles are not, so they are deliberately ignored here.
		if addr, ok := doc.Find(`meta[property="og:street-address"], meta[name="address"]`).First().Attr("content"); ok {
			p.Street, p.Neighborhood, p.City, p.District = splitLocation(addr)
			p.FullAddress = domain.ComposeFullAddress(p.Street, p.Neighborhood, p.City, p.District)
		}
	}
	if desc := descriptionText(doc); desc != "" {
		d := truncate(desc, 1000)
		p.Description = &d
	}
	if len(p.Images) == 0 {
		doc.Find("img[src]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src, _ := img.Attr("src")
			low := strings.ToLower(src)
			for _, w := range imageSkipWords {
				if strings.Contains(low, w) {
					return true
				}
			}
			if strings.HasPrefix(src, "http") {
				p.Images = append(p.Images, src)
			}
			return len(p.Images) < 5
		})
	}

	if !p.Scoreable() {
		// Markdown may still carry what the HTML pass missed.
		if content.Markdown != "" {
			return parseMarkdownDetail(content.Markdown, pageURL)
		}
		return domain.Property{}, false
	}
	return p, true
}
