package score

import (
	"math"
	"strings"

	"estate_search/internal/domain"
)

// Negotiation-leverage signals. Keyword lists cover English and Portuguese
// phrasings seen on the supported sites.
var motivationKeywords = []string{
	"urgent", "urgente",
	"motivated seller", "must sell", "quick sale",
	"price reduced", "reduced price", "baixa de preço", "baixou",
	"negotiable", "negociável", "negociavel",
	"vacant", "desocupado", "vago",
	"as-is", "as is", "no estado",
	"estate sale", "divorce", "relocation",
}

var conditionKeywords = []string{
	"needs repair", "needs work", "para recuperar", "para restaurar",
	"obras", "renovation", "renovar", "remodelar",
	"fixer", "handyman", "dated", "original condition",
}

const (
	leverageBase = 5.0

	underBudgetBonus    = 1.5
	motivationBonus     = 1.5
	conditionBonus      = 0.8
	sparseListingBonus  = 0.7
	sparseFieldMinCount = 3
	thinDescriptionLen  = 40
)

// Leverage estimates negotiating room in [0, 10], one decimal. A neutral base
// is adjusted by additive signals; keyword families count once each so
// synonyms are not double-counted.
func Leverage(p domain.Property, req domain.Requirements) float64 {
	s := leverageBase

	if p.Price.Amount != nil && req.BudgetMax != nil {
		ceiling := float64(*req.BudgetMax)
		if ceiling > annualBudgetThreshold {
			ceiling /= 12
		}
		if ceiling > 0 && float64(*p.Price.Amount) <= 0.85*ceiling {
			s += underBudgetBonus
		}
	}

	desc := ""
	if p.Description != nil {
		desc = strings.ToLower(*p.Description)
	}

	// A recorded price reduction is a motivation signal even without the
	// words spelled out in the description.
	motivated := p.Price.OriginalPrice != nil && p.Price.Amount != nil &&
		*p.Price.OriginalPrice > *p.Price.Amount
	if !motivated {
		motivated = containsAny(desc, motivationKeywords)
	}
	if motivated {
		s += motivationBonus
	}

	if containsAny(desc, conditionKeywords) {
		s += conditionBonus
	}

	// Sparse listings correlate with less competitive sellers.
	missing := 0
	if p.Bedrooms == nil {
		missing++
	}
	if p.Bathrooms == nil {
		missing++
	}
	if p.AreaM2 == nil {
		missing++
	}
	if len(strings.TrimSpace(desc)) < thinDescriptionLen {
		missing++
	}
	if missing >= sparseFieldMinCount {
		s += sparseListingBonus
	}

	return math.Round(clamp(s, 0, 10)*10) / 10
}

func containsAny(text string, kws []string) bool {
	if text == "" {
		return false
	}
	for _, kw := range kws {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
