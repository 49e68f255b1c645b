// Package score holds the two pure scoring functions of the pipeline. Both
// are deterministic for a fixed (property, requirements) pair and treat every
// input as optional: a missing field contributes a documented default, never
// a panic.
package score

import (
	"strings"

	"estate_search/internal/domain"
)

// Component weights of the requirement-match score. They sum to 100 when
// every component takes its maximum.
const (
	wBedrooms     = 30.0
	wBudget       = 30.0
	wLocation     = 25.0
	wBathrooms    = 10.0
	wCompleteness = 5.0
)

// annualBudgetThreshold: budgets above this are assumed to be annual figures
// and are divided by 12 before comparing against a monthly rent.
const annualBudgetThreshold = 10_000

// MonthlyBudget normalizes a user-supplied budget to a monthly figure.
// Values above annualBudgetThreshold are treated as annual.
func MonthlyBudget(budget int) int {
	if budget > annualBudgetThreshold {
		return budget / 12
	}
	return budget
}

// Match computes the requirement-match score in [0, 100].
func Match(p domain.Property, req domain.Requirements) float64 {
	s := bedroomScore(p.Bedrooms, req.Bedrooms) +
		budgetScore(p.Price.Amount, req.BudgetMax) +
		locationScore(p.FullAddress, req.Location) +
		bathroomScore(p.Bathrooms, req.Bathrooms) +
		completenessScore(p)
	return clamp(s, 0, 100)
}

func bedroomScore(have, want *int) float64 {
	if want == nil {
		return wBedrooms // nothing requested, nothing to mismatch
	}
	if have == nil {
		return 4
	}
	switch diff := *have - *want; {
	case diff == 0:
		return wBedrooms
	case diff == 1:
		return 22
	case diff > 1:
		return 15
	case diff == -1:
		return 8
	default:
		return 4
	}
}

// budgetScore normalizes both sides to a monthly figure. Under budget, the
// award shrinks as the price approaches the ceiling (paying 100% of budget
// is worse value than 60%). Up to 20% over budget still earns a shrinking
// positive score; beyond that the component goes negative.
func budgetScore(price, budget *int) float64 {
	if budget == nil {
		return wBudget
	}
	if price == nil || *price <= 0 {
		return 0
	}
	ceiling := float64(*budget)
	if ceiling > annualBudgetThreshold {
		ceiling /= 12
	}
	if ceiling <= 0 {
		return 0
	}
	ratio := float64(*price) / ceiling
	switch {
	case ratio <= 1:
		return 12 + (wBudget-12)*(1-ratio) // 30 at free, 12 at the ceiling
	case ratio <= 1.2:
		return 10 * (1.2 - ratio) / 0.2 // 10 just over, 0 at +20%
	default:
		return -5
	}
}

func locationScore(fullAddress, wanted string) float64 {
	w := strings.ToLower(strings.TrimSpace(wanted))
	if w == "" {
		return wLocation
	}
	addr := strings.ToLower(fullAddress)
	if addr == "" {
		// Absence of address text must stay distinguishable from a
		// confirmed mismatch, but both stay low and non-zero.
		return 5
	}
	if strings.Contains(addr, w) {
		return wLocation
	}
	for _, word := range strings.FieldsFunc(w, func(r rune) bool { return r == ' ' || r == ',' }) {
		if len(word) >= 3 && strings.Contains(addr, word) {
			return 12
		}
	}
	return 5
}

func bathroomScore(have, want *float64) float64 {
	if want == nil {
		return wBathrooms
	}
	if have == nil {
		return 3
	}
	switch {
	case *have >= *want:
		return wBathrooms
	case *want-*have <= 1:
		return 6
	default:
		return 3
	}
}

func completenessScore(p domain.Property) float64 {
	var s float64
	if p.Description != nil && strings.TrimSpace(*p.Description) != "" {
		s += 2
	}
	if len(p.Images) > 0 {
		s += 2
	}
	if p.Latitude != nil && p.Longitude != nil {
		s += 1
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
