package services

import (
	"sort"
	"strings"

	"github.com/yvetteluxe63/yvetteluxe/models"
)

const (
	CategoryAll     = "all"
	SortByName      = "name"
	SortByPriceLow  = "price-low"
	SortByPriceHigh = "price-high"
	FeaturedLimit   = 3
)

// FilterProducts applies the storefront search, category filter and sort order. The input
// slice is not modified.
func FilterProducts(products []models.Product, q models.ProductQuery) []models.Product {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	category := strings.TrimSpace(q.Category)

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if category != "" && category != CategoryAll && p.Category != category {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case SortByPriceLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case SortByPriceHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	}
	return out
}

// Categories lists "all" followed by each distinct category in first-seen order.
func Categories(products []models.Product) []string {
	seen := make(map[string]bool)
	out := []string{CategoryAll}
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}

// Featured returns up to limit featured products, keeping mirror order.
func Featured(products []models.Product, limit int) []models.Product {
	out := make([]models.Product, 0, limit)
	for _, p := range products {
		if len(out) == limit {
			break
		}
		if p.Featured {
			out = append(out, p)
		}
	}
	return out
}
