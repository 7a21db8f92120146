package models

import "github.com/shopspring/decimal"

const DefaultWishlistCategory = "general"

type WishlistItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Category  string          `json:"category"`
}

// ProductSummary is the accepted input when saving a product to a wishlist.
type ProductSummary struct {
	ID       string          `json:"id" binding:"required"`
	Name     string          `json:"name" binding:"required"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Category string          `json:"category"`
}

// WishlistItem converts the summary, filling in the default category.
func (p ProductSummary) WishlistItem() WishlistItem {
	category := p.Category
	if category == "" {
		category = DefaultWishlistCategory
	}
	return WishlistItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Category:  category,
	}
}
