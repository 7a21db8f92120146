package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"not null" json:"name"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	ImageURL    string          `json:"image_url"`
	Description string          `json:"description"`
	Category    string          `gorm:"index" json:"category"`
	Featured    bool            `gorm:"default:false" json:"featured"`
	Sizes       []string        `gorm:"serializer:json" json:"sizes,omitempty"`
	Colors      []string        `gorm:"serializer:json" json:"colors,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Summary returns the fields a wishlist needs.
func (p Product) Summary() ProductSummary {
	return ProductSummary{ID: p.ID, Name: p.Name, Price: p.Price, Image: p.ImageURL, Category: p.Category}
}

// ProductInput is the admin payload for creating a product.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
	Description string          `json:"description" validate:"max=5000"`
	Category    string          `json:"category" validate:"required"`
	Featured    bool            `json:"featured"`
	Sizes       []string        `json:"sizes" validate:"dive,required"`
	Colors      []string        `json:"colors" validate:"dive,required"`
}

// ProductPatch is a partial update; nil fields are left unchanged.
type ProductPatch struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	ImageURL    *string          `json:"image_url,omitempty" validate:"omitempty,url"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Featured    *bool            `json:"featured,omitempty"`
	Sizes       []string         `json:"sizes,omitempty"`
	Colors      []string         `json:"colors,omitempty"`
}

// Fields returns the column updates the patch describes.
func (p ProductPatch) Fields() map[string]interface{} {
	out := make(map[string]interface{})
	if p.Name != nil {
		out["name"] = *p.Name
	}
	if p.Price != nil {
		out["price"] = *p.Price
	}
	if p.ImageURL != nil {
		out["image_url"] = *p.ImageURL
	}
	if p.Description != nil {
		out["description"] = *p.Description
	}
	if p.Category != nil {
		out["category"] = *p.Category
	}
	if p.Featured != nil {
		out["featured"] = *p.Featured
	}
	if p.Sizes != nil {
		out["sizes"] = p.Sizes
	}
	if p.Colors != nil {
		out["colors"] = p.Colors
	}
	return out
}

// ProductQuery filters the storefront listing.
type ProductQuery struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Sort     string `form:"sort"`
}
