package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	OfferPrice  decimal.Decimal `json:"offerPrice"`
	Rating      float64         `json:"rating"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Stock       int             `json:"stock"`
	Featured    bool            `json:"featured"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// EffectivePrice is what a buyer pays: the offer price when it undercuts the
// list price, otherwise the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.OfferPrice.IsPositive() && p.OfferPrice.LessThan(p.Price) {
		return p.OfferPrice
	}
	return p.Price
}

// ProductPatch carries the fields of a create or partial update. Nil fields
// are left untouched.
type ProductPatch struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	OfferPrice  *decimal.Decimal `json:"offerPrice"`
	Rating      *float64         `json:"rating"`
	Category    *string          `json:"category"`
	Image       *string          `json:"image"`
	Stock       *int             `json:"stock"`
	Featured    *bool            `json:"featured"`
}

func (p ProductPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Price == nil && p.OfferPrice == nil &&
		p.Rating == nil && p.Category == nil && p.Image == nil && p.Stock == nil && p.Featured == nil
}

func (p ProductPatch) Validate() error {
	if p.Price != nil && p.Price.IsNegative() {
		return Invalid("price", "must be >= 0")
	}
	if p.OfferPrice != nil && p.OfferPrice.IsNegative() {
		return Invalid("offerPrice", "must be >= 0")
	}
	if p.Rating != nil && (*p.Rating < 0 || *p.Rating > 5) {
		return Invalid("rating", "must be between 0 and 5")
	}
	if p.Stock != nil && *p.Stock < 0 {
		return Invalid("stock", "must be >= 0")
	}
	return nil
}

// Apply merges the set fields onto dst.
func (p ProductPatch) Apply(dst *Product) {
	if p.Title != nil {
		dst.Title = *p.Title
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.OfferPrice != nil {
		dst.OfferPrice = *p.OfferPrice
	}
	if p.Rating != nil {
		dst.Rating = *p.Rating
	}
	if p.Category != nil {
		dst.Category = *p.Category
	}
	if p.Image != nil {
		dst.Image = *p.Image
	}
	if p.Stock != nil {
		dst.Stock = *p.Stock
	}
	if p.Featured != nil {
		dst.Featured = *p.Featured
	}
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty"`
}

func AvailabilityOf(stock int) Availability {
	status := "OUT_OF_STOCK"
	switch {
	case stock >= 5:
		status = "IN_STOCK"
	case stock > 0:
		status = "LOW_STOCK"
	}
	return Availability{Status: status, Qty: stock}
}
