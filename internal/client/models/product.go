package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/dmitrijs2005/storefront/internal/common"
)

type Category string

const (
	CategoryMen     Category = "men"
	CategoryWomen   Category = "women"
	CategoryGeneral Category = "general"
)

var categoryLabels = map[Category]string{
	CategoryMen:     "Men's",
	CategoryWomen:   "Women's",
	CategoryGeneral: "General",
}

// Categories lists the accepted categories in display order.
func Categories() []Category {
	return []Category{CategoryMen, CategoryWomen, CategoryGeneral}
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label is the human readable name; unknown categories fall back to General.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return categoryLabels[CategoryGeneral]
}

// Product is owned by the server; the client only holds transient copies.
type Product struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	InStock     bool     `json:"in_stock"`
	ImageURL    string   `json:"image_url,omitempty"`
	Category    Category `json:"category"`
}

// StockLabel renders InStock for listings.
func (p Product) StockLabel() string {
	if p.InStock {
		return "In Stock"
	}
	return "Out of Stock"
}

// FormatPrice renders the price with two decimals.
func (p Product) FormatPrice() string {
	return fmt.Sprintf("$%.2f", p.Price)
}

// Input converts a fetched product into an edit draft.
func (p Product) Input() ProductInput {
	inStock := p.InStock
	return ProductInput{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		InStock:     &inStock,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
	}
}

// ProductInput is the create/update body. A nil InStock is sent as true and
// an empty Category as general, matching the server defaults.
type ProductInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	InStock     *bool    `json:"in_stock,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Category    Category `json:"category,omitempty"`
}

// Normalize trims text fields and fills defaults.
func (in ProductInput) Normalize() ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.InStock == nil {
		t := true
		in.InStock = &t
	}
	if in.Category == "" {
		in.Category = CategoryGeneral
	}
	return in
}

// Validate checks a normalized input. op names the calling operation.
func (in ProductInput) Validate(op string) error {
	if strings.TrimSpace(in.Name) == "" {
		return common.NewValidationError(op, "Product name is required")
	}
	if math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
		return common.NewValidationError(op, "Price must be a number")
	}
	if in.Price <= 0 {
		return common.NewValidationError(op, "Price must be greater than 0")
	}
	if in.Category != "" && !in.Category.Valid() {
		return common.NewValidationError(op, fmt.Sprintf("Unknown category %q", in.Category))
	}
	return nil
}

// DeleteResponse is returned by DELETE /products/:id.
type DeleteResponse struct {
	Message string `json:"message"`
}
