package productpage

import (
	"context"
	"strings"

	"storefront/internal/catalog"
	"storefront/internal/model"
)

// notAvailable is shown when no price is known.
const notAvailable = "N/A"

// CurrentPrice returns the variation price, else the product price, else "N/A".
func (p *Page) CurrentPrice() string {
	if p.current != nil && p.current.Price != "" {
		return p.current.Price
	}
	if p.product.Price != "" {
		return p.product.Price
	}
	return notAvailable
}

// DisplayTotal returns "$" + price × quantity with two decimals, or "N/A" when the price is
// not a number.
func (p *Page) DisplayTotal() string {
	total, ok := model.LineTotal(p.CurrentPrice(), p.quantity)
	if !ok {
		return notAvailable
	}
	return "$" + total
}

// ImageSrc returns the variation image, else the first product image, else "".
func (p *Page) ImageSrc() string {
	if p.current != nil && p.current.Image != nil && p.current.Image.Src != "" {
		return p.current.Image.Src
	}
	return p.product.FirstImageSrc()
}

// AttributesSelected reports whether every declared attribute has a selection.
// Always true for non-variable products.
func (p *Page) AttributesSelected() bool {
	return catalog.AllSelected(p.product, p.selection)
}

// Breadcrumb returns "Products > {first category} > {name}".
func (p *Page) Breadcrumb() string {
	parts := []string{"Products"}
	if len(p.product.Categories) > 0 && p.product.Categories[0].Name != "" {
		parts = append(parts, p.product.Categories[0].Name)
	}
	parts = append(parts, p.product.Name)
	return strings.Join(parts, " > ")
}

// PlainDescription returns the product description without markup.
func (p *Page) PlainDescription() string {
	return catalog.PlainText(p.product.Description)
}

// DailyLimit returns the remaining delivery quota for the chosen date, 0 when unknown.
func (p *Page) DailyLimit(ctx context.Context) int {
	if p.deps.Availability == nil || p.deliveryDate == "" {
		return 0
	}
	return p.deps.Availability.DailyRemaining(ctx, p.deliveryDate)
}

// GlobalLimit returns the overall remaining delivery quota, 0 when unknown.
func (p *Page) GlobalLimit(ctx context.Context) int {
	if p.deps.Availability == nil {
		return 0
	}
	return p.deps.Availability.GlobalRemaining(ctx)
}
