package woocommerce

import (
	"storefront/internal/model"
)

// CartToModel converts a Store API cart into the storefront's cart summary.
// Store API amounts are minor units; the summary carries formatted major units.
func CartToModel(cart *WooCartResponse) *model.Cart {
	if cart == nil {
		return &model.Cart{Items: []model.CartItem{}}
	}

	minor := cart.Totals.CurrencyMinorUnit
	out := &model.Cart{
		Items:         make([]model.CartItem, 0, len(cart.Items)),
		Currency:      cart.Totals.CurrencyCode,
		TotalItems:    model.FormatMinorUnits(cart.Totals.TotalItems, minor),
		TotalPrice:    model.FormatMinorUnits(cart.Totals.TotalPrice, minor),
		NeedsShipping: cart.NeedsShipping,
	}

	for _, item := range cart.Items {
		out.Items = append(out.Items, cartItemToModel(&item))
		out.ItemCount += item.Quantity
	}

	for _, e := range cart.Errors {
		out.Errors = append(out.Errors, e.Message)
	}

	return out
}

func cartItemToModel(item *WooCartItem) model.CartItem {
	out := model.CartItem{
		Key:       item.Key,
		ID:        item.ID,
		Name:      item.Name,
		Quantity:  item.Quantity,
		UnitPrice: model.FormatMinorUnits(item.Prices.Price, item.Prices.CurrencyMinorUnit),
		LineTotal: model.FormatMinorUnits(item.Totals.LineTotal, item.Totals.CurrencyMinorUnit),
	}
	if len(item.Images) > 0 {
		out.ImageSrc = item.Images[0].Src
	}
	for _, v := range item.Variation {
		out.Variation = append(out.Variation, model.VariationPair{Attribute: v.Attribute, Value: v.Value})
	}
	return out
}

// addRequestFromModel maps the storefront's add-item request to the Store API body.
func addRequestFromModel(item model.CartItemRequest) WooCartAddRequest {
	req := WooCartAddRequest{ID: item.ID, Quantity: item.Quantity}
	for _, v := range item.Variation {
		req.Variation = append(req.Variation, WooVariant{Attribute: v.Attribute, Value: v.Value})
	}
	return req
}
