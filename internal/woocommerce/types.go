// Package woocommerce talks to a WooCommerce store: the Store API for the shopper's cart
// and the REST v3 API for catalog reads.
package woocommerce

// === Store API Response Types ===

// WooCartResponse is the Store API cart. Every cart endpoint (GET /cart, POST /cart/add-item)
// returns the full cart in this shape.
type WooCartResponse struct {
	Items         []WooCartItem  `json:"items"`
	ItemsCount    int            `json:"items_count"`
	Totals        WooTotals      `json:"totals"`
	NeedsShipping bool           `json:"needs_shipping"`
	NeedsPayment  bool           `json:"needs_payment"`
	Errors        []WooCartError `json:"errors,omitempty"`
}

// WooCartError is an error attached to cart state (e.g. an item went out of stock).
type WooCartError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WooCartItem is a line in the Store API cart.
type WooCartItem struct {
	Key       string            `json:"key"` // cart item key, not numeric
	ID        int               `json:"id"`  // product or variation ID
	Name      string            `json:"name"`
	Quantity  int               `json:"quantity"`
	Prices    WooCartItemPrices `json:"prices"`
	Totals    WooCartItemTotals `json:"totals"`
	Images    []WooImage        `json:"images,omitempty"`
	Variation []WooVariant      `json:"variation,omitempty"`
}

// WooCartItemPrices holds unit prices in minor units ("1250" = 12.50).
type WooCartItemPrices struct {
	Price             string `json:"price"`
	RegularPrice      string `json:"regular_price"`
	SalePrice         string `json:"sale_price"`
	CurrencyCode      string `json:"currency_code"`
	CurrencyMinorUnit int    `json:"currency_minor_unit"`
}

// WooCartItemTotals holds line totals in minor units.
type WooCartItemTotals struct {
	LineSubtotal      string `json:"line_subtotal"`
	LineTotal         string `json:"line_total"`
	CurrencyMinorUnit int    `json:"currency_minor_unit"`
}

// WooTotals are cart-level totals in minor units.
type WooTotals struct {
	CurrencyCode      string `json:"currency_code"`
	CurrencySymbol    string `json:"currency_symbol"`
	CurrencyMinorUnit int    `json:"currency_minor_unit"`
	TotalItems        string `json:"total_items"`
	TotalShipping     string `json:"total_shipping"`
	TotalTax          string `json:"total_tax"`
	TotalPrice        string `json:"total_price"`
}

// WooImage is an image attached to a cart item.
type WooImage struct {
	ID  int    `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// WooVariant is an attribute/value pair, used both in add-item requests and cart items.
type WooVariant struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

// === Store API Request Types ===

// WooCartAddRequest is the body of POST /cart/add-item.
type WooCartAddRequest struct {
	ID        int          `json:"id"`
	Quantity  int          `json:"quantity"`
	Variation []WooVariant `json:"variation,omitempty"`
}

// WooErrorResponse is the error body shared by the Store API and REST v3.
type WooErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status int `json:"status"`
	} `json:"data"`
}
