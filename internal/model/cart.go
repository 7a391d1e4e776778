package model

// VariationPair is the wire shape the Store API expects for each selected attribute.
type VariationPair struct {
	Attribute string `json:"attribute" validate:"required"`
	Value     string `json:"value" validate:"required"`
}

// CartItemRequest is the body of POST /api/store/cart/addItem.
// ID is the variation ID when one was resolved, otherwise the product ID.
type CartItemRequest struct {
	ID        int             `json:"id" validate:"gt=0"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
	Variation []VariationPair `json:"variation" validate:"dive"`
}

// Cart is the storefront's view of the store cart.
type Cart struct {
	Items         []CartItem `json:"items"`
	ItemCount     int        `json:"item_count"`
	Currency      string     `json:"currency"`
	TotalItems    string     `json:"total_items"` // formatted major units, e.g. "25.00"
	TotalPrice    string     `json:"total_price"`
	NeedsShipping bool       `json:"needs_shipping"`
	Errors        []string   `json:"errors,omitempty"`
}

// CartItem is a line in the cart.
type CartItem struct {
	Key       string          `json:"key"`
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice string          `json:"unit_price"`
	LineTotal string          `json:"line_total"`
	ImageSrc  string          `json:"image_src,omitempty"`
	Variation []VariationPair `json:"variation,omitempty"`
}
