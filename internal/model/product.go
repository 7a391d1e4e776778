// Package model holds the storefront's domain types: catalog products and variations as the
// WooCommerce REST API returns them, cart requests, and the shared error type.
package model

// ProductType is the WooCommerce product kind.
type ProductType string

const (
	ProductSimple   ProductType = "simple"
	ProductGrouped  ProductType = "grouped"
	ProductExternal ProductType = "external"
	ProductVariable ProductType = "variable"
)

// Product is a catalog entity as returned by GET /wp-json/wc/v3/products/{id}.
// The page never mutates it.
type Product struct {
	ID                int                `json:"id"`
	Name              string             `json:"name"`
	Slug              string             `json:"slug"`
	Permalink         string             `json:"permalink"`
	Type              ProductType        `json:"type"`
	Status            string             `json:"status"`
	Featured          bool               `json:"featured"`
	Description       string             `json:"description"`
	ShortDescription  string             `json:"short_description"`
	SKU               string             `json:"sku"`
	Price             string             `json:"price"` // "12.50" - decimal string, may be empty
	RegularPrice      string             `json:"regular_price"`
	SalePrice         string             `json:"sale_price"`
	OnSale            bool               `json:"on_sale"`
	Purchasable       bool               `json:"purchasable"`
	ManageStock       bool               `json:"manage_stock"`
	StockQuantity     *int               `json:"stock_quantity"`
	StockStatus       string             `json:"stock_status"` // instock, outofstock, onbackorder
	SoldIndividually  bool               `json:"sold_individually"`
	Weight            string             `json:"weight"`
	Dimensions        Dimensions         `json:"dimensions"`
	Categories        []Term             `json:"categories"`
	Tags              []Term             `json:"tags"`
	Images            []Image            `json:"images"`
	Attributes        []ProductAttribute `json:"attributes"`
	DefaultAttributes []DefaultAttribute `json:"default_attributes"`
	Variations        []int              `json:"variations"` // variation IDs for variable products
	RelatedIDs        []int              `json:"related_ids"`
}

// Dimensions are decimal strings in the store's configured unit.
type Dimensions struct {
	Length string `json:"length"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// Term is a category or tag reference.
type Term struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Image is a product or variation image.
type Image struct {
	ID   int    `json:"id"`
	Src  string `json:"src"`
	Name string `json:"name"`
	Alt  string `json:"alt"`
}

// ProductAttribute is a declared attribute with its selectable options.
// Variation is true when the attribute participates in variation selection.
type ProductAttribute struct {
	ID        int      `json:"id"` // 0 for custom (local) attributes
	Name      string   `json:"name"`
	Position  int      `json:"position"`
	Visible   bool     `json:"visible"`
	Variation bool     `json:"variation"`
	Options   []string `json:"options"`
}

// DefaultAttribute is a preselected option for a variable product.
type DefaultAttribute struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Option string `json:"option"`
}

// IsVariable reports whether the product is sold through variations.
func (p *Product) IsVariable() bool {
	return p.Type == ProductVariable
}

// FirstImageSrc returns the src of the first product image, or "" when there are none.
func (p *Product) FirstImageSrc() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].Src
}

// Variation is one purchasable combination of attribute options.
type Variation struct {
	ID            int                  `json:"id"`
	SKU           string               `json:"sku"`
	Price         string               `json:"price"`
	RegularPrice  string               `json:"regular_price"`
	SalePrice     string               `json:"sale_price"`
	StockStatus   string               `json:"stock_status"`
	StockQuantity *int                 `json:"stock_quantity"`
	Image         *Image               `json:"image,omitempty"`
	Attributes    []VariationAttribute `json:"attributes"`
}

// VariationAttribute is one name/option pair a variation satisfies.
type VariationAttribute struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Option string `json:"option"`
}
