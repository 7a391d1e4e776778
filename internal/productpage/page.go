// Package productpage holds the product detail page state: the shopper's attribute selection,
// quantity and delivery date, the variation they resolve to, and the add-to-cart and buy-now
// flows that act on them.
//
// A Page is built per request (or per CLI invocation) and is not safe for concurrent use.
package productpage

import (
	"context"
	"log/slog"

	"storefront/internal/catalog"
	"storefront/internal/model"
)

// User-facing validation messages.
const (
	MsgSelectAllOptions = "⚠️ You must select all options before adding to cart."
	MsgQuantityTooLow   = "⚠️ Quantity must be at least 1."
)

// Navigation targets.
const (
	CartPath     = "/cart"
	ProductsPath = "/products"
)

// Quantity input bounds offered by the form. Only the minimum is enforced on add.
const (
	MinQuantity = 1
	MaxQuantity = 10
)

// CartClient is the cart the page adds to.
type CartClient interface {
	// FetchCart reads the cart so the session exists before a mutation. The body is unused.
	FetchCart(ctx context.Context) error

	// AddItem adds the item. Any non-success outcome is an error.
	AddItem(ctx context.Context, item model.CartItemRequest) error
}

// Navigator moves the shopper to another page.
type Navigator interface {
	Push(path string)
}

// Availability reports remaining delivery quota.
type Availability interface {
	GlobalRemaining(ctx context.Context) int
	DailyRemaining(ctx context.Context, date string) int
}

// Deps are the page's collaborators. Navigator and Availability are optional.
type Deps struct {
	Cart         CartClient
	Navigator    Navigator
	Availability Availability

	// AttributeMode controls how the selection is written into add-item requests.
	// Defaults to catalog.LocalAttributes.
	AttributeMode catalog.AttributeMode

	Logger *slog.Logger
}

// Page is the product detail page controller.
type Page struct {
	product    *model.Product
	variations []model.Variation
	deps       Deps
	logger     *slog.Logger

	selection    catalog.Selection
	current      *model.Variation
	quantity     int
	deliveryDate string
	message      string
	addedSuccess bool
}

// New creates a page for product with its variations (empty for non-variable products).
// Quantity starts at 1 with nothing selected.
func New(product *model.Product, variations []model.Variation, deps Deps) *Page {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Page{
		product:    product,
		variations: variations,
		deps:       deps,
		logger:     logger,
		selection:  catalog.Selection{},
		quantity:   MinQuantity,
	}
}

// Product returns the product the page shows.
func (p *Page) Product() *model.Product { return p.product }

// Variations returns the product's variations.
func (p *Page) Variations() []model.Variation { return p.variations }

// SelectAttribute records option for the named attribute and re-resolves the current
// variation. Simple products never carry a current variation.
func (p *Page) SelectAttribute(name, option string) {
	p.selection = p.selection.With(name, option)
	if p.product.IsVariable() {
		p.current = catalog.ResolveVariation(p.selection, p.variations)
	}
}

// Selection returns the current selection. Callers must not modify it.
func (p *Page) Selection() catalog.Selection { return p.selection }

// Selected returns the option chosen for name, or "".
func (p *Page) Selected(name string) string { return p.selection[name] }

// CurrentVariation returns the resolved variation, or nil.
func (p *Page) CurrentVariation() *model.Variation { return p.current }

// SetQuantity stores the requested quantity. Out-of-range values are kept and rejected on add.
func (p *Page) SetQuantity(q int) { p.quantity = q }

// Quantity returns the requested quantity.
func (p *Page) Quantity() int { return p.quantity }

// SetDeliveryDate stores the chosen delivery date (YYYY-MM-DD).
func (p *Page) SetDeliveryDate(date string) { p.deliveryDate = date }

// DeliveryDate returns the chosen delivery date.
func (p *Page) DeliveryDate() string { return p.deliveryDate }

// Message returns the last validation message, or "".
func (p *Page) Message() string { return p.message }

// AddedSuccess reports whether the last add-to-cart succeeded.
func (p *Page) AddedSuccess() bool { return p.addedSuccess }

// AddToCart validates the page state and adds the item to the cart.
//
// Validation failures set Message and return false without touching the network.
// Cart failures are returned as errors and leave Message and AddedSuccess unchanged.
func (p *Page) AddToCart(ctx context.Context) (bool, error) {
	if p.product.IsVariable() && p.current == nil {
		p.message = MsgSelectAllOptions
		return false, nil
	}
	if p.quantity < MinQuantity {
		p.message = MsgQuantityTooLow
		return false, nil
	}

	item := model.CartItemRequest{
		ID:        p.product.ID,
		Quantity:  p.quantity,
		Variation: catalog.NormalizeAttributes(p.selection, p.deps.AttributeMode),
	}
	if p.current != nil {
		item.ID = p.current.ID
	}

	if err := p.deps.Cart.FetchCart(ctx); err != nil {
		return false, err
	}
	if err := p.deps.Cart.AddItem(ctx, item); err != nil {
		return false, err
	}

	p.logger.DebugContext(ctx, "added to cart",
		"product_id", p.product.ID,
		"item_id", item.ID,
		"quantity", item.Quantity,
	)
	p.addedSuccess = true
	return true, nil
}

// BuyNow adds to cart and then navigates to the cart page. Navigation happens whatever the
// outcome of the add; a cart error is still returned.
func (p *Page) BuyNow(ctx context.Context) error {
	_, err := p.AddToCart(ctx)
	if p.deps.Navigator != nil {
		p.deps.Navigator.Push(CartPath)
	}
	return err
}
