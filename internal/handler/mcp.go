// MCP transport handler for the storefront using the official MCP Go SDK.
// Exposes the product page flows as MCP tools so agents can browse and add to cart.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storefront/internal/catalog"
	"storefront/internal/model"
	"storefront/internal/productpage"
)

// === MCP Tool Input/Output Types ===

// ProductInput is the input schema for the get_product tool.
type ProductInput struct {
	ProductID int `json:"product_id" jsonschema:"WooCommerce product ID"`
}

// ProductOutput is a product with its variations (empty for non-variable products).
type ProductOutput struct {
	Product    *model.Product    `json:"product"`
	Variations []model.Variation `json:"variations"`
}

// ResolveInput is the input schema for the resolve_variation tool.
type ResolveInput struct {
	ProductID int               `json:"product_id" jsonschema:"WooCommerce product ID"`
	Selection map[string]string `json:"selection" jsonschema:"attribute name to chosen option"`
	Quantity  int               `json:"quantity,omitempty" jsonschema:"quantity for the total (default 1)"`
}

// ResolveOutput describes what the selection resolves to.
type ResolveOutput struct {
	Complete  bool                  `json:"complete"`
	Variation *model.Variation      `json:"variation,omitempty"`
	Price     string                `json:"price"`
	Total     string                `json:"total"`
	ImageSrc  string                `json:"image_src,omitempty"`
	CartItem  model.CartItemRequest `json:"cart_item"`
}

// AddToCartInput is the input schema for the add_to_cart tool.
type AddToCartInput struct {
	CartToken    string            `json:"cart_token,omitempty" jsonschema:"cart token from a previous call; omit to start a cart"`
	ProductID    int               `json:"product_id" jsonschema:"WooCommerce product ID"`
	Selection    map[string]string `json:"selection,omitempty" jsonschema:"attribute name to chosen option; required for variable products"`
	Quantity     int               `json:"quantity,omitempty" jsonschema:"quantity to add (default 1)"`
	DeliveryDate string            `json:"delivery_date,omitempty" jsonschema:"delivery date as YYYY-MM-DD"`
}

// AddToCartOutput reports the add outcome. Message is set when the page refused the add.
type AddToCartOutput struct {
	Added     bool        `json:"added"`
	Message   string      `json:"message,omitempty"`
	CartToken string      `json:"cart_token,omitempty"`
	Cart      *model.Cart `json:"cart,omitempty"`
}

// CartInput is the input schema for the get_cart tool.
type CartInput struct {
	CartToken string `json:"cart_token,omitempty" jsonschema:"cart token; omit to start a cart"`
}

// CartOutput is a cart with the token that addresses it.
type CartOutput struct {
	CartToken string      `json:"cart_token"`
	Cart      *model.Cart `json:"cart"`
}

// AvailabilityInput is the input schema for the delivery_availability tool.
type AvailabilityInput struct {
	Date string `json:"date,omitempty" jsonschema:"delivery date as YYYY-MM-DD"`
}

// AvailabilityOutput is the remaining delivery quota.
type AvailabilityOutput struct {
	GlobalRemaining int            `json:"global_remaining"`
	DateRemaining   *int           `json:"date_remaining,omitempty"`
	Daily           map[string]int `json:"daily,omitempty"`
}

// NewMCPServer creates an MCP server with the storefront tools registered.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "WooCommerce storefront. Look up a product, resolve its variation from an " +
				"attribute selection, then add it to a cart. Pass cart_token back to keep using the same cart.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_product",
		Description: "Get a product with its attributes and variations.",
	}, h.mcpGetProduct)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_variation",
		Description: "Resolve an attribute selection to a variation, with its price and the cart item it would add.",
	}, h.mcpResolveVariation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add a product to the cart. Variable products need every attribute selected.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the cart's items and totals.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delivery_availability",
		Description: "Get the remaining delivery quota, overall and for a date.",
	}, h.mcpDeliveryAvailability)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpGetProduct(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductInput,
) (*mcp.CallToolResult, ProductOutput, error) {
	page, err := h.mcpLoadPage(ctx, input.ProductID, productpage.Deps{})
	if err != nil {
		return nil, ProductOutput{}, err
	}

	variations := page.Variations()
	if variations == nil {
		variations = []model.Variation{}
	}
	return nil, ProductOutput{Product: page.Product(), Variations: variations}, nil
}

func (h *Handler) mcpResolveVariation(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ResolveInput,
) (*mcp.CallToolResult, ResolveOutput, error) {
	page, err := h.mcpLoadPage(ctx, input.ProductID, productpage.Deps{})
	if err != nil {
		return nil, ResolveOutput{}, err
	}
	selectAll(page, input.Selection)
	if input.Quantity != 0 {
		page.SetQuantity(input.Quantity)
	}

	out := ResolveOutput{
		Complete:  page.AttributesSelected(),
		Variation: page.CurrentVariation(),
		Price:     page.CurrentPrice(),
		Total:     page.DisplayTotal(),
		ImageSrc:  page.ImageSrc(),
		CartItem: model.CartItemRequest{
			ID:        page.Product().ID,
			Quantity:  page.Quantity(),
			Variation: catalog.NormalizeAttributes(page.Selection(), h.attributeMode),
		},
	}
	if out.Variation != nil {
		out.CartItem.ID = out.Variation.ID
	}
	return nil, out, nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AddToCartInput,
) (*mcp.CallToolResult, AddToCartOutput, error) {
	cart := productpage.NewStoreCartClient(h.store, input.CartToken)
	page, err := h.mcpLoadPage(ctx, input.ProductID, productpage.Deps{Cart: cart})
	if err != nil {
		return nil, AddToCartOutput{}, err
	}
	selectAll(page, input.Selection)
	if input.Quantity != 0 {
		page.SetQuantity(input.Quantity)
	}
	page.SetDeliveryDate(input.DeliveryDate)

	added, err := page.AddToCart(ctx)
	h.recordAdd(ctx, page, err)
	if err != nil {
		return nil, AddToCartOutput{}, h.mcpError(err)
	}

	return nil, AddToCartOutput{
		Added:     added,
		Message:   page.Message(),
		CartToken: cart.Token(),
		Cart:      cart.Cart(),
	}, nil
}

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CartInput,
) (*mcp.CallToolResult, CartOutput, error) {
	cart, token, err := h.store.GetCart(ctx, input.CartToken)
	if err != nil {
		return nil, CartOutput{}, h.mcpError(err)
	}
	return nil, CartOutput{CartToken: token, Cart: cart}, nil
}

func (h *Handler) mcpDeliveryAvailability(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AvailabilityInput,
) (*mcp.CallToolResult, AvailabilityOutput, error) {
	if h.availability == nil {
		return nil, AvailabilityOutput{}, fmt.Errorf("delivery availability is not configured")
	}

	snapshot, err := h.availability.Availability(ctx)
	if err != nil {
		return nil, AvailabilityOutput{}, h.mcpError(model.NewUpstreamError("delivery", err))
	}

	out := AvailabilityOutput{GlobalRemaining: snapshot.GlobalRemaining, Daily: snapshot.Daily}
	if input.Date != "" {
		remaining := snapshot.Remaining(input.Date)
		out.DateRemaining = &remaining
	}
	return nil, out, nil
}

// mcpLoadPage validates the product ID and loads its page.
func (h *Handler) mcpLoadPage(ctx context.Context, productID int, deps productpage.Deps) (*productpage.Page, error) {
	if productID < 1 {
		return nil, fmt.Errorf("product_id is required")
	}
	page, err := h.loadPage(ctx, fmt.Sprint(productID), deps)
	if err != nil {
		return nil, h.mcpError(err)
	}
	return page, nil
}

// selectAll applies a tool's selection to the page.
func selectAll(page *productpage.Page, selection map[string]string) {
	for name, option := range selection {
		page.SelectAttribute(name, option)
	}
}

// mcpError converts store errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
