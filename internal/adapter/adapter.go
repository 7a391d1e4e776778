// Package adapter defines the interface between the storefront and its commerce backend.
package adapter

import (
	"context"

	"storefront/internal/model"
)

// Store abstracts the commerce backend the storefront reads its catalog from and keeps
// the shopper's cart in. The WooCommerce client is the production implementation.
//
// Cart methods take the shopper's cart token ("" for a first visit) and return the token
// the caller must keep for the next request.
type Store interface {
	// GetProduct fetches a single product by ID.
	GetProduct(ctx context.Context, id int) (*model.Product, error)

	// ListVariations fetches every variation of a variable product.
	// Returns an empty slice for products without variations.
	ListVariations(ctx context.Context, productID int) ([]model.Variation, error)

	// ListProducts returns one page of published products (1-based).
	ListProducts(ctx context.Context, page int) ([]model.Product, error)

	// GetCart reads the cart, creating the session when cartToken is empty.
	GetCart(ctx context.Context, cartToken string) (*model.Cart, string, error)

	// AddItem adds a product or variation to the cart.
	// A store refusal (stock, invalid variation) is reported as model.ErrCartRejected.
	AddItem(ctx context.Context, cartToken string, item model.CartItemRequest) (*model.Cart, string, error)
}
