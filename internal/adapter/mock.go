package adapter

import (
	"context"

	"storefront/internal/model"
)

// Mock implements Store for testing.
// Each method can be configured via function fields.
type Mock struct {
	GetProductFunc     func(ctx context.Context, id int) (*model.Product, error)
	ListVariationsFunc func(ctx context.Context, productID int) ([]model.Variation, error)
	ListProductsFunc   func(ctx context.Context, page int) ([]model.Product, error)
	GetCartFunc        func(ctx context.Context, cartToken string) (*model.Cart, string, error)
	AddItemFunc        func(ctx context.Context, cartToken string, item model.CartItemRequest) (*model.Cart, string, error)
}

// GetProduct calls the configured GetProductFunc or returns a not found error.
func (m *Mock) GetProduct(ctx context.Context, id int) (*model.Product, error) {
	if m.GetProductFunc != nil {
		return m.GetProductFunc(ctx, id)
	}
	return nil, model.NewNotFoundError("product")
}

// ListVariations calls the configured ListVariationsFunc or returns no variations.
func (m *Mock) ListVariations(ctx context.Context, productID int) ([]model.Variation, error) {
	if m.ListVariationsFunc != nil {
		return m.ListVariationsFunc(ctx, productID)
	}
	return []model.Variation{}, nil
}

// ListProducts calls the configured ListProductsFunc or returns an empty page.
func (m *Mock) ListProducts(ctx context.Context, page int) ([]model.Product, error) {
	if m.ListProductsFunc != nil {
		return m.ListProductsFunc(ctx, page)
	}
	return []model.Product{}, nil
}

// GetCart calls the configured GetCartFunc or returns an empty cart, issuing "mock-token"
// when no token is given.
func (m *Mock) GetCart(ctx context.Context, cartToken string) (*model.Cart, string, error) {
	if m.GetCartFunc != nil {
		return m.GetCartFunc(ctx, cartToken)
	}
	if cartToken == "" {
		cartToken = "mock-token"
	}
	return &model.Cart{Items: []model.CartItem{}}, cartToken, nil
}

// AddItem calls the configured AddItemFunc or returns an internal error.
func (m *Mock) AddItem(ctx context.Context, cartToken string, item model.CartItemRequest) (*model.Cart, string, error) {
	if m.AddItemFunc != nil {
		return m.AddItemFunc(ctx, cartToken, item)
	}
	return nil, "", model.NewInternalError(nil)
}

// Verify Mock implements Store interface at compile time.
var _ Store = (*Mock)(nil)
