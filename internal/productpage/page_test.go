package productpage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"storefront/internal/catalog"
	"storefront/internal/model"
)

// fakeCart records calls and can fail either step.
type fakeCart struct {
	calls    []string
	added    []model.CartItemRequest
	fetchErr error
	addErr   error
}

func (f *fakeCart) FetchCart(ctx context.Context) error {
	f.calls = append(f.calls, "fetch")
	return f.fetchErr
}

func (f *fakeCart) AddItem(ctx context.Context, item model.CartItemRequest) error {
	f.calls = append(f.calls, "add")
	f.added = append(f.added, item)
	return f.addErr
}

type fakeNavigator struct{ pushed []string }

func (f *fakeNavigator) Push(path string) { f.pushed = append(f.pushed, path) }

func variableProduct() *model.Product {
	return &model.Product{
		ID:    42,
		Name:  "Ramo de rosas",
		Type:  model.ProductVariable,
		Price: "12.50",
		Attributes: []model.ProductAttribute{
			{Name: "Color", Variation: true, Options: []string{"Rojo", "Blanco"}},
			{Name: "Size", Variation: true, Options: []string{"Small", "Large"}},
		},
		Images: []model.Image{{Src: "https://shop.example.com/ramo.jpg"}},
	}
}

func roseVariations() []model.Variation {
	return []model.Variation{
		{
			ID: 101, Price: "12.50",
			Attributes: []model.VariationAttribute{{Name: "Color", Option: "Rojo"}, {Name: "Size", Option: "small"}},
		},
		{
			ID: 102, Price: "18.00",
			Image:      &model.Image{Src: "https://shop.example.com/ramo-grande.jpg"},
			Attributes: []model.VariationAttribute{{Name: "Color", Option: "Rojo"}, {Name: "Size", Option: "large"}},
		},
	}
}

func simpleProduct() *model.Product {
	return &model.Product{ID: 7, Name: "Tarjeta", Type: model.ProductSimple, Price: "3.00"}
}

func TestAddToCartVariableRequiresResolvedVariation(t *testing.T) {
	tests := []struct {
		name      string
		selection map[string]string
	}{
		{"nothing selected", nil},
		{"partial selection", map[string]string{"Color": "Rojo"}},
		{"no matching variation", map[string]string{"Color": "Blanco", "Size": "Large"}},
		{"empty option", map[string]string{"Color": "Rojo", "Size": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := &fakeCart{}
			page := New(variableProduct(), roseVariations(), Deps{Cart: cart})
			for name, option := range tt.selection {
				page.SelectAttribute(name, option)
			}

			ok, err := page.AddToCart(context.Background())
			if err != nil || ok {
				t.Fatalf("AddToCart() = %v, %v; want false, nil", ok, err)
			}
			if page.Message() != MsgSelectAllOptions {
				t.Errorf("Message = %q, want %q", page.Message(), MsgSelectAllOptions)
			}
			if len(cart.calls) != 0 {
				t.Errorf("cart calls = %v, want none", cart.calls)
			}
			if page.AddedSuccess() {
				t.Error("AddedSuccess = true after validation failure")
			}
		})
	}
}

func TestAddToCartVariableResolved(t *testing.T) {
	cart := &fakeCart{}
	page := New(variableProduct(), roseVariations(), Deps{Cart: cart})
	page.SelectAttribute("Color", "Rojo")
	page.SelectAttribute("Size", "Large")
	page.SetQuantity(2)

	if v := page.CurrentVariation(); v == nil || v.ID != 102 {
		t.Fatalf("CurrentVariation = %v, want 102", v)
	}

	ok, err := page.AddToCart(context.Background())
	if err != nil || !ok {
		t.Fatalf("AddToCart() = %v, %v; want true, nil", ok, err)
	}

	if len(cart.calls) != 2 || cart.calls[0] != "fetch" || cart.calls[1] != "add" {
		t.Errorf("cart calls = %v, want [fetch add]", cart.calls)
	}
	got := cart.added[0]
	if got.ID != 102 || got.Quantity != 2 {
		t.Errorf("added id=%d qty=%d, want 102/2", got.ID, got.Quantity)
	}
	want := []model.VariationPair{{Attribute: "Color", Value: "Rojo"}, {Attribute: "Size", Value: "Large"}}
	if len(got.Variation) != len(want) {
		t.Fatalf("Variation = %v, want %v", got.Variation, want)
	}
	for i := range want {
		if got.Variation[i] != want[i] {
			t.Errorf("Variation[%d] = %v, want %v", i, got.Variation[i], want[i])
		}
	}
	if !page.AddedSuccess() {
		t.Error("AddedSuccess = false after successful add")
	}
	if page.Message() != "" {
		t.Errorf("Message = %q, want empty", page.Message())
	}
}

func TestAddToCartGlobalAttributes(t *testing.T) {
	cart := &fakeCart{}
	page := New(variableProduct(), roseVariations(), Deps{Cart: cart, AttributeMode: catalog.GlobalAttributes})
	page.SelectAttribute("Color", "Rojo")
	page.SelectAttribute("Size", "Small")

	if _, err := page.AddToCart(context.Background()); err != nil {
		t.Fatalf("AddToCart() error = %v", err)
	}
	if got := cart.added[0].Variation[0]; got.Attribute != "pa_color" || got.Value != "rojo" {
		t.Errorf("Variation[0] = %v, want pa_color=rojo", got)
	}
}

func TestAddToCartAnyAttributeOmitsEmptyOption(t *testing.T) {
	// Variation 201 applies to any size, so WooCommerce lists only its color.
	variations := []model.Variation{
		{ID: 201, Price: "12.50", Attributes: []model.VariationAttribute{{Name: "Color", Option: "Blanco"}}},
	}
	cart := &fakeCart{}
	page := New(variableProduct(), variations, Deps{Cart: cart})
	page.SelectAttribute("Color", "Blanco")
	page.SelectAttribute("Size", "")

	ok, err := page.AddToCart(context.Background())
	if err != nil || !ok {
		t.Fatalf("AddToCart() = %v, %v; want true, nil", ok, err)
	}
	got := cart.added[0]
	if got.ID != 201 {
		t.Errorf("added id = %d, want 201", got.ID)
	}
	want := []model.VariationPair{{Attribute: "Color", Value: "Blanco"}}
	if len(got.Variation) != 1 || got.Variation[0] != want[0] {
		t.Errorf("Variation = %v, want %v", got.Variation, want)
	}
}

func TestAddToCartSimpleProductIgnoresSelection(t *testing.T) {
	cart := &fakeCart{}
	page := New(simpleProduct(), nil, Deps{Cart: cart})
	page.SelectAttribute("Anything", "goes")

	if page.CurrentVariation() != nil {
		t.Error("simple product should never resolve a variation")
	}

	ok, err := page.AddToCart(context.Background())
	if err != nil || !ok {
		t.Fatalf("AddToCart() = %v, %v; want true, nil", ok, err)
	}
	if cart.added[0].ID != 7 {
		t.Errorf("added id = %d, want product id 7", cart.added[0].ID)
	}
}

func TestAddToCartQuantity(t *testing.T) {
	for _, q := range []int{0, -1} {
		cart := &fakeCart{}
		page := New(simpleProduct(), nil, Deps{Cart: cart})
		page.SetQuantity(q)

		ok, err := page.AddToCart(context.Background())
		if ok || err != nil {
			t.Errorf("quantity %d: AddToCart() = %v, %v; want false, nil", q, ok, err)
		}
		if page.Message() != MsgQuantityTooLow {
			t.Errorf("quantity %d: Message = %q", q, page.Message())
		}
		if len(cart.calls) != 0 {
			t.Errorf("quantity %d: cart calls = %v, want none", q, cart.calls)
		}
	}
}

func TestAddToCartSelectionCheckedBeforeQuantity(t *testing.T) {
	page := New(variableProduct(), roseVariations(), Deps{Cart: &fakeCart{}})
	page.SetQuantity(0)

	page.AddToCart(context.Background())
	if page.Message() != MsgSelectAllOptions {
		t.Errorf("Message = %q, want selection message first", page.Message())
	}
}

func TestAddToCartErrors(t *testing.T) {
	addErr := model.NewCartRejectedError("woocommerce_rest_cart_product_no_stock", "Out of stock")

	tests := []struct {
		name      string
		cart      *fakeCart
		wantCalls int
	}{
		{"fetch fails", &fakeCart{fetchErr: errors.New("connection refused")}, 1},
		{"add fails", &fakeCart{addErr: addErr}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := New(simpleProduct(), nil, Deps{Cart: tt.cart})

			ok, err := page.AddToCart(context.Background())
			if ok || err == nil {
				t.Fatalf("AddToCart() = %v, %v; want false and an error", ok, err)
			}
			if len(tt.cart.calls) != tt.wantCalls {
				t.Errorf("cart calls = %v", tt.cart.calls)
			}
			if page.Message() != "" {
				t.Errorf("Message = %q, errors must not become messages", page.Message())
			}
			if page.AddedSuccess() {
				t.Error("AddedSuccess = true after error")
			}
		})
	}
}

func TestAddToCartIgnoresCartReadStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"server error", http.StatusInternalServerError},
		{"bad gateway", http.StatusBadGateway},
		{"not found", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var adds atomic.Int32
			mux := http.NewServeMux()
			mux.HandleFunc("GET "+CartAPIPath, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"code":"UPSTREAM_ERROR","message":"WooCommerce request failed"}}`))
			})
			mux.HandleFunc("POST "+AddItemAPIPath, func(w http.ResponseWriter, r *http.Request) {
				adds.Add(1)
				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(model.Cart{ItemCount: 1})
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			client, err := NewHTTPCartClient(srv.URL, nil)
			if err != nil {
				t.Fatalf("NewHTTPCartClient() error = %v", err)
			}
			page := New(simpleProduct(), nil, Deps{Cart: client})

			ok, err := page.AddToCart(context.Background())
			if !ok || err != nil {
				t.Fatalf("AddToCart() = %v, %v; want true, nil", ok, err)
			}
			if adds.Load() != 1 {
				t.Errorf("add-item requests = %d, want 1", adds.Load())
			}
			if !page.AddedSuccess() {
				t.Error("AddedSuccess = false after a successful add")
			}
		})
	}
}

func TestBuyNowAlwaysNavigatesToCart(t *testing.T) {
	tests := []struct {
		name    string
		product *model.Product
		cart    *fakeCart
		wantErr bool
	}{
		{"success", simpleProduct(), &fakeCart{}, false},
		{"validation failure", variableProduct(), &fakeCart{}, false},
		{"add error", simpleProduct(), &fakeCart{addErr: errors.New("502")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := &fakeNavigator{}
			page := New(tt.product, roseVariations(), Deps{Cart: tt.cart, Navigator: nav})

			err := page.BuyNow(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("BuyNow() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(nav.pushed) != 1 || nav.pushed[0] != CartPath {
				t.Errorf("pushed = %v, want [%s]", nav.pushed, CartPath)
			}
		})
	}
}

func TestSelectAttributeCaseInsensitive(t *testing.T) {
	page := New(variableProduct(), roseVariations(), Deps{Cart: &fakeCart{}})
	page.SelectAttribute("Color", "ROJO")
	page.SelectAttribute("Size", "LARGE")

	if v := page.CurrentVariation(); v == nil || v.ID != 102 {
		t.Errorf("CurrentVariation = %v, want 102", v)
	}

	// Changing a selection re-resolves.
	page.SelectAttribute("Size", "small")
	if v := page.CurrentVariation(); v == nil || v.ID != 101 {
		t.Errorf("CurrentVariation = %v, want 101", v)
	}

	page.SelectAttribute("Color", "Blanco")
	if page.CurrentVariation() != nil {
		t.Error("CurrentVariation should clear when the selection no longer matches")
	}
}
