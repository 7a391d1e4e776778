package productpage

import (
	"context"
	"testing"

	"storefront/internal/model"
)

type fakeAvailability struct {
	global int
	daily  map[string]int
}

func (f *fakeAvailability) GlobalRemaining(ctx context.Context) int { return f.global }

func (f *fakeAvailability) DailyRemaining(ctx context.Context, date string) int {
	return f.daily[date]
}

func TestCurrentPriceAndTotal(t *testing.T) {
	tests := []struct {
		name      string
		product   *model.Product
		selection [][2]string
		quantity  int
		wantPrice string
		wantTotal string
	}{
		{"product price", simpleProduct(), nil, 3, "3.00", "$9.00"},
		{"variation price", variableProduct(), [][2]string{{"Color", "Rojo"}, {"Size", "large"}}, 2, "18.00", "$36.00"},
		{"unresolved falls back to product", variableProduct(), [][2]string{{"Color", "Rojo"}}, 1, "12.50", "$12.50"},
		{"no price", &model.Product{ID: 1, Type: model.ProductSimple}, nil, 1, "N/A", "N/A"},
		{"fractional rounding", &model.Product{ID: 1, Type: model.ProductSimple, Price: "0.1"}, nil, 3, "0.1", "$0.30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := New(tt.product, roseVariations(), Deps{})
			for _, s := range tt.selection {
				page.SelectAttribute(s[0], s[1])
			}
			page.SetQuantity(tt.quantity)

			if got := page.CurrentPrice(); got != tt.wantPrice {
				t.Errorf("CurrentPrice() = %q, want %q", got, tt.wantPrice)
			}
			if got := page.DisplayTotal(); got != tt.wantTotal {
				t.Errorf("DisplayTotal() = %q, want %q", got, tt.wantTotal)
			}
		})
	}
}

func TestVariationWithEmptyPriceFallsBack(t *testing.T) {
	variations := []model.Variation{{
		ID:         201,
		Attributes: []model.VariationAttribute{{Name: "Color", Option: "Rojo"}, {Name: "Size", Option: "Small"}},
	}}
	page := New(variableProduct(), variations, Deps{})
	page.SelectAttribute("Color", "Rojo")
	page.SelectAttribute("Size", "Small")

	if got := page.CurrentPrice(); got != "12.50" {
		t.Errorf("CurrentPrice() = %q, want product price 12.50", got)
	}
}

func TestImageSrc(t *testing.T) {
	page := New(variableProduct(), roseVariations(), Deps{})
	if got := page.ImageSrc(); got != "https://shop.example.com/ramo.jpg" {
		t.Errorf("ImageSrc() = %q, want product image", got)
	}

	page.SelectAttribute("Color", "Rojo")
	page.SelectAttribute("Size", "Large")
	if got := page.ImageSrc(); got != "https://shop.example.com/ramo-grande.jpg" {
		t.Errorf("ImageSrc() = %q, want variation image", got)
	}

	// Variation without its own image uses the product's.
	page.SelectAttribute("Size", "Small")
	if got := page.ImageSrc(); got != "https://shop.example.com/ramo.jpg" {
		t.Errorf("ImageSrc() = %q, want product image", got)
	}

	if got := New(simpleProduct(), nil, Deps{}).ImageSrc(); got != "" {
		t.Errorf("ImageSrc() = %q, want empty", got)
	}
}

func TestAttributesSelected(t *testing.T) {
	page := New(variableProduct(), roseVariations(), Deps{})
	if page.AttributesSelected() {
		t.Error("AttributesSelected() = true with nothing selected")
	}
	page.SelectAttribute("Color", "Blanco")
	page.SelectAttribute("Size", "Large")
	if !page.AttributesSelected() {
		t.Error("AttributesSelected() = false with every attribute selected")
	}

	if !New(simpleProduct(), nil, Deps{}).AttributesSelected() {
		t.Error("simple product should always report attributes selected")
	}
}

func TestBreadcrumb(t *testing.T) {
	p := variableProduct()
	p.Categories = []model.Term{{Name: "Flores"}, {Name: "Regalos"}}

	if got := New(p, nil, Deps{}).Breadcrumb(); got != "Products > Flores > Ramo de rosas" {
		t.Errorf("Breadcrumb() = %q", got)
	}
	if got := New(simpleProduct(), nil, Deps{}).Breadcrumb(); got != "Products > Tarjeta" {
		t.Errorf("Breadcrumb() without category = %q", got)
	}
}

func TestPlainDescription(t *testing.T) {
	p := simpleProduct()
	p.Description = "<p>Tarjeta <strong>personalizada</strong> &amp; sobre</p>"

	if got := New(p, nil, Deps{}).PlainDescription(); got != "Tarjeta personalizada & sobre" {
		t.Errorf("PlainDescription() = %q", got)
	}
}

func TestLimits(t *testing.T) {
	avail := &fakeAvailability{global: 40, daily: map[string]int{"2026-02-14": 3}}
	page := New(simpleProduct(), nil, Deps{Availability: avail})

	if got := page.DailyLimit(context.Background()); got != 0 {
		t.Errorf("DailyLimit() without date = %d, want 0", got)
	}
	page.SetDeliveryDate("2026-02-14")
	if got := page.DailyLimit(context.Background()); got != 3 {
		t.Errorf("DailyLimit() = %d, want 3", got)
	}
	if got := page.GlobalLimit(context.Background()); got != 40 {
		t.Errorf("GlobalLimit() = %d, want 40", got)
	}

	bare := New(simpleProduct(), nil, Deps{})
	bare.SetDeliveryDate("2026-02-14")
	if bare.DailyLimit(context.Background()) != 0 || bare.GlobalLimit(context.Background()) != 0 {
		t.Error("limits without availability should be 0")
	}
}

func TestLimitsDoNotGateAdd(t *testing.T) {
	cart := &fakeCart{}
	avail := &fakeAvailability{global: 0, daily: map[string]int{}}
	page := New(simpleProduct(), nil, Deps{Cart: cart, Availability: avail})
	page.SetDeliveryDate("2026-02-14")

	if ok, err := page.AddToCart(context.Background()); !ok || err != nil {
		t.Errorf("AddToCart() = %v, %v; quota must not block the add", ok, err)
	}
}
