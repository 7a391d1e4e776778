// Package catalog holds the pure product-page rules: matching an attribute selection to a
// variation, turning a selection into the cart's wire shape, and cleaning descriptions.
package catalog

import (
	"strings"

	"storefront/internal/model"
)

// Selection maps an attribute name to the chosen option, as picked in the page's selectors.
type Selection map[string]string

// With returns a copy of s with name set to option. The receiver is not modified.
func (s Selection) With(name, option string) Selection {
	next := make(Selection, len(s)+1)
	for k, v := range s {
		next[k] = v
	}
	next[name] = option
	return next
}

// ResolveVariation returns the first variation whose every attribute is satisfied by the
// selection: a non-empty selected option equal to the variation's option, ignoring case.
// Returns nil when no variation matches.
func ResolveVariation(sel Selection, variations []model.Variation) *model.Variation {
	for i := range variations {
		if satisfies(sel, variations[i].Attributes) {
			return &variations[i]
		}
	}
	return nil
}

func satisfies(sel Selection, attrs []model.VariationAttribute) bool {
	for _, a := range attrs {
		chosen := sel[a.Name]
		if chosen == "" || !strings.EqualFold(chosen, a.Option) {
			return false
		}
	}
	return true
}

// AllSelected reports whether every declared attribute of a variable product has a
// non-empty selection. Non-variable products are always complete.
func AllSelected(p *model.Product, sel Selection) bool {
	if !p.IsVariable() {
		return true
	}
	for _, attr := range p.Attributes {
		if sel[attr.Name] == "" {
			return false
		}
	}
	return true
}
