package catalog

import (
	"regexp"
	"sort"
	"strings"

	"storefront/internal/model"
)

// AttributeMode selects how selection keys and values are written for the Store API.
type AttributeMode int

const (
	// LocalAttributes passes custom (per-product) attribute names and option labels through.
	LocalAttributes AttributeMode = iota

	// GlobalAttributes writes taxonomy slugs: "Sabor" → "pa_sabor",
	// "Chocolate Blanco" → "chocolate-blanco".
	GlobalAttributes
)

// globalPrefix marks a taxonomy-backed attribute in WooCommerce.
const globalPrefix = "pa_"

// whitespaceRun also matches Unicode space separators such as NBSP.
var whitespaceRun = regexp.MustCompile(`[\s\p{Zs}]+`)

// NormalizeAttributes converts a selection into the add-item variation list.
// Pairs are ordered by attribute name. Attributes with an empty option are left out.
func NormalizeAttributes(sel Selection, mode AttributeMode) []model.VariationPair {
	names := make([]string, 0, len(sel))
	for name, option := range sel {
		if option == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]model.VariationPair, 0, len(names))
	for _, name := range names {
		attribute, value := name, sel[name]
		if mode == GlobalAttributes {
			attribute = globalPrefix + slugify(attribute)
			value = slugify(value)
		}
		pairs = append(pairs, model.VariationPair{Attribute: attribute, Value: value})
	}
	return pairs
}

// slugify lower-cases s and replaces each run of whitespace or space separators with a
// single hyphen.
// Leading and trailing whitespace become hyphens too; WooCommerce term slugs never have them.
func slugify(s string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(s), "-")
}
