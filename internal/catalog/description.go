package catalog

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText strips markup from a product description and decodes entities.
// Falls back to the raw input when it cannot be parsed.
func PlainText(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}
