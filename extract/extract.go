// Package extract locates links, metadata, and email addresses in raw
// HTML using selector configuration. All functions are pure over a
// parsed document; a selector that matches nothing yields an empty
// value, never an error.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Parse builds a queryable document from raw HTML.
func Parse(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// TextField returns the trimmed text of the first element matching sel,
// or an empty string when sel is unconfigured or matches nothing.
func TextField(doc *goquery.Document, sel string) string {
	if sel == "" {
		return ""
	}
	return strings.TrimSpace(doc.Find(sel).First().Text())
}
