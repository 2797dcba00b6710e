package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Default selectors for listing-style directories.
const (
	DefaultListingLinks = "div.text-xl.font-bold a.flex[href^='/']"
	DefaultListingName  = "h2"
	DefaultListingCity  = "span.city"
	DefaultListingSite  = "button[title][data-url]"
)

// Listing profile paths look like /<slug>-<numeric-id>, anchored at the
// path start.
var listingPathRe = regexp.MustCompile(`^/[a-z0-9-]+-\d+`)

// ListingLinks collects absolute profile URLs from a listing search page.
// Hrefs must match the slug-with-trailing-id pattern; query strings are
// stripped. The result may contain duplicates across calls; callers
// accumulate into a set.
func ListingLinks(doc *goquery.Document, baseURL, linkSel string) []string {
	if linkSel == "" {
		linkSel = DefaultListingLinks
	}

	var out []string
	doc.Find(linkSel).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		if !listingPathRe.MatchString(href) {
			return
		}
		if i := strings.Index(href, "?"); i >= 0 {
			href = href[:i]
		}
		out = append(out, joinURL(baseURL, href))
	})
	return out
}

// ListingMeta holds the fields extracted from a listing profile page.
// Name is required by callers; City and Website may be empty.
type ListingMeta struct {
	Name    string
	City    string
	Website string
}

// ListingProfile extracts company metadata from a listing profile page.
// The website URL comes from the button's title attribute, not a link
// href.
func ListingProfile(doc *goquery.Document, nameSel, citySel, siteSel string) ListingMeta {
	if nameSel == "" {
		nameSel = DefaultListingName
	}
	if citySel == "" {
		citySel = DefaultListingCity
	}
	if siteSel == "" {
		siteSel = DefaultListingSite
	}

	var meta ListingMeta
	meta.Name = strings.TrimSpace(doc.Find(nameSel).First().Text())
	meta.City = strings.TrimSpace(doc.Find(citySel).First().Text())
	if button := doc.Find(siteSel).First(); button.Length() > 0 {
		meta.Website = strings.TrimSpace(button.AttrOr("title", ""))
	}
	return meta
}
