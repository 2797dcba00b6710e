package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Default selectors for product-card style directories.
const (
	DefaultProductLinks  = "a[href*='/en/company/'][href*='/products/']"
	DefaultWebsiteButton = "a.website-button[href^='http']"
)

const (
	companyPathMarker  = "/en/company/"
	productsPathMarker = "/products/"
)

var profilePathRe = regexp.MustCompile(`(/en/company/[^/]+-\d+)`)

// ProductLinks collects absolute product URLs from a search results page.
// Anchors are gathered under cardSel containers when any match; otherwise
// every anchor matching linkSel is scanned directly. Only URLs carrying
// both the company and products path markers qualify.
func ProductLinks(doc *goquery.Document, baseURL, cardSel, linkSel string) []string {
	if linkSel == "" {
		linkSel = DefaultProductLinks
	}

	found := make(map[string]struct{})
	collect := func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}
		if strings.HasPrefix(href, "/") {
			href = joinURL(baseURL, href)
		}
		if strings.Contains(href, companyPathMarker) && strings.Contains(href, productsPathMarker) {
			found[href] = struct{}{}
		}
	}

	cards := doc.Find(cardSel)
	if cardSel != "" && cards.Length() > 0 {
		cards.Each(func(_ int, card *goquery.Selection) {
			card.Find(linkSel).Each(collect)
		})
	} else {
		doc.Find(linkSel).Each(collect)
	}

	out := make([]string, 0, len(found))
	for u := range found {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// ProfileURL reduces a product URL to its canonical company profile URL:
// scheme + host + the /en/company/<slug>-<id> path segment. Normalizing
// an already-canonical profile URL yields itself.
func ProfileURL(productURL string) (string, bool) {
	if productURL == "" {
		return "", false
	}
	parsed, err := url.Parse(productURL)
	if err != nil {
		return "", false
	}
	segment := profilePathRe.FindString(parsed.Path)
	if segment == "" {
		return "", false
	}
	return parsed.Scheme + "://" + parsed.Host + segment, true
}

// Website resolves the company's external site from a profile page.
// The configured website button wins; otherwise the first anchor whose
// host is not the directory's own (ownDomainMarker substring match).
// Protocol-relative URLs are completed with https.
func Website(doc *goquery.Document, buttonSel, ownDomainMarker string) string {
	if buttonSel == "" {
		buttonSel = DefaultWebsiteButton
	}

	if a := doc.Find(buttonSel).First(); a.Length() > 0 {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href != "" {
			if strings.HasPrefix(href, "//") {
				href = "https:" + href
			}
			return href
		}
	}

	var external string
	doc.Find("a[href^='http']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return true
		}
		parsed, err := url.Parse(href)
		if err != nil {
			return true
		}
		if ownDomainMarker != "" && strings.Contains(parsed.Host, ownDomainMarker) {
			return true
		}
		external = href
		return false
	})
	return external
}

// Country reads the country name from a profile page: the text of the
// second label inside the container carrying exactly containerClass.
func Country(doc *goquery.Document, containerClass string) string {
	if containerClass == "" {
		return ""
	}
	sel := fmt.Sprintf("div[class=%q]", containerClass)
	spans := doc.Find(sel).First().Find("span")
	if spans.Length() < 2 {
		return ""
	}
	return strings.TrimSpace(spans.Eq(1).Text())
}

func joinURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
