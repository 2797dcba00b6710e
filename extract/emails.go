package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// emailRe is intentionally permissive: asset filenames and tracking IDs
// that look like addresses are expected to match here and are filtered
// downstream by the sanitizer.
var (
	emailRe  = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	mailtoRe = regexp.MustCompile(`(?i)mailto:([^?]+)`)
)

// Emails returns every email-looking token in the document: the union of
// pattern matches over the raw HTML and the address portion of mailto
// anchors (query string excluded). Results are trimmed, lower-cased, and
// deduplicated, in sorted order.
func Emails(html string) []string {
	if html == "" {
		return nil
	}

	found := make(map[string]struct{})
	add := func(email string) {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			found[email] = struct{}{}
		}
	}

	for _, m := range emailRe.FindAllString(html, -1) {
		add(m)
	}

	if doc, err := Parse(html); err == nil {
		doc.Find("a[href^='mailto:']").Each(func(_ int, a *goquery.Selection) {
			if m := mailtoRe.FindStringSubmatch(a.AttrOr("href", "")); m != nil {
				add(m[1])
			}
		})
	}

	out := make([]string, 0, len(found))
	for e := range found {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
