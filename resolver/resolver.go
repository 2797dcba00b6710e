// Package resolver turns paginated directory search results into
// company profile records.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bmansouri/go-lead-scraper/config"
	"github.com/bmansouri/go-lead-scraper/fetch"
	"github.com/bmansouri/go-lead-scraper/models"
)

// ProfileResolver extracts company profiles from one directory site.
type ProfileResolver interface {
	Resolve(ctx context.Context) ([]models.ProfileRecord, error)
}

// ForSector picks the resolver variant for a sector key.
func ForSector(key string, cfg *config.SiteConfig, session *fetch.Session, limiter fetch.Limiter, log *slog.Logger) ProfileResolver {
	if strings.Contains(key, "yellowpages") {
		return NewYellowPages(cfg, session, limiter, log)
	}
	return NewEuropages(cfg, session, limiter, log)
}

// BuildPages returns the ordered paginated search URLs: the search URL
// itself, then /page/N variants for pages 2..maxPages. A query string on
// the search URL is preserved on every page.
func BuildPages(searchURL string, maxPages int) []string {
	pages := []string{searchURL}
	if prefix, qs, ok := strings.Cut(searchURL, "?"); ok {
		for i := 2; i <= maxPages; i++ {
			pages = append(pages, fmt.Sprintf("%s/page/%d?%s", prefix, i, qs))
		}
	} else {
		for i := 2; i <= maxPages; i++ {
			pages = append(pages, fmt.Sprintf("%s/page/%d", searchURL, i))
		}
	}
	return pages
}
