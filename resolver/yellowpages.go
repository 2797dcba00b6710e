package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/bmansouri/go-lead-scraper/config"
	"github.com/bmansouri/go-lead-scraper/extract"
	"github.com/bmansouri/go-lead-scraper/fetch"
	"github.com/bmansouri/go-lead-scraper/models"
)

// ErrMissingCategory means a listing-directory sector was invoked
// without the required category.
var ErrMissingCategory = errors.New("category not provided in configuration")

// YellowPages resolves profiles on listing-style directories in two flat
// passes: collect every profile URL across the paginated category
// listing, then visit each profile for its metadata. Profiles without an
// extractable company name are dropped.
type YellowPages struct {
	cfg     *config.SiteConfig
	session *fetch.Session
	limiter fetch.Limiter
	log     *slog.Logger
}

// NewYellowPages builds the listing resolver.
func NewYellowPages(cfg *config.SiteConfig, session *fetch.Session, limiter fetch.Limiter, log *slog.Logger) *YellowPages {
	if log == nil {
		log = slog.Default()
	}
	return &YellowPages{cfg: cfg, session: session, limiter: limiter, log: log}
}

// Resolve extracts all company profiles for the configured category.
func (r *YellowPages) Resolve(ctx context.Context) ([]models.ProfileRecord, error) {
	category := r.cfg.Category
	if category == "" {
		r.log.Error("category not provided in configuration")
		return nil, ErrMissingCategory
	}

	rc := r.cfg.RequestConfig(true)
	baseURL := strings.TrimRight(r.cfg.BaseURL, "/")

	profileURLs := make(map[string]struct{})

	for page := 1; page <= r.cfg.MaxPages; page++ {
		pageURL := fmt.Sprintf("%s/uae/%s?page=%d", baseURL, category, page)
		r.log.Info("fetching search page",
			slog.Int("page", page),
			slog.Int("pages", r.cfg.MaxPages),
			slog.String("url", pageURL),
		)

		html, err := r.session.Fetch(ctx, pageURL, rc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.log.Error("search page fetch failed", slog.String("url", pageURL), slog.Any("error", err))
			if werr := r.limiter.Wait(ctx); werr != nil {
				return nil, werr
			}
			continue
		}

		doc, err := extract.Parse(html)
		if err != nil {
			r.log.Warn("search page parse failed", slog.String("url", pageURL), slog.Any("error", err))
		} else {
			candidates := extract.ListingLinks(doc, baseURL, r.cfg.Selector("profile_links", ""))
			r.log.Info("candidate profile links on page",
				slog.Int("page", page),
				slog.Int("count", len(candidates)),
			)
			for _, u := range candidates {
				profileURLs[u] = struct{}{}
			}
			r.log.Info("unique profile links collected so far", slog.Int("count", len(profileURLs)))
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	r.log.Info("unique company profiles discovered",
		slog.Int("count", len(profileURLs)),
		slog.Int("pages", r.cfg.MaxPages),
	)
	if len(profileURLs) == 0 {
		return nil, nil
	}

	sorted := make([]string, 0, len(profileURLs))
	for u := range profileURLs {
		sorted = append(sorted, u)
	}
	sort.Strings(sorted)

	var records []models.ProfileRecord
	for i, profileURL := range sorted {
		r.log.Info("scraping profile page",
			slog.Int("index", i+1),
			slog.Int("total", len(sorted)),
			slog.String("url", profileURL),
		)

		html, err := r.session.Fetch(ctx, profileURL, rc)
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			r.log.Error("profile page fetch failed", slog.String("url", profileURL), slog.Any("error", err))
		} else if doc, perr := extract.Parse(html); perr == nil {
			meta := extract.ListingProfile(doc,
				r.cfg.Selector("company_name", ""),
				r.cfg.Selector("city", ""),
				r.cfg.Selector("website_button", ""),
			)
			if meta.Name == "" {
				r.log.Warn("could not extract company name, skipping profile",
					slog.String("url", profileURL),
				)
			} else {
				records = append(records, models.ProfileRecord{
					CompanyName: meta.Name,
					Country:     meta.City,
					ProfileURL:  profileURL,
					WebsiteURL:  meta.Website,
				})
			}
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return records, err
		}
	}

	return records, nil
}
