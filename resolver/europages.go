package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/bmansouri/go-lead-scraper/config"
	"github.com/bmansouri/go-lead-scraper/extract"
	"github.com/bmansouri/go-lead-scraper/fetch"
	"github.com/bmansouri/go-lead-scraper/models"
)

const (
	europagesDomainMarker = "europages."

	// Structural class signature of the location container on profile
	// pages; the country name sits in its second span.
	countryContainerClass = "flex gap-1 items-center mt-0.5"
)

// Europages resolves profiles on product-card style directories: search
// pages yield product links, each mapped back to its canonical company
// profile URL, with the first product seen per profile kept as a
// fallback data source.
type Europages struct {
	cfg     *config.SiteConfig
	session *fetch.Session
	limiter fetch.Limiter
	log     *slog.Logger
}

// NewEuropages builds the product-card resolver.
func NewEuropages(cfg *config.SiteConfig, session *fetch.Session, limiter fetch.Limiter, log *slog.Logger) *Europages {
	if log == nil {
		log = slog.Default()
	}
	return &Europages{cfg: cfg, session: session, limiter: limiter, log: log}
}

// Resolve walks the paginated search results, deduplicates profiles, and
// visits each one. A failed search page contributes no links; a failed
// profile visit still emits the profile with empty fields so coverage
// gaps stay visible.
func (r *Europages) Resolve(ctx context.Context) ([]models.ProfileRecord, error) {
	if r.cfg.SearchURL == "" {
		return nil, fmt.Errorf("search URL not configured")
	}

	rc := r.cfg.RequestConfig(false)
	baseURL := strings.TrimRight(r.cfg.BaseURL, "/")
	pages := BuildPages(r.cfg.SearchURL, r.cfg.MaxPages)

	var order []string
	sampleProduct := make(map[string]string)

	for i, pageURL := range pages {
		r.log.Info("fetching results page",
			slog.Int("page", i+1),
			slog.Int("pages", len(pages)),
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
			links := extract.ProductLinks(doc, baseURL,
				r.cfg.Selector("product_cards", ""),
				r.cfg.Selector("product_links", ""),
			)
			if len(links) == 0 {
				r.log.Warn("no product links found on page",
					slog.Int("page", i+1),
					slog.String("url", pageURL),
				)
			}
			for _, product := range links {
				profile, ok := extract.ProfileURL(product)
				if !ok {
					continue
				}
				if _, seen := sampleProduct[profile]; !seen {
					sampleProduct[profile] = product
					order = append(order, profile)
				}
			}
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	r.log.Info("unique company profiles discovered", slog.Int("count", len(order)))

	records := make([]models.ProfileRecord, 0, len(order))
	for i, profileURL := range order {
		r.log.Info("visiting profile",
			slog.Int("index", i+1),
			slog.Int("total", len(order)),
			slog.String("url", profileURL),
		)
		records = append(records, r.visitProfile(ctx, profileURL, sampleProduct[profileURL], rc))
		if err := r.limiter.Wait(ctx); err != nil {
			return records, err
		}
	}
	return records, nil
}

func (r *Europages) visitProfile(ctx context.Context, profileURL, productURL string, rc config.RequestConfig) models.ProfileRecord {
	var name, country, website string

	html, err := r.session.Fetch(ctx, profileURL, rc)
	if err != nil {
		r.log.Debug("profile fetch failed", slog.String("url", profileURL), slog.Any("error", err))
	} else if doc, perr := extract.Parse(html); perr == nil {
		name = extract.TextField(doc, r.cfg.Selector("company_name", ""))
		country = extract.Country(doc, countryContainerClass)
		website = extract.Website(doc, r.cfg.Selector("website_button", ""), europagesDomainMarker)
	}

	// The profile page may hide the website; a product page of the same
	// company often carries it, and fills any still-missing fields.
	if website == "" && productURL != "" {
		if html, ferr := r.session.Fetch(ctx, productURL, rc); ferr != nil {
			r.log.Debug("product fallback fetch failed", slog.String("url", productURL), slog.Any("error", ferr))
		} else if doc, perr := extract.Parse(html); perr == nil {
			website = extract.Website(doc, r.cfg.Selector("website_button", ""), europagesDomainMarker)
			if name == "" {
				name = extract.TextField(doc, r.cfg.Selector("company_name", ""))
			}
			if country == "" {
				country = extract.TextField(doc, r.cfg.Selector("country", ""))
			}
		}
	}

	// A website pointing back at the directory is no website at all.
	if website != "" {
		if parsed, perr := url.Parse(website); perr != nil || strings.Contains(parsed.Host, europagesDomainMarker) {
			website = ""
		}
	}

	return models.ProfileRecord{
		CompanyName: name,
		Country:     country,
		ProfileURL:  profileURL,
		WebsiteURL:  website,
	}
}
