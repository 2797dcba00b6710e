// Package harvest crawls each profile's website for email addresses.
package harvest

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/bmansouri/go-lead-scraper/config"
	"github.com/bmansouri/go-lead-scraper/extract"
	"github.com/bmansouri/go-lead-scraper/fetch"
	"github.com/bmansouri/go-lead-scraper/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

const pageCacheSize = 512

// Harvester visits a bounded set of candidate pages per profile (home,
// contact, about, ...) and unions every email address found. Profiles
// sharing a website hit an LRU cache instead of refetching.
type Harvester struct {
	cfg     *config.SiteConfig
	session *fetch.Session
	limiter fetch.Limiter
	metrics *fetch.Metrics
	log     *slog.Logger
	cache   *lru.Cache[string, []string]
}

// New builds a harvester for one crawl run.
func New(cfg *config.SiteConfig, session *fetch.Session, limiter fetch.Limiter, metrics *fetch.Metrics, log *slog.Logger) (*Harvester, error) {
	if log == nil {
		log = slog.Default()
	}
	cache, err := lru.New[string, []string](pageCacheSize)
	if err != nil {
		return nil, err
	}
	return &Harvester{
		cfg:     cfg,
		session: session,
		limiter: limiter,
		metrics: metrics,
		log:     log,
		cache:   cache,
	}, nil
}

// Run harvests emails for every profile in input order, emitting one
// EmailRecord per (profile, email) pair with addresses sorted per
// profile. A profile yielding no emails is informational, not an error.
func (h *Harvester) Run(ctx context.Context, profiles []models.ProfileRecord) ([]models.EmailRecord, error) {
	rc := h.cfg.RequestConfig(false)

	var results []models.EmailRecord
	for i, profile := range profiles {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		name := strings.TrimSpace(profile.CompanyName)
		country := strings.TrimSpace(profile.Country)
		label := name
		if label == "" {
			label = profile.ProfileURL
		}
		h.log.Info("scraping emails",
			slog.Int("index", i+1),
			slog.Int("total", len(profiles)),
			slog.String("company", label),
		)

		found := make(map[string]struct{})
		for _, pageURL := range h.candidates(profile) {
			if cached, ok := h.cache.Get(pageURL); ok {
				for _, e := range cached {
					found[e] = struct{}{}
				}
				continue
			}

			html, err := h.session.Fetch(ctx, pageURL, rc)
			if err != nil {
				h.log.Debug("candidate page fetch failed",
					slog.String("url", pageURL),
					slog.Any("error", err),
				)
			} else {
				emails := extract.Emails(html)
				h.cache.Add(pageURL, emails)
				for _, e := range emails {
					found[e] = struct{}{}
				}
			}

			if err := h.limiter.Wait(ctx); err != nil {
				return results, err
			}
		}

		if len(found) == 0 {
			h.log.Info("no emails found", slog.String("company", label))
			continue
		}

		emails := make([]string, 0, len(found))
		for e := range found {
			emails = append(emails, e)
		}
		sort.Strings(emails)
		for _, e := range emails {
			results = append(results, models.EmailRecord{Name: name, Country: country, Email: e})
		}
		h.metrics.AddEmails(len(emails))
	}
	return results, nil
}

// candidates builds the bounded page list for one profile: the
// normalized website plus configured crawl paths, or the directory
// profile page alone when no website was resolved.
func (h *Harvester) candidates(profile models.ProfileRecord) []string {
	max := h.cfg.Email.MaxPagesPerSite
	var tries []string
	if profile.WebsiteURL != "" {
		site := fetch.NormalizeURL(profile.WebsiteURL)
		tries = append(tries, site)
		paths := h.cfg.Email.CrawlPaths
		if len(paths) > max {
			paths = paths[:max]
		}
		for _, path := range paths {
			if joined := joinCandidate(site, path); joined != "" {
				tries = append(tries, joined)
			}
		}
	} else {
		tries = append(tries, fetch.NormalizeURL(profile.ProfileURL))
	}
	if len(tries) > max {
		tries = tries[:max]
	}
	return tries
}

func joinCandidate(site, path string) string {
	base, err := url.Parse(site)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(path)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
