// Package pipeline orchestrates a full crawl run and persists its
// artifacts.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bmansouri/go-lead-scraper/config"
	"github.com/bmansouri/go-lead-scraper/fetch"
	"github.com/bmansouri/go-lead-scraper/harvest"
	"github.com/bmansouri/go-lead-scraper/models"
	"github.com/bmansouri/go-lead-scraper/resolver"
	"github.com/bmansouri/go-lead-scraper/sanitize"
)

// Runner wires resolver, harvester, sanitizer, and writer into one run.
type Runner struct {
	cfg       *config.SiteConfig
	resolver  resolver.ProfileResolver
	harvester *harvest.Harvester
	writer    OutputWriter
	session   *fetch.Session
	metrics   *fetch.Metrics
	log       *slog.Logger

	// SkipEmails stops the run after profile and link extraction.
	SkipEmails bool
}

// NewRunner builds a runner for one sector crawl.
func NewRunner(cfg *config.SiteConfig, res resolver.ProfileResolver, h *harvest.Harvester, writer OutputWriter, session *fetch.Session, metrics *fetch.Metrics, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		cfg:       cfg,
		resolver:  res,
		harvester: h,
		writer:    writer,
		session:   session,
		metrics:   metrics,
		log:       log,
	}
}

// Run executes resolve -> checkpoint -> harvest -> clean -> persist.
// Resolver failures are fatal; a failing email stage degrades to
// whatever partial records it produced rather than discarding the
// profile and link output already computed.
func (r *Runner) Run(ctx context.Context) (*models.CrawlResult, error) {
	start := time.Now()

	profiles, err := r.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve profiles: %w", err)
	}
	r.log.Info("profiles extracted", slog.Int("count", len(profiles)))
	r.metrics.AddProfiles(len(profiles))

	if err := r.writer.WriteProfiles(profiles); err != nil {
		return nil, fmt.Errorf("write profiles: %w", err)
	}

	links := personalSites(profiles)
	if err := r.writer.WriteLinks(links); err != nil {
		return nil, fmt.Errorf("write links: %w", err)
	}
	r.log.Info("personal websites saved", slog.Int("count", len(links)))

	var raw []models.EmailRecord
	if r.SkipEmails {
		r.log.Info("email harvesting skipped, stopping after link extraction")
	} else {
		raw, err = r.harvester.Run(ctx, profiles)
		if err != nil {
			r.log.Error("email scraping failed, keeping partial results", slog.Any("error", err))
		}
	}

	clean := sanitize.Clean(raw, r.cfg.IgnoreDomainSet())
	if !r.SkipEmails {
		if err := r.writer.WriteEmails(clean); err != nil {
			return nil, fmt.Errorf("write emails: %w", err)
		}
		r.log.Info("clean email records saved", slog.Int("raw", len(raw)), slog.Int("clean", len(clean)))
	}

	return &models.CrawlResult{
		StartTime:    start,
		EndTime:      time.Now(),
		ProfileCount: len(profiles),
		RawEmails:    len(raw),
		CleanEmails:  len(clean),
		RequestCount: r.session.RequestCount(),
		RetryCount:   r.session.RetryCount(),
		ErrorCount:   r.session.ErrorCount(),
		FailedURLs:   r.session.FailedURLs(),
		ErrorsByType: r.session.ErrorsByType(),
	}, nil
}

// personalSites returns the normalized, deduplicated, sorted external
// websites across all profiles.
func personalSites(profiles []models.ProfileRecord) []string {
	set := make(map[string]struct{})
	for _, p := range profiles {
		if p.WebsiteURL == "" {
			continue
		}
		if u := fetch.NormalizeURL(p.WebsiteURL); u != "" {
			set[u] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
