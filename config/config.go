// Package config loads and validates per-sector crawl configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RequestConfig is the immutable per-call fetch configuration.
type RequestConfig struct {
	Timeout       time.Duration
	Retries       int
	BackoffFactor float64
	Headers       map[string]string
	// StrictStatus treats any non-2xx response as a retryable failure.
	// When false only 5xx responses fail; 4xx bodies are returned as-is.
	StrictStatus bool
}

// EmailConfig controls the email harvesting stage.
type EmailConfig struct {
	CrawlPaths      []string `yaml:"crawl_paths"`
	MaxPagesPerSite int      `yaml:"max_pages_per_site"`
	IgnoreDomains   []string `yaml:"ignore_domains"`
}

// SiteConfig describes one directory sector: where to search, how to
// locate fields, and how politely to fetch.
type SiteConfig struct {
	BaseURL       string            `yaml:"base_url"`
	SearchURL     string            `yaml:"search_url"`
	MaxPages      int               `yaml:"max_pages"`
	Category      string            `yaml:"category"`
	Selectors     map[string]string `yaml:"selectors"`
	TimeoutSec    float64           `yaml:"timeout"`
	Retries       int               `yaml:"retries"`
	BackoffFactor float64           `yaml:"backoff_factor"`
	MinDelaySec   float64           `yaml:"min_delay"`
	MaxDelaySec   float64           `yaml:"max_delay"`
	Headers       map[string]string `yaml:"headers"`
	Email         EmailConfig       `yaml:"email"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123 Safari/537.36"

// ApplyDefaults fills unset fields with conservative values.
func (c *SiteConfig) ApplyDefaults() {
	if c.MaxPages == 0 {
		c.MaxPages = 1
	}
	if c.TimeoutSec == 0 {
		c.TimeoutSec = 25
	}
	if c.Retries == 0 {
		c.Retries = 3
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = 1.8
	}
	if c.MinDelaySec == 0 {
		c.MinDelaySec = 1.0
	}
	if c.MaxDelaySec == 0 {
		c.MaxDelaySec = 2.0
	}
	if c.Headers == nil {
		c.Headers = map[string]string{
			"User-Agent":      defaultUserAgent,
			"Accept-Language": "en-US,en;q=0.9",
		}
	}
	if len(c.Email.CrawlPaths) == 0 {
		c.Email.CrawlPaths = []string{"/", "/contact", "/contact-us", "/about", "/impressum"}
	}
	if c.Email.MaxPagesPerSite == 0 {
		c.Email.MaxPagesPerSite = 3
	}
}

// Validate ensures the configuration values are coherent.
func (c *SiteConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.TimeoutSec <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Retries < 1 {
		return fmt.Errorf("retries must be at least 1")
	}
	if c.BackoffFactor <= 1 {
		return fmt.Errorf("backoff factor must be greater than 1")
	}
	if c.MinDelaySec < 0 {
		return fmt.Errorf("min delay cannot be negative")
	}
	if c.MaxDelaySec < c.MinDelaySec {
		return fmt.Errorf("max delay (%v) cannot be below min delay (%v)", c.MaxDelaySec, c.MinDelaySec)
	}
	if c.Email.MaxPagesPerSite < 1 {
		return fmt.Errorf("email max pages per site must be positive")
	}
	return nil
}

// Timeout returns the per-request timeout as a duration.
func (c *SiteConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec * float64(time.Second))
}

// MinDelay returns the lower politeness-delay bound.
func (c *SiteConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelaySec * float64(time.Second))
}

// MaxDelay returns the upper politeness-delay bound.
func (c *SiteConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelaySec * float64(time.Second))
}

// RequestConfig derives the immutable fetch configuration for this site.
func (c *SiteConfig) RequestConfig(strict bool) RequestConfig {
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		headers[k] = v
	}
	return RequestConfig{
		Timeout:       c.Timeout(),
		Retries:       c.Retries,
		BackoffFactor: c.BackoffFactor,
		Headers:       headers,
		StrictStatus:  strict,
	}
}

// Selector returns the selector configured under name, or fallback.
func (c *SiteConfig) Selector(name, fallback string) string {
	if c.Selectors != nil {
		if sel, ok := c.Selectors[name]; ok && sel != "" {
			return sel
		}
	}
	return fallback
}

// IgnoreDomainSet returns the configured ignore-domains as a set.
func (c *SiteConfig) IgnoreDomainSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Email.IgnoreDomains))
	for _, d := range c.Email.IgnoreDomains {
		set[d] = struct{}{}
	}
	return set
}

// Sectors is a registry of sector key to site configuration.
type Sectors map[string]*SiteConfig

// Load reads a YAML sector registry from path.
func Load(path string) (Sectors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var sectors Sectors
	if err := yaml.Unmarshal(data, &sectors); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}
	return sectors, nil
}

// Sector returns the validated configuration for key, with defaults applied.
func (s Sectors) Sector(key string) (*SiteConfig, error) {
	cfg, ok := s[key]
	if !ok || cfg == nil {
		return nil, fmt.Errorf("sector %q not found in configuration", key)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sector %q: %w", key, err)
	}
	return cfg, nil
}
