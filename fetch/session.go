// Package fetch issues polite HTTP GETs with retry, backoff, and pacing.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmansouri/go-lead-scraper/config"
	"github.com/gocolly/colly/v2"
)

// Session wraps a colly collector for one crawl run. Fetches are
// serialised; one request is in flight at a time.
type Session struct {
	collector *colly.Collector
	metrics   *Metrics
	log       *slog.Logger

	// capture slot for the in-flight fetch, guarded by mu
	mu      sync.Mutex
	headers map[string]string
	body    []byte
	status  int

	requestCount int64
	retryCount   int64
	errorCount   int64

	statsMu      sync.Mutex
	failedURLs   []string
	errorsByType map[string]int

	sleep func(ctx context.Context, d time.Duration) error
}

// NewSession builds a fetch session configured from cfg.
func NewSession(cfg *config.SiteConfig, metrics *Metrics, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}

	userAgent := ""
	if cfg.Headers != nil {
		userAgent = cfg.Headers["User-Agent"]
	}

	opts := []colly.CollectorOption{
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	}
	if userAgent != "" {
		opts = append(opts, colly.UserAgent(userAgent))
	}
	collector := colly.NewCollector(opts...)
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(cfg.Timeout())
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout(),
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	s := &Session{
		collector:    collector,
		metrics:      metrics,
		log:          log,
		errorsByType: make(map[string]int),
		sleep:        sleepFor,
	}

	collector.OnRequest(func(r *colly.Request) {
		for k, v := range s.headers {
			r.Headers.Set(k, v)
		}
		r.Ctx.Put("start", time.Now())
		atomic.AddInt64(&s.requestCount, 1)
		s.metrics.IncRequest("started")
	})

	collector.OnResponse(func(r *colly.Response) {
		s.body = r.Body
		s.status = r.StatusCode
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			s.metrics.ObserveDuration(time.Since(start))
		}
	})

	return s, nil
}

// WithTransport replaces the HTTP transport. Used by tests.
func (s *Session) WithTransport(rt http.RoundTripper) {
	s.collector.WithTransport(rt)
}

// Fetch GETs url and returns the response body as text. Transport errors
// and 5xx responses are retried with exponential backoff; under
// rc.StrictStatus any non-2xx response is retried as well. Exhausting the
// retry budget returns a *FetchError carrying the last cause.
func (s *Session) Fetch(ctx context.Context, rawURL string, rc config.RequestConfig) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := NormalizeURL(rawURL)
	if target == "" {
		return "", &FetchError{URL: rawURL, Err: errors.New("empty URL")}
	}

	retries := rc.Retries
	if retries < 1 {
		retries = 1
	}
	if rc.Timeout > 0 {
		s.collector.SetRequestTimeout(rc.Timeout)
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", &FetchError{URL: target, Attempts: attempt - 1, Err: err}
		}

		s.headers = rc.Headers
		s.body = nil
		s.status = 0

		err := s.collector.Visit(target)
		status := s.status
		switch {
		case err != nil:
			lastErr = classifyError(err, status)
		case status >= http.StatusInternalServerError:
			lastErr = ErrServer{Status: status}
		case rc.StrictStatus && (status < http.StatusOK || status >= http.StatusMultipleChoices):
			lastErr = ErrStatus{Status: status}
		default:
			return string(s.body), nil
		}

		s.recordError(lastErr)
		s.log.Warn("fetch attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("retries", retries),
			slog.String("url", target),
			slog.Any("error", lastErr),
		)
		if attempt < retries {
			atomic.AddInt64(&s.retryCount, 1)
			s.metrics.IncRetries()
			if err := s.sleep(ctx, Backoff(rc.BackoffFactor, attempt)); err != nil {
				return "", &FetchError{URL: target, Attempts: attempt, Err: err}
			}
		}
	}

	s.statsMu.Lock()
	s.failedURLs = append(s.failedURLs, target)
	s.statsMu.Unlock()

	return "", &FetchError{URL: target, Attempts: retries, Err: lastErr}
}

func (s *Session) recordError(err error) {
	atomic.AddInt64(&s.errorCount, 1)
	label := errorTypeLabel(err)
	s.statsMu.Lock()
	s.errorsByType[label]++
	s.statsMu.Unlock()
	s.metrics.IncError(label)
}

// RequestCount returns the number of requests issued so far.
func (s *Session) RequestCount() int {
	return int(atomic.LoadInt64(&s.requestCount))
}

// RetryCount returns the number of retry attempts performed so far.
func (s *Session) RetryCount() int {
	return int(atomic.LoadInt64(&s.retryCount))
}

// ErrorCount returns the number of failed fetch attempts so far.
func (s *Session) ErrorCount() int {
	return int(atomic.LoadInt64(&s.errorCount))
}

// FailedURLs returns the URLs whose retry budget was exhausted.
func (s *Session) FailedURLs() []string {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

// ErrorsByType returns a snapshot of failure counts per error class.
func (s *Session) ErrorsByType() map[string]int {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

// Backoff returns the sleep before retrying after the given attempt:
// factor^attempt seconds.
func Backoff(factor float64, attempt int) time.Duration {
	if factor <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(math.Pow(factor, float64(attempt)) * float64(time.Second))
}

// NormalizeURL trims rawURL and defaults a missing scheme to https.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if strings.HasPrefix(rawURL, "//") {
		return "https:" + rawURL
	}
	if parsed, err := url.Parse(rawURL); err != nil || parsed.Scheme == "" {
		return "https://" + rawURL
	}
	return rawURL
}

func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
