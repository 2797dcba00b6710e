package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"testing"

	"github.com/bmansouri/go-lead-scraper/config"
	"github.com/bmansouri/go-lead-scraper/fetch"
	"github.com/bmansouri/go-lead-scraper/models"
	"github.com/jarcoal/httpmock"
)

func TestBuildPages(t *testing.T) {
	tests := []struct {
		name      string
		searchURL string
		maxPages  int
		want      []string
	}{
		{
			name:      "single page",
			searchURL: "https://dir.test/en/search",
			maxPages:  1,
			want:      []string{"https://dir.test/en/search"},
		},
		{
			name:      "plain url",
			searchURL: "https://dir.test/en/search",
			maxPages:  3,
			want: []string{
				"https://dir.test/en/search",
				"https://dir.test/en/search/page/2",
				"https://dir.test/en/search/page/3",
			},
		},
		{
			name:      "query string preserved",
			searchURL: "https://dir.test/en/search?q=wine&cc=fra",
			maxPages:  3,
			want: []string{
				"https://dir.test/en/search?q=wine&cc=fra",
				"https://dir.test/en/search/page/2?q=wine&cc=fra",
				"https://dir.test/en/search/page/3?q=wine&cc=fra",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildPages(tt.searchURL, tt.maxPages)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("BuildPages() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestForSector(t *testing.T) {
	cfg := europagesConfig(1)
	if _, ok := ForSector("yellowpages_uae", cfg, nil, nil, slog.Default()).(*YellowPages); !ok {
		t.Fatalf("yellowpages sector did not yield a listing resolver")
	}
	if _, ok := ForSector("europages_wine", cfg, nil, nil, slog.Default()).(*Europages); !ok {
		t.Fatalf("europages sector did not yield a product-card resolver")
	}
}

func europagesConfig(maxPages int) *config.SiteConfig {
	cfg := &config.SiteConfig{
		BaseURL:   "https://www.europages.test",
		SearchURL: "https://www.europages.test/en/search?q=wine",
		MaxPages:  maxPages,
		Selectors: map[string]string{
			"product_cards": "[data-test='product']",
			"company_name":  "h1",
			"country":       "span.country",
		},
	}
	cfg.ApplyDefaults()
	cfg.Retries = 1
	cfg.TimeoutSec = 2
	return cfg
}

func yellowpagesConfig(maxPages int) *config.SiteConfig {
	cfg := &config.SiteConfig{
		BaseURL:  "https://www.yellowpages.test",
		MaxPages: maxPages,
		Category: "food-beverage",
		Selectors: map[string]string{
			"profile_links": "a.result",
			"company_name":  "h2",
			"city":          "span.city",
		},
	}
	cfg.ApplyDefaults()
	cfg.Retries = 1
	cfg.TimeoutSec = 2
	return cfg
}

func newTestSession(t *testing.T, cfg *config.SiteConfig) (*fetch.Session, *httpmock.MockTransport) {
	t.Helper()
	s, err := fetch.NewSession(cfg, fetch.NewMetrics(), slog.Default())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	transport := httpmock.NewMockTransport()
	s.WithTransport(transport)
	return s, transport
}

func noDelay() fetch.Limiter { return fetch.NewJitterLimiter(0, 0) }

func searchPageHTML(products ...string) string {
	html := ""
	for _, p := range products {
		html += fmt.Sprintf(`<div data-test='product'><a href=%q>p</a></div>`, p)
	}
	return html
}

func profilePageHTML(name, country, website string) string {
	html := fmt.Sprintf("<h1>%s</h1>", name)
	if country != "" {
		html += fmt.Sprintf(`<div class="flex gap-1 items-center mt-0.5"><span>flag</span><span>%s</span></div>`, country)
	}
	if website != "" {
		html += fmt.Sprintf(`<a class="website-button" href=%q>visit</a>`, website)
	}
	return html
}

func TestEuropagesResolve(t *testing.T) {
	cfg := europagesConfig(1)
	session, transport := newTestSession(t, cfg)

	transport.RegisterResponder("GET", cfg.SearchURL,
		httpmock.NewStringResponder(http.StatusOK, searchPageHTML(
			"/en/company/alpha-111/products/wine-a",
			"/en/company/alpha-111/products/wine-b",
			"/en/company/beta-222/products/wine-c",
		)))
	transport.RegisterResponder("GET", "https://www.europages.test/en/company/alpha-111",
		httpmock.NewStringResponder(http.StatusOK,
			profilePageHTML("Alpha Wines", "France", "https://alpha.example.com")))
	transport.RegisterResponder("GET", "https://www.europages.test/en/company/beta-222",
		httpmock.NewStringResponder(http.StatusOK,
			profilePageHTML("Beta Cellars", "Italy", "https://beta.example.com")))

	r := NewEuropages(cfg, session, noDelay(), slog.Default())
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := []models.ProfileRecord{
		{
			CompanyName: "Alpha Wines",
			Country:     "France",
			ProfileURL:  "https://www.europages.test/en/company/alpha-111",
			WebsiteURL:  "https://alpha.example.com",
		},
		{
			CompanyName: "Beta Cellars",
			Country:     "Italy",
			ProfileURL:  "https://www.europages.test/en/company/beta-222",
			WebsiteURL:  "https://beta.example.com",
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("records = %+v, want %+v", got, want)
	}
}

func TestEuropagesProductFallback(t *testing.T) {
	cfg := europagesConfig(1)
	session, transport := newTestSession(t, cfg)

	transport.RegisterResponder("GET", cfg.SearchURL,
		httpmock.NewStringResponder(http.StatusOK,
			searchPageHTML("/en/company/gamma-333/products/olive-oil")))
	// Profile page carries no website and no country.
	transport.RegisterResponder("GET", "https://www.europages.test/en/company/gamma-333",
		httpmock.NewStringResponder(http.StatusOK, "<h1>Gamma Mills</h1>"))
	// The product page fills both in.
	transport.RegisterResponder("GET", "https://www.europages.test/en/company/gamma-333/products/olive-oil",
		httpmock.NewStringResponder(http.StatusOK,
			`<span class="country">Greece</span><a class="website-button" href="https://gamma.example.com">visit</a>`))

	r := NewEuropages(cfg, session, noDelay(), slog.Default())
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := []models.ProfileRecord{{
		CompanyName: "Gamma Mills",
		Country:     "Greece",
		ProfileURL:  "https://www.europages.test/en/company/gamma-333",
		WebsiteURL:  "https://gamma.example.com",
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("records = %+v, want %+v", got, want)
	}
}

func TestEuropagesFailedProfileStillEmitsRecord(t *testing.T) {
	cfg := europagesConfig(1)
	session, transport := newTestSession(t, cfg)

	transport.RegisterResponder("GET", cfg.SearchURL,
		httpmock.NewStringResponder(http.StatusOK,
			searchPageHTML("/en/company/delta-444/products/cork")))
	transport.RegisterResponder("GET", "https://www.europages.test/en/company/delta-444",
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))
	transport.RegisterResponder("GET", "https://www.europages.test/en/company/delta-444/products/cork",
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

	r := NewEuropages(cfg, session, noDelay(), slog.Default())
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := []models.ProfileRecord{{
		ProfileURL: "https://www.europages.test/en/company/delta-444",
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("records = %+v, want %+v", got, want)
	}
}

func TestEuropagesOwnDomainWebsiteCleared(t *testing.T) {
	cfg := europagesConfig(1)
	session, transport := newTestSession(t, cfg)

	transport.RegisterResponder("GET", cfg.SearchURL,
		httpmock.NewStringResponder(http.StatusOK,
			searchPageHTML("/en/company/epsilon-555/products/honey")))
	transport.RegisterResponder("GET", "https://www.europages.test/en/company/epsilon-555",
		httpmock.NewStringResponder(http.StatusOK,
			profilePageHTML("Epsilon Honey", "Spain", "https://www.europages.test/en/company/epsilon-555")))
	transport.RegisterResponder("GET", "https://www.europages.test/en/company/epsilon-555/products/honey",
		httpmock.NewStringResponder(http.StatusOK, "<p>no website here</p>"))

	r := NewEuropages(cfg, session, noDelay(), slog.Default())
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("records = %+v, want one", got)
	}
	if got[0].WebsiteURL != "" {
		t.Fatalf("directory-hosted website not cleared: %q", got[0].WebsiteURL)
	}
	if got[0].CompanyName != "Epsilon Honey" {
		t.Fatalf("company name = %q", got[0].CompanyName)
	}
}

func TestEuropagesSearchPageFailureContinues(t *testing.T) {
	cfg := europagesConfig(2)
	session, transport := newTestSession(t, cfg)

	// Page 1 has no responder and fails; page 2 still contributes links.
	transport.RegisterResponder("GET", "https://www.europages.test/en/search/page/2?q=wine",
		httpmock.NewStringResponder(http.StatusOK,
			searchPageHTML("/en/company/zeta-666/products/oil")))
	transport.RegisterResponder("GET", "https://www.europages.test/en/company/zeta-666",
		httpmock.NewStringResponder(http.StatusOK,
			profilePageHTML("Zeta Oils", "Portugal", "https://zeta.example.com")))

	r := NewEuropages(cfg, session, noDelay(), slog.Default())
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 1 || got[0].CompanyName != "Zeta Oils" {
		t.Fatalf("records = %+v, want Zeta Oils only", got)
	}
}

func TestEuropagesMissingSearchURL(t *testing.T) {
	cfg := europagesConfig(1)
	cfg.SearchURL = ""
	session, _ := newTestSession(t, cfg)

	r := NewEuropages(cfg, session, noDelay(), slog.Default())
	if _, err := r.Resolve(context.Background()); err == nil {
		t.Fatal("expected an error for a missing search URL")
	}
}

func TestYellowPagesMissingCategory(t *testing.T) {
	cfg := yellowpagesConfig(1)
	cfg.Category = ""
	session, _ := newTestSession(t, cfg)

	r := NewYellowPages(cfg, session, noDelay(), slog.Default())
	if _, err := r.Resolve(context.Background()); !errors.Is(err, ErrMissingCategory) {
		t.Fatalf("err = %v, want ErrMissingCategory", err)
	}
}

func TestYellowPagesResolve(t *testing.T) {
	cfg := yellowpagesConfig(1)
	session, transport := newTestSession(t, cfg)

	transport.RegisterResponder("GET", "https://www.yellowpages.test/uae/food-beverage?page=1",
		httpmock.NewStringResponder(http.StatusOK, `
			<a class="result" href="/gulf-trading-12345">Gulf Trading</a>
			<a class="result" href="/nameless-co-67890?ref=x">Nameless</a>
		`))
	transport.RegisterResponder("GET", "https://www.yellowpages.test/gulf-trading-12345",
		httpmock.NewStringResponder(http.StatusOK, `
			<h2>Gulf Trading</h2>
			<span class="city">Dubai</span>
			<button title="https://gulf.example.com" data-url="/r/1">Visit Website</button>
		`))
	// Page without an extractable name: the profile is dropped.
	transport.RegisterResponder("GET", "https://www.yellowpages.test/nameless-co-67890",
		httpmock.NewStringResponder(http.StatusOK, `<span class="city">Sharjah</span>`))

	r := NewYellowPages(cfg, session, noDelay(), slog.Default())
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := []models.ProfileRecord{{
		CompanyName: "Gulf Trading",
		Country:     "Dubai",
		ProfileURL:  "https://www.yellowpages.test/gulf-trading-12345",
		WebsiteURL:  "https://gulf.example.com",
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("records = %+v, want %+v", got, want)
	}
}

func TestYellowPagesNoProfilesFound(t *testing.T) {
	cfg := yellowpagesConfig(1)
	session, transport := newTestSession(t, cfg)

	transport.RegisterResponder("GET", "https://www.yellowpages.test/uae/food-beverage?page=1",
		httpmock.NewStringResponder(http.StatusOK, "<p>no results</p>"))

	r := NewYellowPages(cfg, session, noDelay(), slog.Default())
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("records = %+v, want none", got)
	}
}
