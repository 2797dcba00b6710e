// Package sanitize validates, filters, and deduplicates harvested email
// records into the final clean output.
package sanitize

import (
	"strings"
	"unicode"

	"github.com/bmansouri/go-lead-scraper/models"
)

// Email extraction is permissive upstream, so asset filenames routinely
// masquerade as addresses. These substrings mark the impostors.
var imagePatterns = []string{".webp", ".jpg", ".jpeg", ".png", ".gif", ".svg", "@2x-"}

// Clean transforms raw email records into the final deduplicated set:
// blank emails dropped, ignore-listed domains dropped, asset-filename
// artifacts dropped, implausible TLDs dropped, then a stable first-keep
// dedupe by address and projection to the output shape.
func Clean(records []models.EmailRecord, ignoreDomains map[string]struct{}) []models.CleanEmailRecord {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(records))
	out := make([]models.CleanEmailRecord, 0, len(records))
	for _, rec := range records {
		email := strings.TrimSpace(rec.Email)
		if email == "" {
			continue
		}

		domain := domainOf(email)
		if _, ignored := ignoreDomains[domain]; ignored {
			continue
		}
		if isAssetArtifact(email) {
			continue
		}
		if !validTLD(tldOf(domain)) {
			continue
		}

		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}

		out = append(out, models.CleanEmailRecord{
			CompanyName: rec.Name,
			Country:     rec.Country,
			Email:       email,
		})
	}
	return out
}

// domainOf returns the lower-cased substring after the last @.
func domainOf(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return strings.ToLower(email[i+1:])
	}
	return strings.ToLower(email)
}

// tldOf returns the label after the last dot, or the whole domain when
// it has no dot.
func tldOf(domain string) string {
	if i := strings.LastIndex(domain, "."); i >= 0 {
		return domain[i+1:]
	}
	return domain
}

func isAssetArtifact(email string) bool {
	for _, pattern := range imagePatterns {
		if strings.Contains(email, pattern) {
			return true
		}
	}
	return false
}

// validTLD requires at least two characters, no digits, and letters only.
func validTLD(tld string) bool {
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
