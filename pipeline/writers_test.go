package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/bmansouri/go-lead-scraper/models"
)

var (
	testProfiles = []models.ProfileRecord{
		{CompanyName: "Alpha Wines", Country: "France", ProfileURL: "https://dir.test/en/company/alpha-1", WebsiteURL: "https://alpha.example.com"},
		{CompanyName: "Beta Cellars", Country: "Italy", ProfileURL: "https://dir.test/en/company/beta-2", WebsiteURL: ""},
	}
	testLinks  = []string{"https://alpha.example.com"}
	testEmails = []models.CleanEmailRecord{
		{CompanyName: "Alpha Wines", Country: "France", Email: "info@alpha.example.com"},
	}
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestCSVOutput(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVOutput(dir, "wine")

	if err := w.WriteProfiles(testProfiles); err != nil {
		t.Fatalf("write profiles: %v", err)
	}
	if err := w.WriteLinks(testLinks); err != nil {
		t.Fatalf("write links: %v", err)
	}
	if err := w.WriteEmails(testEmails); err != nil {
		t.Fatalf("write emails: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rows := readCSV(t, filepath.Join(dir, "raw", "profiles_wine.csv"))
	want := [][]string{
		{"company_name", "country", "profile_url", "website_url"},
		{"Alpha Wines", "France", "https://dir.test/en/company/alpha-1", "https://alpha.example.com"},
		{"Beta Cellars", "Italy", "https://dir.test/en/company/beta-2", ""},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("profiles csv = %v, want %v", rows, want)
	}

	rows = readCSV(t, filepath.Join(dir, "processed", "links_wine.csv"))
	if len(rows) != 2 || rows[1][0] != "https://alpha.example.com" {
		t.Fatalf("links csv = %v", rows)
	}

	rows = readCSV(t, filepath.Join(dir, "processed", "emails_wine.csv"))
	if len(rows) != 2 || rows[1][2] != "info@alpha.example.com" {
		t.Fatalf("emails csv = %v", rows)
	}
}

func TestJSONOutput(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONOutput(dir, "wine")

	if err := w.WriteProfiles(testProfiles); err != nil {
		t.Fatalf("write profiles: %v", err)
	}
	if err := w.WriteEmails(testEmails); err != nil {
		t.Fatalf("write emails: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "raw", "profiles_wine.jsonl"))
	if err != nil {
		t.Fatalf("open profiles: %v", err)
	}
	defer f.Close()

	var decoded []models.ProfileRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var p models.ProfileRecord
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		decoded = append(decoded, p)
	}
	if !reflect.DeepEqual(decoded, testProfiles) {
		t.Fatalf("decoded profiles = %+v, want %+v", decoded, testProfiles)
	}
}

func TestDualOutputWritesBothFormats(t *testing.T) {
	dir := t.TempDir()
	w := NewDualOutput(dir, "wine")

	if err := w.WriteProfiles(testProfiles); err != nil {
		t.Fatalf("write profiles: %v", err)
	}
	if err := w.WriteLinks(testLinks); err != nil {
		t.Fatalf("write links: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	for _, path := range []string{
		filepath.Join(dir, "raw", "profiles_wine.csv"),
		filepath.Join(dir, "raw", "profiles_wine.jsonl"),
		filepath.Join(dir, "processed", "links_wine.csv"),
		filepath.Join(dir, "processed", "links_wine.jsonl"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected artifact %s: %v", path, err)
		}
	}
}

func TestValidateFlagsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := validateFiles([]string{empty}); err == nil {
		t.Fatal("expected an error for an empty artifact")
	}
	if err := validateFiles([]string{filepath.Join(dir, "missing.csv")}); err == nil {
		t.Fatal("expected an error for a missing artifact")
	}
}

func TestSQLiteOutput(t *testing.T) {
	dir := t.TempDir()
	w, err := NewSQLiteOutput(dir, "wine")
	if err != nil {
		t.Fatalf("open sqlite output: %v", err)
	}
	defer w.Close()

	if err := w.WriteProfiles(testProfiles); err != nil {
		t.Fatalf("write profiles: %v", err)
	}
	if err := w.WriteLinks(testLinks); err != nil {
		t.Fatalf("write links: %v", err)
	}
	// A second write of the same links must not duplicate rows.
	if err := w.WriteLinks(testLinks); err != nil {
		t.Fatalf("rewrite links: %v", err)
	}
	if err := w.WriteEmails(testEmails); err != nil {
		t.Fatalf("write emails: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	var links int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM links").Scan(&links); err != nil {
		t.Fatalf("count links: %v", err)
	}
	if links != 1 {
		t.Fatalf("links count = %d, want 1", links)
	}

	var name, country, email string
	if err := w.db.QueryRow("SELECT company_name, country, email FROM emails").Scan(&name, &country, &email); err != nil {
		t.Fatalf("read email row: %v", err)
	}
	if name != "Alpha Wines" || country != "France" || email != "info@alpha.example.com" {
		t.Fatalf("email row = %q %q %q", name, country, email)
	}
}

func TestSQLiteValidateWithoutProfiles(t *testing.T) {
	w, err := NewSQLiteOutput(t.TempDir(), "empty")
	if err != nil {
		t.Fatalf("open sqlite output: %v", err)
	}
	defer w.Close()

	if err := w.Validate(); err == nil {
		t.Fatal("expected validation to fail with no persisted profiles")
	}
}
