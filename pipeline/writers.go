package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmansouri/go-lead-scraper/models"
)

// OutputWriter persists the artifacts of one crawl run: the profile
// checkpoint, the deduplicated website list, and the final clean emails.
type OutputWriter interface {
	WriteProfiles(profiles []models.ProfileRecord) error
	WriteLinks(urls []string) error
	WriteEmails(emails []models.CleanEmailRecord) error
	Close() error
	Validate() error
}

// CSVOutput writes each artifact as a CSV file: profiles under raw/,
// links and emails under processed/.
type CSVOutput struct {
	rawDir       string
	processedDir string
	slug         string

	mu      sync.Mutex
	written []string
}

// NewCSVOutput initialises the CSV writer rooted at outputDir.
func NewCSVOutput(outputDir, slug string) *CSVOutput {
	return &CSVOutput{
		rawDir:       filepath.Join(outputDir, "raw"),
		processedDir: filepath.Join(outputDir, "processed"),
		slug:         slug,
	}
}

// WriteProfiles saves the profile checkpoint.
func (w *CSVOutput) WriteProfiles(profiles []models.ProfileRecord) error {
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, []string{p.CompanyName, p.Country, p.ProfileURL, p.WebsiteURL})
	}
	path := filepath.Join(w.rawDir, fmt.Sprintf("profiles_%s.csv", w.slug))
	return w.writeFile(path, []string{"company_name", "country", "profile_url", "website_url"}, rows)
}

// WriteLinks saves the deduplicated personal websites.
func (w *CSVOutput) WriteLinks(urls []string) error {
	rows := make([][]string, 0, len(urls))
	for _, u := range urls {
		rows = append(rows, []string{u})
	}
	path := filepath.Join(w.processedDir, fmt.Sprintf("links_%s.csv", w.slug))
	return w.writeFile(path, []string{"url"}, rows)
}

// WriteEmails saves the final clean email records.
func (w *CSVOutput) WriteEmails(emails []models.CleanEmailRecord) error {
	rows := make([][]string, 0, len(emails))
	for _, e := range emails {
		rows = append(rows, []string{e.CompanyName, e.Country, e.Email})
	}
	path := filepath.Join(w.processedDir, fmt.Sprintf("emails_%s.csv", w.slug))
	return w.writeFile(path, []string{"company_name", "country", "email"}, rows)
}

func (w *CSVOutput) writeFile(path string, header []string, rows [][]string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}

	w.mu.Lock()
	w.written = append(w.written, path)
	w.mu.Unlock()
	return nil
}

// Close is a no-op; files are closed per artifact.
func (w *CSVOutput) Close() error {
	return nil
}

// Validate ensures every written artifact has content.
func (w *CSVOutput) Validate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return validateFiles(w.written)
}

// JSONOutput writes each artifact as newline-delimited JSON.
type JSONOutput struct {
	rawDir       string
	processedDir string
	slug         string

	mu      sync.Mutex
	written []string
}

// NewJSONOutput initialises the JSONL writer rooted at outputDir.
func NewJSONOutput(outputDir, slug string) *JSONOutput {
	return &JSONOutput{
		rawDir:       filepath.Join(outputDir, "raw"),
		processedDir: filepath.Join(outputDir, "processed"),
		slug:         slug,
	}
}

// WriteProfiles saves the profile checkpoint.
func (w *JSONOutput) WriteProfiles(profiles []models.ProfileRecord) error {
	path := filepath.Join(w.rawDir, fmt.Sprintf("profiles_%s.jsonl", w.slug))
	return w.writeFile(path, len(profiles), func(enc *json.Encoder) error {
		for _, p := range profiles {
			if err := enc.Encode(p); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteLinks saves the deduplicated personal websites.
func (w *JSONOutput) WriteLinks(urls []string) error {
	path := filepath.Join(w.processedDir, fmt.Sprintf("links_%s.jsonl", w.slug))
	return w.writeFile(path, len(urls), func(enc *json.Encoder) error {
		for _, u := range urls {
			if err := enc.Encode(map[string]string{"url": u}); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteEmails saves the final clean email records.
func (w *JSONOutput) WriteEmails(emails []models.CleanEmailRecord) error {
	path := filepath.Join(w.processedDir, fmt.Sprintf("emails_%s.jsonl", w.slug))
	return w.writeFile(path, len(emails), func(enc *json.Encoder) error {
		for _, e := range emails {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *JSONOutput) writeFile(path string, count int, encode func(*json.Encoder) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	buffer := bufio.NewWriter(f)
	if err := encode(json.NewEncoder(buffer)); err != nil {
		return fmt.Errorf("encode json record: %w", err)
	}
	if err := buffer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	w.mu.Lock()
	w.written = append(w.written, path)
	w.mu.Unlock()
	return nil
}

// Close is a no-op; files are closed per artifact.
func (w *JSONOutput) Close() error {
	return nil
}

// Validate ensures every written artifact has content.
func (w *JSONOutput) Validate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return validateFiles(w.written)
}

func validateFiles(paths []string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat output file: %w", err)
		}
		if info.Size() <= 0 {
			return fmt.Errorf("output file %s is empty", path)
		}
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
