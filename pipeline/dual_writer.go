package pipeline

import (
	"fmt"

	"github.com/bmansouri/go-lead-scraper/models"
)

// DualOutput writes every artifact in both CSV and JSONL form.
type DualOutput struct {
	csv  *CSVOutput
	json *JSONOutput
}

// NewDualOutput builds a writer emitting both formats under outputDir.
func NewDualOutput(outputDir, slug string) *DualOutput {
	return &DualOutput{
		csv:  NewCSVOutput(outputDir, slug),
		json: NewJSONOutput(outputDir, slug),
	}
}

// WriteProfiles saves the profile checkpoint in both formats.
func (w *DualOutput) WriteProfiles(profiles []models.ProfileRecord) error {
	if err := w.csv.WriteProfiles(profiles); err != nil {
		return fmt.Errorf("csv write failed: %w", err)
	}
	if err := w.json.WriteProfiles(profiles); err != nil {
		return fmt.Errorf("json write failed: %w", err)
	}
	return nil
}

// WriteLinks saves the website list in both formats.
func (w *DualOutput) WriteLinks(urls []string) error {
	if err := w.csv.WriteLinks(urls); err != nil {
		return fmt.Errorf("csv write failed: %w", err)
	}
	if err := w.json.WriteLinks(urls); err != nil {
		return fmt.Errorf("json write failed: %w", err)
	}
	return nil
}

// WriteEmails saves the clean emails in both formats.
func (w *DualOutput) WriteEmails(emails []models.CleanEmailRecord) error {
	if err := w.csv.WriteEmails(emails); err != nil {
		return fmt.Errorf("csv write failed: %w", err)
	}
	if err := w.json.WriteEmails(emails); err != nil {
		return fmt.Errorf("json write failed: %w", err)
	}
	return nil
}

// Close closes both writers.
func (w *DualOutput) Close() error {
	if err := w.csv.Close(); err != nil {
		return err
	}
	return w.json.Close()
}

// Validate validates both outputs.
func (w *DualOutput) Validate() error {
	if err := w.csv.Validate(); err != nil {
		return fmt.Errorf("csv validation failed: %w", err)
	}
	if err := w.json.Validate(); err != nil {
		return fmt.Errorf("json validation failed: %w", err)
	}
	return nil
}
