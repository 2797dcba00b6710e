// Package models defines the record types flowing through the pipeline.
package models

import "time"

// ProfileRecord is one company profile discovered on a directory site.
// ProfileURL is the natural key; WebsiteURL is empty when no external
// website could be resolved.
type ProfileRecord struct {
	CompanyName string `csv:"company_name" json:"company_name"`
	Country     string `csv:"country" json:"country"`
	ProfileURL  string `csv:"profile_url" json:"profile_url"`
	WebsiteURL  string `csv:"website_url" json:"website_url"`
}

// EmailRecord is one harvested (profile, email) pair before cleaning.
type EmailRecord struct {
	Name    string `csv:"name" json:"name"`
	Country string `csv:"country" json:"country"`
	Email   string `csv:"email" json:"email"`
}

// CleanEmailRecord is the final output shape, one row per unique email.
type CleanEmailRecord struct {
	CompanyName string `csv:"company_name" json:"company_name"`
	Country     string `csv:"country" json:"country"`
	Email       string `csv:"email" json:"email"`
}

// CrawlResult summarises a full pipeline run.
type CrawlResult struct {
	StartTime    time.Time
	EndTime      time.Time
	ProfileCount int
	RawEmails    int
	CleanEmails  int
	RequestCount int
	RetryCount   int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
}
