package pipeline

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/bmansouri/go-lead-scraper/models"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteOutput persists all artifacts into one sqlite database file.
type SQLiteOutput struct {
	db *sql.DB
}

// NewSQLiteOutput opens (or creates) leads_<slug>.db under outputDir and
// initialises the schema.
func NewSQLiteOutput(outputDir, slug string) (*SQLiteOutput, error) {
	path := filepath.Join(outputDir, fmt.Sprintf("leads_%s.db", slug))
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	out := &SQLiteOutput{db: db}
	if err := out.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return out, nil
}

func (w *SQLiteOutput) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_name TEXT,
		country TEXT,
		profile_url TEXT NOT NULL,
		website_url TEXT
	);

	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS emails (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_name TEXT,
		country TEXT,
		email TEXT UNIQUE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_profiles_url ON profiles(profile_url);
	`
	_, err := w.db.Exec(schema)
	return err
}

// WriteProfiles inserts the profile checkpoint in one transaction.
func (w *SQLiteOutput) WriteProfiles(profiles []models.ProfileRecord) error {
	return w.insert("INSERT INTO profiles (company_name, country, profile_url, website_url) VALUES (?, ?, ?, ?)",
		len(profiles), func(stmt *sql.Stmt, i int) error {
			p := profiles[i]
			_, err := stmt.Exec(p.CompanyName, p.Country, p.ProfileURL, p.WebsiteURL)
			return err
		})
}

// WriteLinks inserts the deduplicated personal websites.
func (w *SQLiteOutput) WriteLinks(urls []string) error {
	return w.insert("INSERT OR IGNORE INTO links (url) VALUES (?)",
		len(urls), func(stmt *sql.Stmt, i int) error {
			_, err := stmt.Exec(urls[i])
			return err
		})
}

// WriteEmails inserts the final clean email records.
func (w *SQLiteOutput) WriteEmails(emails []models.CleanEmailRecord) error {
	return w.insert("INSERT OR IGNORE INTO emails (company_name, country, email) VALUES (?, ?, ?)",
		len(emails), func(stmt *sql.Stmt, i int) error {
			e := emails[i]
			_, err := stmt.Exec(e.CompanyName, e.Country, e.Email)
			return err
		})
}

func (w *SQLiteOutput) insert(query string, n int, bind func(*sql.Stmt, int) error) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := bind(stmt, i); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (w *SQLiteOutput) Close() error {
	return w.db.Close()
}

// Validate ensures the profile checkpoint landed.
func (w *SQLiteOutput) Validate() error {
	var count int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM profiles").Scan(&count); err != nil {
		return fmt.Errorf("count profiles: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("no profiles were persisted")
	}
	return nil
}
