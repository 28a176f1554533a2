package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pagelens/pagelens/internal/model"
)

// CrawlDB provides SQLite-based storage for crawled pages and reports.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for all sites rather
// than separate files per site. This simplifies history queries across
// sites and backup/restore operations.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, "pagelens.db")

	// Check if we should create the database or require it to exist
	if !opts.CreateIfNotExists {
		// Check if database file exists
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		// Ensure directory exists
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	// SQLite doesn't benefit from multiple connections for writes,
	// but multiple readers can improve performance
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	// Enable WAL mode if requested
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Create tables
	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Page records store individual page fetches
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		base_url TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		status_code INTEGER,
		content_type TEXT,
		title TEXT,
		word_count INTEGER DEFAULT 0,
		headers TEXT,
		UNIQUE(url, base_url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	CREATE INDEX IF NOT EXISTS idx_pages_base ON pages(base_url);
	CREATE INDEX IF NOT EXISTS idx_pages_timestamp ON pages(timestamp);

	-- Crawl reports store complete crawl results as JSON
	CREATE TABLE IF NOT EXISTS crawl_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		base_url TEXT NOT NULL,
		requirement TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		report_json TEXT NOT NULL,
		pages_crawled INTEGER DEFAULT 0,
		matching_pages INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_reports_base ON crawl_reports(base_url);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON crawl_reports(timestamp);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// PageRecord represents a stored page fetch.
type PageRecord struct {
	ID          int64
	URL         string
	BaseURL     string
	Timestamp   time.Time
	StatusCode  int
	ContentType string
	Title       string
	WordCount   int
	Headers     map[string][]string
}

// InsertPageRecord inserts or updates a page record.
// Uses UPSERT to handle duplicates (same URL + base URL).
func (cdb *CrawlDB) InsertPageRecord(ctx context.Context, record *PageRecord) (int64, error) {
	// Serialize headers to JSON
	headersJSON, err := json.Marshal(record.Headers)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize headers: %w", err)
	}

	query := `
	INSERT INTO pages (url, base_url, status_code, content_type, title, word_count, headers)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url, base_url) DO UPDATE SET
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		title = excluded.title,
		word_count = excluded.word_count,
		headers = excluded.headers,
		timestamp = CURRENT_TIMESTAMP
	`

	result, err := cdb.db.ExecContext(ctx, query,
		record.URL,
		record.BaseURL,
		record.StatusCode,
		record.ContentType,
		record.Title,
		record.WordCount,
		string(headersJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert page record: %w", err)
	}

	return result.LastInsertId()
}

// GetPageRecord retrieves a page record by URL and base URL.
func (cdb *CrawlDB) GetPageRecord(ctx context.Context, url, baseURL string) (*PageRecord, error) {
	query := `
	SELECT id, url, base_url, timestamp, status_code, content_type, title, word_count, headers
	FROM pages
	WHERE url = ? AND base_url = ?
	`

	var record PageRecord
	var headersJSON string
	var timestamp string

	err := cdb.db.QueryRowContext(ctx, query, url, baseURL).Scan(
		&record.ID,
		&record.URL,
		&record.BaseURL,
		&timestamp,
		&record.StatusCode,
		&record.ContentType,
		&record.Title,
		&record.WordCount,
		&headersJSON,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page record: %w", err)
	}

	// Parse timestamp (SQLite may return different formats depending on version/configuration)
	record.Timestamp = parseTimestamp(timestamp)

	// Parse headers
	if headersJSON != "" {
		if err := json.Unmarshal([]byte(headersJSON), &record.Headers); err != nil {
			return nil, fmt.Errorf("failed to parse headers: %w", err)
		}
	}

	return &record, nil
}

// HasRecentCrawl checks if a URL was crawled within the specified duration.
func (cdb *CrawlDB) HasRecentCrawl(ctx context.Context, url string, duration time.Duration) (bool, error) {
	query := `
	SELECT COUNT(*) FROM pages
	WHERE url = ? AND timestamp > datetime('now', ?)
	`

	// SQLite datetime modifier format
	modifier := fmt.Sprintf("-%d seconds", int(duration.Seconds()))

	var count int
	err := cdb.db.QueryRowContext(ctx, query, url, modifier).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check recent crawl: %w", err)
	}

	return count > 0, nil
}

// SaveCrawlReport saves a complete crawl report as JSON along with the
// counters used for history listings.
func (cdb *CrawlDB) SaveCrawlReport(ctx context.Context, report *model.CrawlReport) error {
	// Serialize report to JSON
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	INSERT INTO crawl_reports (base_url, requirement, report_json, pages_crawled, matching_pages)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err = cdb.db.ExecContext(ctx, query,
		report.BaseURL,
		report.Requirement,
		string(reportJSON),
		report.TotalPagesCrawled,
		len(report.MatchingPages),
	)
	if err != nil {
		return fmt.Errorf("failed to save crawl report: %w", err)
	}

	return nil
}

// GetLatestCrawlReport retrieves the most recent crawl report for a base URL.
func (cdb *CrawlDB) GetLatestCrawlReport(ctx context.Context, baseURL string) (*model.CrawlReport, error) {
	query := `
	SELECT report_json FROM crawl_reports
	WHERE base_url = ?
	ORDER BY timestamp DESC
	LIMIT 1
	`

	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, query, baseURL).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl report: %w", err)
	}

	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListSites returns a list of all base URLs with stored reports.
func (cdb *CrawlDB) ListSites(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT base_url FROM crawl_reports
	ORDER BY base_url
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}

	return sites, rows.Err()
}

// GetCrawlHistory retrieves all crawl reports for a base URL.
func (cdb *CrawlDB) GetCrawlHistory(ctx context.Context, baseURL string) ([]*model.CrawlReport, error) {
	query := `
	SELECT report_json FROM crawl_reports
	WHERE base_url = ?
	ORDER BY timestamp DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl history: %w", err)
	}
	defer rows.Close()

	var reports []*model.CrawlReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report model.CrawlReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// CrawlReportMetadata contains summary information about a crawl report.
// This is used for displaying history without loading the full report.
type CrawlReportMetadata struct {
	// ID is the unique identifier of the report in the database.
	ID int64

	// BaseURL is the crawled site's seed URL.
	BaseURL string

	// Requirement is the keyword the crawl matched against, if any.
	Requirement string

	// Timestamp is when the crawl was performed.
	Timestamp time.Time

	// PagesCrawled is the number of unique URLs claimed during the crawl.
	PagesCrawled int

	// MatchingPages is the number of pages kept in the report.
	MatchingPages int
}

// GetCrawlHistoryWithMetadata retrieves report metadata for a base URL.
// This is more efficient than GetCrawlHistory when only metadata is needed.
func (cdb *CrawlDB) GetCrawlHistoryWithMetadata(ctx context.Context, baseURL string) ([]CrawlReportMetadata, error) {
	query := `
	SELECT id, base_url, requirement, timestamp, pages_crawled, matching_pages
	FROM crawl_reports
	WHERE base_url = ?
	ORDER BY timestamp DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl history: %w", err)
	}
	defer rows.Close()

	var results []CrawlReportMetadata
	for rows.Next() {
		var meta CrawlReportMetadata
		var timestamp string
		var requirement sql.NullString

		if err := rows.Scan(&meta.ID, &meta.BaseURL, &requirement, &timestamp, &meta.PagesCrawled, &meta.MatchingPages); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		if requirement.Valid {
			meta.Requirement = requirement.String
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetCrawlReportByID retrieves a crawl report by its database ID.
func (cdb *CrawlDB) GetCrawlReportByID(ctx context.Context, id int64) (*model.CrawlReport, error) {
	query := `
	SELECT report_json FROM crawl_reports
	WHERE id = ?
	`

	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl report: %w", err)
	}

	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// SavePages stores every crawled page of a report in one pass.
// Failures on individual pages abort the batch.
func (cdb *CrawlDB) SavePages(ctx context.Context, report *model.CrawlReport) error {
	for _, result := range report.MatchingPages {
		record := &PageRecord{
			URL:         result.Page.URL,
			BaseURL:     report.BaseURL,
			StatusCode:  result.Page.StatusCode,
			ContentType: result.Page.ContentType,
			Title:       result.Page.Title,
			Headers:     result.Page.Headers,
		}
		if result.Analysis != nil {
			record.WordCount = result.Analysis.WordCount
		}
		if _, err := cdb.InsertPageRecord(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	// Return zero time if no format matches
	// This is a fallback to avoid breaking functionality for edge cases
	return time.Time{}
}
