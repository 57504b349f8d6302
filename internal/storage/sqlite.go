package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Ledger records every visited page and the links between stored pages in
// a SQLite database
type Ledger struct {
	db *sql.DB
}

// NewLedger opens or creates the ledger database and initializes its schema
func NewLedger(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ledger := &Ledger{db: db}

	if err := ledger.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return ledger, nil
}

// initSchema creates tables and indices if they don't exist
func (l *Ledger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT,
		record_path TEXT,
		title TEXT,
		visit_count INTEGER DEFAULT 0,
		last_visited_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS links (
		from_url TEXT NOT NULL,
		to_url TEXT NOT NULL,
		weight INTEGER DEFAULT 1,
		UNIQUE(from_url, to_url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_status ON pages(status);
	CREATE INDEX IF NOT EXISTS idx_links_from ON links(from_url);
	CREATE INDEX IF NOT EXISTS idx_links_to ON links(to_url);
	`

	_, err := l.db.Exec(schema)
	return err
}

// RecordVisit inserts a page row or overwrites the outcome of an earlier
// visit, bumping its visit count
func (l *Ledger) RecordVisit(v PageVisit) error {
	visitedAt := v.LastVisitedAt
	if visitedAt.IsZero() {
		visitedAt = time.Now()
	}

	_, err := l.db.Exec(`
		INSERT INTO pages (url, domain, status, reason, record_path, title, visit_count, last_visited_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(url) DO UPDATE SET
			domain = EXCLUDED.domain,
			status = EXCLUDED.status,
			reason = EXCLUDED.reason,
			record_path = EXCLUDED.record_path,
			title = EXCLUDED.title,
			visit_count = pages.visit_count + 1,
			last_visited_at = EXCLUDED.last_visited_at
	`, v.URL, v.Domain, v.Status, v.Reason, v.RecordPath, v.Title, visitedAt.UTC())

	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	return nil
}

// RecordLinks upserts an edge from fromURL to every target, incrementing
// the weight of edges seen before
func (l *Ledger) RecordLinks(fromURL string, targets []string) error {
	if len(targets) == 0 {
		return nil
	}

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO links (from_url, to_url, weight)
		VALUES (?, ?, 1)
		ON CONFLICT(from_url, to_url) DO UPDATE SET
			weight = weight + 1
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare link upsert: %w", err)
	}
	defer stmt.Close()

	for _, to := range targets {
		if _, err := stmt.Exec(fromURL, to); err != nil {
			return fmt.Errorf("failed to upsert link %s -> %s: %w", fromURL, to, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit links: %w", err)
	}
	return nil
}

// GetPage retrieves a page by URL, returns nil if not found
func (l *Ledger) GetPage(url string) (*PageVisit, error) {
	var (
		v          PageVisit
		reason     sql.NullString
		recordPath sql.NullString
		title      sql.NullString
	)
	err := l.db.QueryRow(`
		SELECT url, domain, status, reason, record_path, title, visit_count, last_visited_at
		FROM pages
		WHERE url = ?
	`, url).Scan(&v.URL, &v.Domain, &v.Status, &reason, &recordPath, &title, &v.VisitCount, &v.LastVisitedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	v.Reason = reason.String
	v.RecordPath = recordPath.String
	v.Title = title.String
	return &v, nil
}

// OutboundLinks returns the recorded link targets of a page
func (l *Ledger) OutboundLinks(fromURL string) ([]Link, error) {
	rows, err := l.db.Query(`
		SELECT from_url, to_url, weight
		FROM links
		WHERE from_url = ?
		ORDER BY to_url ASC
	`, fromURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load links: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var link Link
		if err := rows.Scan(&link.FromURL, &link.ToURL, &link.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

// Summary returns the number of pages per status
func (l *Ledger) Summary() (map[string]int, error) {
	rows, err := l.db.Query("SELECT status, COUNT(*) FROM pages GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to summarize pages: %w", err)
	}
	defer rows.Close()

	summary := make(map[string]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summary[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summary: %w", err)
	}

	return summary, nil
}

// Close closes the database connection
func (l *Ledger) Close() error {
	return l.db.Close()
}
