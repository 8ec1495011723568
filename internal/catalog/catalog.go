// Package catalog keeps a sqlite index of harvested documents across runs.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nhatthm/docharvest/internal/crawler"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	source_url TEXT NOT NULL UNIQUE,
	origin_page_url TEXT NOT NULL,
	filename TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	organized_path TEXT,
	category TEXT NOT NULL,
	depth_found INTEGER NOT NULL,
	size INTEGER NOT NULL,
	recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category);
CREATE INDEX IF NOT EXISTS idx_documents_run ON documents(run_id);
`

// Catalog is a sqlite index of documents. A source url is stored once, the latest run wins.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog at path.
func Open(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("could not create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("could not open catalog: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close() // nolint: errcheck

		return nil, fmt.Errorf("could not enable WAL mode: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close() // nolint: errcheck

		return nil, fmt.Errorf("could not create tables: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Record stores the documents of a run in one transaction.
func (c *Catalog) Record(ctx context.Context, runID string, docs []crawler.Document) (err error) {
	if len(docs) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback() // nolint: errcheck
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (run_id, source_url, origin_page_url, filename, storage_path, organized_path, category, depth_found, size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_url) DO UPDATE SET
			run_id = excluded.run_id,
			origin_page_url = excluded.origin_page_url,
			filename = excluded.filename,
			storage_path = excluded.storage_path,
			organized_path = excluded.organized_path,
			category = excluded.category,
			depth_found = excluded.depth_found,
			size = excluded.size,
			recorded_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("could not prepare statement: %w", err)
	}

	defer stmt.Close() // nolint: errcheck

	for _, d := range docs {
		if _, err = stmt.ExecContext(ctx,
			runID, d.SourceURL, d.OriginPageURL, d.Filename, d.StoragePath, d.OrganizedPath, d.Category, d.DepthFound, d.Size,
		); err != nil {
			return fmt.Errorf("could not record %s: %w", d.SourceURL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// CountByCategory returns the number of documents per category.
func (c *Catalog) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM documents GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("could not count documents: %w", err)
	}

	defer rows.Close() // nolint: errcheck

	counts := make(map[string]int)

	for rows.Next() {
		var (
			category string
			n        int
		)

		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("could not scan count: %w", err)
		}

		counts[category] = n
	}

	return counts, rows.Err()
}

// Documents lists the documents of a category, or all of them when category is empty, ordered by source url.
func (c *Catalog) Documents(ctx context.Context, category string) ([]crawler.Document, error) {
	query := `SELECT source_url, origin_page_url, filename, storage_path, COALESCE(organized_path, ''), category, depth_found, size
		FROM documents`
	args := []any{}

	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}

	query += ` ORDER BY source_url`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not list documents: %w", err)
	}

	defer rows.Close() // nolint: errcheck

	var docs []crawler.Document

	for rows.Next() {
		var d crawler.Document

		if err := rows.Scan(&d.SourceURL, &d.OriginPageURL, &d.Filename, &d.StoragePath, &d.OrganizedPath, &d.Category, &d.DepthFound, &d.Size); err != nil {
			return nil, fmt.Errorf("could not scan document: %w", err)
		}

		docs = append(docs, d)
	}

	return docs, rows.Err()
}
