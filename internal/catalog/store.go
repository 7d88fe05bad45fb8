// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog indexes extracted blocks in SQLite for search, symbol
// collision checks, and export.
package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/cblocks/internal/batch"
	"github.com/pdiddy/cblocks/pkg/types"
)

const dbFile = "cblocks.db"

// Store manages the catalog database.
type Store struct {
	db         *sql.DB
	catalogDir string
	resultsDir string
	maxResults int
}

// NewStore opens or creates the catalog at catalogDir/cblocks.db and
// creates the schema if it does not exist.
func NewStore(cfg types.CatalogConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.CatalogDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	dbPath := filepath.Join(cfg.CatalogDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		catalogDir: cfg.CatalogDir,
		resultsDir: cfg.ResultsDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY,
			failures INTEGER NOT NULL DEFAULT 0,
			file_mod_time TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS blocks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			path TEXT NOT NULL REFERENCES documents(path),
			kind TEXT NOT NULL,
			declaration TEXT,
			symbol TEXT,
			text TEXT NOT NULL,
			start_offset INTEGER,
			line INTEGER,
			body_line INTEGER,
			end_offset INTEGER,
			functions TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_path ON blocks(path)`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_kind ON blocks(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_symbol ON blocks(symbol)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='blocks_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE blocks_fts USING fts5(text, content=blocks, content_rowid=rowid)`,
			`CREATE TRIGGER blocks_ai AFTER INSERT ON blocks BEGIN
				INSERT INTO blocks_fts(rowid, text) VALUES (new.rowid, new.text);
			END`,
			`CREATE TRIGGER blocks_ad AFTER DELETE ON blocks BEGIN
				INSERT INTO blocks_fts(blocks_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			END`,
			`CREATE TRIGGER blocks_au AFTER UPDATE ON blocks BEGIN
				INSERT INTO blocks_fts(blocks_fts, rowid, text) VALUES('delete', old.rowid, old.text);
				INSERT INTO blocks_fts(rowid, text) VALUES (new.rowid, new.text);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from a catalog indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of result files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads batch result files under the results directory and
// populates the database. Result files unchanged since the last run are
// skipped; changed ones replace the document's blocks.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	if s.resultsDir == "" {
		return IngestSummary{}, fmt.Errorf("results directory is required")
	}

	var summary IngestSummary

	err := filepath.WalkDir(s.resultsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, batch.ResultSuffix) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(s.resultsDir, path)
		if err != nil {
			return err
		}
		docPath := batch.DocumentPath(rel)

		info, err := d.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", docPath, err)
			summary.Failed++
			return nil
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime sql.NullString
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM documents WHERE path = ?`, docPath,
		).Scan(&storedModTime)

		if err == nil && storedModTime.String == modTime {
			fmt.Fprintf(w, "skipped %s\n", docPath)
			summary.Skipped++
			return nil
		}
		isUpdate := err == nil

		doc, err := batch.ReadResult(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", docPath, err)
			summary.Failed++
			return nil
		}

		if err := s.ingestDocument(ctx, docPath, doc, modTime, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", docPath, err)
			summary.Failed++
			return nil
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d blocks)\n", docPath, len(doc.Blocks))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d blocks)\n", docPath, len(doc.Blocks))
			summary.Indexed++
		}
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("walking %s: %w", s.resultsDir, err)
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	return summary, nil
}

func (s *Store) ingestDocument(ctx context.Context, path string, doc *types.Document, modTime string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE path = ?`, path); err != nil {
			return fmt.Errorf("deleting old blocks: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (path, failures, file_mod_time) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET failures=excluded.failures, file_mod_time=excluded.file_mod_time`,
		path, len(doc.Failures), modTime,
	)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO blocks (id, path, kind, declaration, symbol, text, start_offset, line, body_line, end_offset, functions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range doc.Blocks {
		funcsJSON, err := json.Marshal(b.Functions)
		if err != nil {
			return fmt.Errorf("encoding functions at line %d: %w", b.Line, err)
		}
		id := stableID(path, b.Offset, b.Text)
		_, err = stmt.ExecContext(ctx,
			id, path, b.Kind.String(), b.Declaration, string(b.Symbol), b.Text,
			b.Offset, b.Line, b.BodyLine, b.End, string(funcsJSON),
		)
		if err != nil {
			return fmt.Errorf("inserting block at line %d: %w", b.Line, err)
		}
	}

	return tx.Commit()
}

// stableID derives a block ID from its document, position, and text. The
// ID is the first 12 hex characters of SHA-256 over those fields.
func stableID(path string, offset int, text string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00", path, offset)
	h.Write([]byte(text))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}
