// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger persists conversion outcomes in SQLite so that batch runs
// can skip unchanged sources and converted documents stay searchable.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/knowledge-importer/internal/render"
	"github.com/pdiddy/knowledge-importer/pkg/types"
)

const (
	defaultMaxResults = 20

	// StatusImported marks rows created from existing Markdown files rather
	// than a conversion run.
	StatusImported = "imported"
)

// Store manages the ledger database.
type Store struct {
	db         *sql.DB
	path       string
	maxResults int
}

// NewStore opens or creates the ledger at cfg.Path and creates the schema
// if it does not exist.
func NewStore(cfg types.LedgerConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("ledger path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, path: cfg.Path, maxResults: maxResults}
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
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			converted INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS conversions (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			source_path TEXT NOT NULL UNIQUE,
			source_type TEXT,
			title TEXT,
			output_path TEXT,
			status TEXT NOT NULL,
			coverage REAL,
			duration REAL,
			issues TEXT,
			converted_at TEXT,
			file_mod_time TEXT,
			file_size INTEGER,
			run_id TEXT REFERENCES runs(id),
			config_hash TEXT,
			markdown TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_type ON conversions(source_type)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_status ON conversions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_output ON conversions(output_path)`,
	}
	for _, stmt := range statements[:2] {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	if err := s.addColumn("conversions", "config_hash", "TEXT"); err != nil {
		return err
	}
	for _, stmt := range statements[2:] {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='conversions_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE conversions_fts USING fts5(markdown, content=conversions, content_rowid=rowid)`,
		`CREATE TRIGGER conversions_ai AFTER INSERT ON conversions BEGIN
			INSERT INTO conversions_fts(rowid, markdown) VALUES (new.rowid, new.markdown);
		END`,
		`CREATE TRIGGER conversions_ad AFTER DELETE ON conversions BEGIN
			INSERT INTO conversions_fts(conversions_fts, rowid, markdown) VALUES('delete', old.rowid, old.markdown);
		END`,
		`CREATE TRIGGER conversions_au AFTER UPDATE ON conversions BEGIN
			INSERT INTO conversions_fts(conversions_fts, rowid, markdown) VALUES('delete', old.rowid, old.markdown);
			INSERT INTO conversions_fts(rowid, markdown) VALUES (new.rowid, new.markdown);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// addColumn adds a column to ledgers created before it existed.
func (s *Store) addColumn(table, column, decl string) error {
	rows, err := s.db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("reading columns of %s: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading columns of %s: %w", table, err)
	}
	if _, err := s.db.Exec(`ALTER TABLE ` + table + ` ADD COLUMN ` + column + ` ` + decl); err != nil {
		return fmt.Errorf("adding column %s.%s: %w", table, column, err)
	}
	return nil
}

// Run summarizes one batch invocation.
type Run struct {
	ID         string `json:"id" yaml:"id"`
	StartedAt  string `json:"started_at" yaml:"started_at"`
	FinishedAt string `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Converted  int    `json:"converted" yaml:"converted"`
	Skipped    int    `json:"skipped" yaml:"skipped"`
	Failed     int    `json:"failed" yaml:"failed"`
}

// BeginRun inserts a new run and returns its time-ordered id.
func (s *Store) BeginRun(ctx context.Context) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating run id: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		id.String(), timestamp(time.Now()),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id.String(), nil
}

// FinishRun stores the final counts of a run.
func (s *Store) FinishRun(ctx context.Context, id string, converted, skipped, failed int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, converted = ?, skipped = ?, failed = ? WHERE id = ?`,
		timestamp(time.Now()), converted, skipped, failed, id,
	)
	if err != nil {
		return fmt.Errorf("updating run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// Runs lists the most recent runs first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, converted, skipped, failed
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Converted, &r.Skipped, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.FinishedAt = finished.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Record upserts the outcome of converting one source. Title and source
// type are read back from the frontmatter of the generated Markdown. The
// output path is stored absolute so that Import can recognize it.
func (s *Store) Record(ctx context.Context, runID string, res *types.ConversionResult, outputPath string, info os.FileInfo, fingerprint string) error {
	meta, body, err := render.ParseFrontmatter([]byte(res.MarkdownContent))
	if err != nil {
		return fmt.Errorf("recording %s: %w", res.SourcePath, err)
	}

	var run any
	if runID != "" {
		run = runID
	}
	var (
		modTime string
		size    int64
	)
	if info != nil {
		modTime = timestamp(info.ModTime())
		size = info.Size()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversions (source_path, source_type, title, output_path, status,
			coverage, duration, issues, converted_at, file_mod_time, file_size, run_id, config_hash, markdown)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_path) DO UPDATE SET
			source_type=excluded.source_type, title=excluded.title,
			output_path=excluded.output_path, status=excluded.status,
			coverage=excluded.coverage, duration=excluded.duration, issues=excluded.issues,
			converted_at=excluded.converted_at, file_mod_time=excluded.file_mod_time,
			file_size=excluded.file_size, run_id=excluded.run_id,
			config_hash=excluded.config_hash, markdown=excluded.markdown`,
		res.SourcePath, meta.Source, meta.Title, absPath(outputPath), string(res.Validation.Status),
		res.Validation.CoverageScore, res.DurationSeconds, strings.Join(res.Validation.Issues, "\n"),
		meta.ConvertedAt, modTime, size, run, fingerprint, string(body),
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", res.SourcePath, err)
	}
	return nil
}

// Unchanged reports whether path was recorded with the same modification
// time and size as info and under the same converter fingerprint.
func (s *Store) Unchanged(ctx context.Context, path string, info os.FileInfo, fingerprint string) (bool, error) {
	var (
		modTime sql.NullString
		size    sql.NullInt64
		hash    sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT file_mod_time, file_size, config_hash FROM conversions WHERE source_path = ?`, path,
	).Scan(&modTime, &size, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up %s: %w", path, err)
	}
	return modTime.String == timestamp(info.ModTime()) && size.Int64 == info.Size() &&
		hash.String == fingerprint, nil
}

// ImportSummary holds counts from an import run.
type ImportSummary struct {
	Imported int
	Skipped  int
	Failed   int
}

// Total returns the number of files processed.
func (s ImportSummary) Total() int {
	return s.Imported + s.Skipped + s.Failed
}

// Import records the converted Markdown files in dir that carry a
// frontmatter block. Rows are keyed by the Markdown path; files whose
// modification time is unchanged since the last import are skipped, and so
// are files already recorded as the output of a conversion.
func (s *Store) Import(ctx context.Context, dir string, w io.Writer) (ImportSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var summary ImportSummary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", entry.Name(), err)
			summary.Failed++
			continue
		}

		source, err := s.convertedFrom(ctx, path)
		if err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", entry.Name(), err)
			summary.Failed++
			continue
		}
		if source != "" {
			fmt.Fprintf(w, "skipped  %s (output of %s)\n", entry.Name(), source)
			summary.Skipped++
			continue
		}

		unchanged, err := s.Unchanged(ctx, path, info, "")
		if err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", entry.Name(), err)
			summary.Failed++
			continue
		}
		if unchanged {
			fmt.Fprintf(w, "skipped  %s\n", entry.Name())
			summary.Skipped++
			continue
		}

		if err := s.importFile(ctx, path, info); err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", entry.Name(), err)
			summary.Failed++
			continue
		}
		fmt.Fprintf(w, "imported %s\n", entry.Name())
		summary.Imported++
	}

	fmt.Fprintf(w, "\nimported: %d, skipped: %d, failed: %d\n",
		summary.Imported, summary.Skipped, summary.Failed)
	return summary, nil
}

// convertedFrom returns the source path of the conversion row whose output
// is mdPath, or "" when no conversion wrote it.
func (s *Store) convertedFrom(ctx context.Context, mdPath string) (string, error) {
	var source string
	err := s.db.QueryRowContext(ctx,
		`SELECT source_path FROM conversions WHERE output_path = ? AND status != ? LIMIT 1`,
		absPath(mdPath), StatusImported,
	).Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up output %s: %w", mdPath, err)
	}
	return source, nil
}

func (s *Store) importFile(ctx context.Context, path string, info os.FileInfo) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	meta, body, err := render.ParseFrontmatter(data)
	if err != nil {
		return err
	}
	if meta.Source == "" {
		return errors.New("no frontmatter")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversions (source_path, source_type, title, output_path, status,
			converted_at, file_mod_time, file_size, config_hash, markdown)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_path) DO UPDATE SET
			source_type=excluded.source_type, title=excluded.title,
			output_path=excluded.output_path, status=excluded.status,
			converted_at=excluded.converted_at, file_mod_time=excluded.file_mod_time,
			file_size=excluded.file_size, config_hash=excluded.config_hash,
			markdown=excluded.markdown`,
		path, meta.Source, meta.Title, absPath(path), StatusImported,
		meta.ConvertedAt, timestamp(info.ModTime()), info.Size(), "", string(body),
	)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", path, err)
	}
	return nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
