// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pdiddy/knowledge-importer/internal/render"
	"github.com/pdiddy/knowledge-importer/pkg/types"
)

// Query holds parameters for ledger searches.
type Query struct {
	// Text is an FTS5 match expression over the converted Markdown.
	Text string

	// SourceType filters by input format.
	SourceType types.SourceType

	// Status filters by validation status (ok, warning, imported).
	Status string

	// MaxResults limits the result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q Query) IsEmpty() bool {
	return q.Text == "" && q.SourceType == "" && q.Status == ""
}

// Entry is one recorded conversion.
type Entry struct {
	SourcePath  string  `json:"source_path" yaml:"source_path"`
	SourceType  string  `json:"source_type" yaml:"source_type"`
	Title       string  `json:"title" yaml:"title"`
	OutputPath  string  `json:"output_path" yaml:"output_path"`
	Status      string  `json:"status" yaml:"status"`
	Coverage    float64 `json:"coverage" yaml:"coverage"`
	Duration    float64 `json:"duration_seconds" yaml:"duration_seconds"`
	Issues      string  `json:"issues,omitempty" yaml:"issues,omitempty"`
	ConvertedAt string  `json:"converted_at" yaml:"converted_at"`
	RunID       string  `json:"run_id,omitempty" yaml:"run_id,omitempty"`

	// Snippet highlights the match for full-text queries.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// Search queries the ledger with optional full-text search and filters.
// Full-text results are ranked by relevance; filter-only results are
// sorted by source path.
func (s *Store) Search(ctx context.Context, q Query) ([]Entry, error) {
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = q.Text != ""
	)

	const columns = `c.source_path, c.source_type, c.title, c.output_path, c.status,
		c.coverage, c.duration, c.issues, c.converted_at, c.run_id`

	if useFTS {
		qb.WriteString(`SELECT ` + columns + `,
				snippet(conversions_fts, 0, '[', ']', '…', 12)
			FROM conversions_fts
			JOIN conversions c ON c.rowid = conversions_fts.rowid
			WHERE conversions_fts MATCH ?`)
		args = append(args, q.Text)
	} else {
		qb.WriteString(`SELECT ` + columns + `, '' FROM conversions c WHERE 1=1`)
	}

	if q.SourceType != "" {
		qb.WriteString(` AND c.source_type = ?`)
		args = append(args, string(q.SourceType))
	}
	if q.Status != "" {
		qb.WriteString(` AND c.status = ?`)
		args = append(args, q.Status)
	}

	if useFTS {
		qb.WriteString(` ORDER BY conversions_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY c.source_path`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                                    Entry
			srcType, title, out, issues, at, run sql.NullString
			coverage, duration                   sql.NullFloat64
		)
		if err := rows.Scan(&e.SourcePath, &srcType, &title, &out, &e.Status,
			&coverage, &duration, &issues, &at, &run, &e.Snippet); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		e.SourceType = srcType.String
		e.Title = title.String
		e.OutputPath = out.String
		e.Coverage = coverage.Float64
		e.Duration = duration.Float64
		e.Issues = issues.String
		e.ConvertedAt = at.String
		e.RunID = run.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Section returns the chunk of the recorded Markdown for sourcePath whose
// heading equals heading.
func (s *Store) Section(ctx context.Context, sourcePath, heading string) (string, error) {
	var markdown string
	err := s.db.QueryRowContext(ctx,
		`SELECT markdown FROM conversions WHERE source_path = ?`, sourcePath,
	).Scan(&markdown)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", sourcePath, os.ErrNotExist)
	}
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", sourcePath, err)
	}

	for _, c := range render.Chunks([]byte(markdown)) {
		if c.Heading == heading {
			return c.Text, nil
		}
	}
	return "", fmt.Errorf("%s: section %q not found", sourcePath, heading)
}
