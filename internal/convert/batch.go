// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

// Ledger records conversions so that unchanged sources can be skipped on
// the next run. The fingerprint identifies the converter settings; a source
// recorded under another fingerprint is not unchanged.
type Ledger interface {
	Unchanged(ctx context.Context, path string, info os.FileInfo, fingerprint string) (bool, error)
	Record(ctx context.Context, runID string, res *types.ConversionResult, outputPath string, info os.FileInfo, fingerprint string) error
}

// BatchResult holds the outcome of a batch conversion run. Warnings counts
// converted files whose coverage check did not pass; they are also counted
// in Converted.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
	Warnings  int
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any file failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Batch converts many files into OutDir. A failure on one file is reported
// and counted; it never stops the others.
type Batch struct {
	Converter Converter
	OutDir    string
	Workers   int

	// Ledger enables incremental runs when set. RunID tags the recorded rows
	// and Fingerprint the converter settings they were produced with.
	Ledger      Ledger
	RunID       string
	Fingerprint string

	Logger *slog.Logger
}

type outcome int

const (
	outcomeConverted outcome = iota
	outcomeWarning
	outcomeSkipped
	outcomeFailed
)

// ConvertDir collects the files in dir matching patterns and converts them.
func (b *Batch) ConvertDir(ctx context.Context, dir string, patterns []string, w io.Writer) (BatchResult, error) {
	paths, err := CollectFiles(dir, patterns)
	if err != nil {
		return BatchResult{}, err
	}
	return b.ConvertFiles(ctx, paths, w)
}

// ConvertFiles converts paths concurrently, printing per-file status to w
// and a summary line at the end. The returned error is non-nil only when
// ctx was cancelled or OutDir cannot be created.
func (b *Batch) ConvertFiles(ctx context.Context, paths []string, w io.Writer) (BatchResult, error) {
	if err := os.MkdirAll(b.OutDir, 0o755); err != nil {
		return BatchResult{}, fmt.Errorf("creating output directory %s: %w", b.OutDir, err)
	}

	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := b.Workers
	if workers < 1 {
		workers = 1
	}

	outputs := OutputNames(paths)

	var (
		mu     sync.Mutex
		result BatchResult
	)
	report := func(o outcome, format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, format, args...)
		switch o {
		case outcomeConverted:
			result.Converted++
		case outcomeWarning:
			result.Converted++
			result.Warnings++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for _, p := range paths {
		if ctx.Err() != nil {
			break
		}
		p := p
		mdPath := filepath.Join(b.OutDir, outputs[p])
		g.Go(func() error {
			b.convertOne(ctx, p, mdPath, logger, report)
			return nil
		})
	}
	_ = g.Wait()

	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed, %d warnings (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Warnings, result.Total())
	return result, ctx.Err()
}

func (b *Batch) convertOne(ctx context.Context, path, mdPath string, logger *slog.Logger, report func(outcome, string, ...any)) {
	name := filepath.Base(path)

	info, err := os.Stat(path)
	if err != nil {
		report(outcomeFailed, "failed:    %s (%v)\n", name, err)
		return
	}

	if b.Ledger != nil {
		if _, statErr := os.Stat(mdPath); statErr == nil {
			unchanged, err := b.Ledger.Unchanged(ctx, path, info, b.Fingerprint)
			if err != nil {
				logger.Warn("ledger lookup failed", "path", path, "error", err)
			} else if unchanged {
				report(outcomeSkipped, "skipped:   %s (unchanged)\n", name)
				return
			}
		}
	}

	res, err := b.Converter.Convert(path)
	if err != nil {
		report(outcomeFailed, "failed:    %s (%v)\n", name, err)
		return
	}

	if err := os.WriteFile(mdPath, []byte(res.MarkdownContent), 0o644); err != nil {
		report(outcomeFailed, "failed:    %s (%v)\n", name, err)
		return
	}

	if b.Ledger != nil {
		if err := b.Ledger.Record(ctx, b.RunID, res, mdPath, info, b.Fingerprint); err != nil {
			logger.Warn("recording conversion failed", "path", path, "error", err)
		}
	}

	if res.Validation.Status != types.StatusOK {
		report(outcomeWarning, "warning:   %s (%s)\n", name, strings.Join(res.Validation.Issues, "; "))
		return
	}
	report(outcomeConverted, "converted: %s (%.0f%% coverage)\n", name, res.Validation.CoverageScore*100)
}

// OutputNames maps each input path to its Markdown file name, <stem>.md.
// When two inputs share a stem, the later ones get the extension folded
// into the name (data.csv, data.json -> data.md, data_json.md).
func OutputNames(paths []string) map[string]string {
	names := make(map[string]string, len(paths))
	used := make(map[string]bool, len(paths))
	for _, p := range paths {
		base := filepath.Base(p)
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		name := stem + ".md"
		if used[name] {
			name = stem + "_" + strings.TrimPrefix(strings.ToLower(ext), ".") + ".md"
		}
		for i := 2; used[name]; i++ {
			name = fmt.Sprintf("%s_%d.md", stem, i)
		}
		used[name] = true
		names[p] = name
	}
	return names
}

// CollectFiles returns the regular files directly in dir whose names match
// any of the glob patterns, sorted by path.
func CollectFiles(dir string, patterns []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	for _, pat := range patterns {
		if _, err := filepath.Match(pat, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pat, err)
		}
	}

	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		for _, pat := range patterns {
			if ok, _ := filepath.Match(pat, e.Name()); ok {
				paths = append(paths, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}
