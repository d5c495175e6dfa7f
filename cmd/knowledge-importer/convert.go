// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/knowledge-importer/internal/convert"
	"github.com/pdiddy/knowledge-importer/internal/ledger"
	"github.com/pdiddy/knowledge-importer/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [files or directories...]",
	Short: "Convert structured files to Markdown",
	Long: `Convert reads CSV, JSON, YAML, XML and XLSX files and writes one
Markdown file per input into the output directory. Directories are expanded
with the configured filename patterns.

Each file is reported as converted, warning (coverage below 95%), skipped
(unchanged since the last recorded run) or failed. A failed file never
stops the batch; the command exits non-zero when any file failed.

With --stdout a single file is converted and its Markdown printed instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()
	u := convert.New(cfg.Converter, logger)

	toStdout, _ := cmd.Flags().GetBool("stdout")
	if toStdout {
		return convertToStdout(cmd, u, args)
	}

	if err := cfg.Batch.Validate(); err != nil {
		return err
	}

	paths, err := expandArgs(args, cfg.Batch.Patterns)
	if err != nil {
		return err
	}

	var conv convert.Converter = u
	if cfg.Batch.CacheTTL > 0 {
		conv = convert.NewCachedConverter(u, cfg.Batch.CacheTTL)
	}

	batch := &convert.Batch{
		Converter:   conv,
		OutDir:      cfg.Batch.OutDir,
		Workers:     cfg.Batch.Workers,
		Fingerprint: cfg.Converter.Fingerprint(),
		Logger:      logger,
	}

	var store *ledger.Store
	if cfg.Batch.LedgerPath != "" {
		store, err = ledger.NewStore(types.LedgerConfig{Path: cfg.Batch.LedgerPath})
		if err != nil {
			return err
		}
		defer store.Close()

		runID, err := store.BeginRun(cmd.Context())
		if err != nil {
			return err
		}
		batch.RunID = runID
		if cfg.Batch.Incremental {
			batch.Ledger = store
		} else {
			batch.Ledger = recordOnly{store}
		}
	}

	result, err := batch.ConvertFiles(cmd.Context(), paths, cmd.OutOrStdout())

	if store != nil {
		if ferr := store.FinishRun(cmd.Context(), batch.RunID, result.Converted, result.Skipped, result.Failed); ferr != nil {
			logger.Warn("finishing ledger run", "run", batch.RunID, "error", ferr)
		}
	}
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", result.Failed)
	}
	return nil
}

// recordOnly records conversions without ever reporting a file unchanged.
type recordOnly struct {
	*ledger.Store
}

func (recordOnly) Unchanged(_ context.Context, _ string, _ os.FileInfo, _ string) (bool, error) {
	return false, nil
}

func convertToStdout(cmd *cobra.Command, u *convert.Universal, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("--stdout takes exactly one file, got %d", len(args))
	}
	res, err := u.Convert(args[0])
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprint(cmd.OutOrStdout(), res.MarkdownContent)
	if res.Validation.Status != types.StatusOK {
		for _, issue := range res.Validation.Issues {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", args[0], issue)
		}
	}
	return nil
}

// expandArgs replaces directory arguments with the matching files inside.
func expandArgs(args, patterns []string) ([]string, error) {
	var paths []string
	for _, a := range args {
		info, err := os.Stat(a)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, a)
			continue
		}
		files, err := convert.CollectFiles(a, patterns)
		if err != nil {
			return nil, err
		}
		paths = append(paths, files...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input files found")
	}
	return paths, nil
}

func init() {
	convertCmd.Flags().StringP("out-dir", "o", "markdown", "directory for the generated Markdown files")
	convertCmd.Flags().StringSlice("pattern", nil, "filename globs used for directory arguments (default: all supported extensions)")
	convertCmd.Flags().IntP("workers", "w", 0, "files converted concurrently (default: number of CPUs)")
	convertCmd.Flags().Bool("incremental", false, "skip files unchanged since the last recorded run")
	convertCmd.Flags().Duration("cache-ttl", 0, "cache conversion results in memory for this long")
	convertCmd.Flags().String("ledger", "", "record conversions in this SQLite ledger")
	convertCmd.Flags().Bool("stdout", false, "convert a single file and print its Markdown")
	convertCmd.Flags().Bool("json", false, "with --stdout, print the full conversion result as JSON")

	bindFlag("batch.out_dir", convertCmd, "out-dir")
	bindFlag("batch.patterns", convertCmd, "pattern")
	bindFlag("batch.workers", convertCmd, "workers")
	bindFlag("batch.incremental", convertCmd, "incremental")
	bindFlag("batch.cache_ttl", convertCmd, "cache-ttl")
	bindFlag("batch.ledger_path", convertCmd, "ledger")

	rootCmd.AddCommand(convertCmd)
}
