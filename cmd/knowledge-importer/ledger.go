// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/knowledge-importer/internal/ledger"
	"github.com/pdiddy/knowledge-importer/pkg/types"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Manage the conversion ledger (import, search, export, runs)",
	Long: `Ledger manages the SQLite database that records every conversion:
source, output file, validation status, coverage and the converted text,
indexed with FTS5. The convert command fills it with --ledger or
--incremental; use subcommands to import existing Markdown, search it or
export it.`,
}

// --- import subcommand ---

var ledgerImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Record already converted Markdown files",
	Long: `Import reads the .md files in a directory, parses their frontmatter and
records them in the ledger. Files unchanged since the last import are
skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runLedgerImport,
}

func runLedgerImport(cmd *cobra.Command, args []string) error {
	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Import(cmd.Context(), args[0], cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d file(s) failed import", summary.Failed)
	}
	return nil
}

// --- search subcommand ---

var ledgerSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search recorded conversions with full-text search and filters",
	Long: `Search matches an FTS5 query against the converted Markdown and filters by
source type or status. Use --source with --section to print one section of
a recorded document.`,
	RunE: runLedgerSearch,
}

func runLedgerSearch(cmd *cobra.Command, args []string) error {
	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	source, _ := cmd.Flags().GetString("source")
	section, _ := cmd.Flags().GetString("section")
	if section != "" {
		if source == "" {
			return fmt.Errorf("--section requires --source")
		}
		text, err := store.Section(cmd.Context(), source, section)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}

	q := queryFromFlags(cmd, args)
	if q.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --type, or --status")
	}

	entries, err := store.Search(cmd.Context(), q)
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(cmd, entries, asJSON)
}

func formatSearchOutput(cmd *cobra.Command, entries []ledger.Entry, asJSON bool) error {
	w := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-5s  %-40s  %-8s  %-8s  %s\n",
		"Rank", "Type", "Source", "Status", "Coverage", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for i, e := range entries {
		fmt.Fprintf(w, "%-4d  %-5s  %-40s  %-8s  %7.0f%%  %s\n",
			i+1, e.SourceType, truncate(e.SourcePath, 40), e.Status, e.Coverage*100, truncate(e.Title, 30))
		if e.Snippet != "" {
			fmt.Fprintf(w, "      %s\n", strings.ReplaceAll(e.Snippet, "\n", " "))
		}
	}
	fmt.Fprintf(w, "\n%d results\n", len(entries))
	return nil
}

// --- export subcommand ---

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded conversions to YAML or JSON",
	Long: `Export writes the ledger entries (or a filtered subset) to a YAML or JSON
file. Supports the same filter flags as search.`,
	RunE: runLedgerExport,
}

func runLedgerExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	q := queryFromFlags(cmd, args)

	switch format {
	case "yaml", "":
		if out == "" {
			out = "ledger-export.yaml"
		}
		if err := store.ExportYAML(cmd.Context(), q, out); err != nil {
			return err
		}
	case "json":
		if out == "" {
			out = "ledger-export.json"
		}
		if err := store.ExportJSON(cmd.Context(), q, out); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", out)
	return nil
}

// --- runs subcommand ---

var ledgerRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent conversion runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openLedger()
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.Runs(cmd.Context(), limit)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-36s  %-30s  %9s  %7s  %6s\n", "Run", "Started", "Converted", "Skipped", "Failed")
		for _, r := range runs {
			fmt.Fprintf(w, "%-36s  %-30s  %9d  %7d  %6d\n", r.ID, r.StartedAt, r.Converted, r.Skipped, r.Failed)
		}
		return nil
	},
}

// --- shared helpers ---

func openLedger() (*ledger.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return ledger.NewStore(cfg.Ledger)
}

func queryFromFlags(cmd *cobra.Command, args []string) ledger.Query {
	text, _ := cmd.Flags().GetString("query")
	if text == "" && len(args) > 0 {
		text = strings.Join(args, " ")
	}
	sourceType, _ := cmd.Flags().GetString("type")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")

	return ledger.Query{
		Text:       text,
		SourceType: types.SourceType(sourceType),
		Status:     status,
		MaxResults: limit,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	ledgerCmd.PersistentFlags().String("db", "knowledge-importer.db", "ledger database file")
	ledgerCmd.PersistentFlags().Int("max-results", 20, "default number of search results")
	bindFlag("ledger.path", ledgerCmd, "db")
	bindFlag("ledger.max_results", ledgerCmd, "max-results")

	ledgerSearchCmd.Flags().String("query", "", "full-text search query")
	ledgerSearchCmd.Flags().String("type", "", "filter by source type: csv, json, yaml, xml, xlsx")
	ledgerSearchCmd.Flags().String("status", "", "filter by status: ok, warning, imported")
	ledgerSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	ledgerSearchCmd.Flags().String("source", "", "source path of a recorded document")
	ledgerSearchCmd.Flags().String("section", "", "print the section with this heading from --source")
	ledgerSearchCmd.Flags().Bool("json", false, "output results as JSON")

	ledgerExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	ledgerExportCmd.Flags().StringP("out", "o", "", "output file (default: ledger-export.<format>)")
	ledgerExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	ledgerExportCmd.Flags().String("type", "", "filter by source type for partial export")
	ledgerExportCmd.Flags().String("status", "", "filter by status for partial export")

	ledgerRunsCmd.Flags().Int("limit", 0, "maximum runs to list (0 = use default)")

	ledgerCmd.AddCommand(ledgerImportCmd)
	ledgerCmd.AddCommand(ledgerSearchCmd)
	ledgerCmd.AddCommand(ledgerExportCmd)
	ledgerCmd.AddCommand(ledgerRunsCmd)

	rootCmd.AddCommand(ledgerCmd)
}
