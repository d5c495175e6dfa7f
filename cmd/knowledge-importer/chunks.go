// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/knowledge-importer/internal/convert"
	"github.com/pdiddy/knowledge-importer/internal/render"
)

var chunksCmd = &cobra.Command{
	Use:   "chunks <file>",
	Short: "Split converted Markdown at its headings",
	Long: `Chunks shows how a heading-aware splitter sees a converted document: one
chunk per heading with the text up to the next heading. The argument is
either a converted .md file or a supported source file, which is converted
in memory first.`,
	Args: cobra.ExactArgs(1),
	RunE: runChunks,
}

func runChunks(cmd *cobra.Command, args []string) error {
	markdown, err := chunkSource(args[0])
	if err != nil {
		return err
	}

	meta, body, err := render.ParseFrontmatter(markdown)
	if err != nil {
		return err
	}
	chunks := render.Chunks(body)

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(chunks)
	}

	w := cmd.OutOrStdout()
	if meta.Title != "" {
		fmt.Fprintf(w, "%s (%s, %s)\n\n", meta.Title, meta.Source, meta.SourceFile)
	}
	fmt.Fprintf(w, "%-4s  %-5s  %-50s  %s\n", "#", "Level", "Heading", "Chars")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for i, c := range chunks {
		heading := c.Heading
		if len([]rune(heading)) > 50 {
			heading = string([]rune(heading)[:47]) + "..."
		}
		fmt.Fprintf(w, "%-4d  %-5d  %-50s  %d\n", i+1, c.Level, heading, len([]rune(c.Text)))
	}
	fmt.Fprintf(w, "\n%d chunks\n", len(chunks))
	return nil
}

func chunkSource(path string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".md") {
		return os.ReadFile(path)
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	res, err := convert.New(cfg.Converter, nil).Convert(path)
	if err != nil {
		return nil, err
	}
	return []byte(res.MarkdownContent), nil
}

func init() {
	chunksCmd.Flags().Bool("json", false, "print chunks as JSON")
	rootCmd.AddCommand(chunksCmd)
}
