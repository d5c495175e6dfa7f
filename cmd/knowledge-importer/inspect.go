// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/knowledge-importer/internal/convert"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print the intermediate document extracted from a file",
	Long: `Inspect runs only the extraction step and prints the resulting document
(title, sections, key-value pairs, metadata and raw text) as YAML or JSON.
Use it to see how a file will be split into sections before converting it.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	u := convert.New(cfg.Converter, nil)

	format, err := convert.Detect(args[0])
	if err != nil {
		return err
	}
	ex, err := u.Extractor(format)
	if err != nil {
		return err
	}
	doc, err := ex.Extract(args[0])
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(doc)
}

func init() {
	inspectCmd.Flags().Bool("json", false, "print JSON instead of YAML")
	rootCmd.AddCommand(inspectCmd)
}
