package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/knowledge-importer/internal/convert"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the supported file extensions",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, ext := range convert.SupportedExtensions() {
			format, err := convert.Detect("x" + ext)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", ext, format)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
