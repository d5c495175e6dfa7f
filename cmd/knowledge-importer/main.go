// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the knowledge-importer CLI, which
// converts structured files (CSV, JSON, YAML, XML, XLSX) into Markdown for
// knowledge base ingestion.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/knowledge-importer/internal/convert"
	"github.com/pdiddy/knowledge-importer/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the knowledge-importer CLI.
var rootCmd = &cobra.Command{
	Use:   "knowledge-importer",
	Short: "Convert structured files into chunking-ready Markdown",
	Long: `knowledge-importer converts CSV, JSON, YAML, XML and XLSX files into
Markdown with a YAML frontmatter block. Every record becomes its own
heading-delimited section so that heading-aware splitters produce
self-contained chunks. Each conversion is checked for lexical coverage of
the source.

Converted documents can be recorded in a SQLite ledger, which makes repeated
batch runs incremental and the converted text searchable.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if viper.GetBool("verbose") {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./knowledge-importer.yaml or ~/.config/knowledge-importer/knowledge-importer.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("language", types.DefaultLanguage, "document language and title labels: de or en")
	rootCmd.PersistentFlags().String("delimiter", ",", `CSV field delimiter: ",", ";", "\t", "|" or auto`)
	rootCmd.PersistentFlags().Int64("max-file-size", 100*1024*1024, "reject input files larger than this many bytes")

	bindFlag("verbose", rootCmd, "verbose")
	bindFlag("converter.language", rootCmd, "language")
	bindFlag("converter.csv_delimiter", rootCmd, "delimiter")
	bindFlag("converter.max_file_size", rootCmd, "max-file-size")

	viper.SetDefault("converter.max_depth", 256)
	viper.SetDefault("batch.out_dir", "markdown")
	viper.SetDefault("batch.patterns", defaultPatterns())
	viper.SetDefault("batch.workers", runtime.NumCPU())
	viper.SetDefault("ledger.path", "knowledge-importer.db")
	viper.SetDefault("ledger.max_results", 20)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("knowledge-importer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "knowledge-importer"))
		}
	}

	viper.SetEnvPrefix("KNOWLEDGE_IMPORTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged flag, env and file settings.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Converter = cfg.Converter.WithDefaults()
	if cfg.Batch.Incremental && cfg.Batch.LedgerPath == "" {
		cfg.Batch.LedgerPath = cfg.Ledger.Path
	}
	if err := cfg.Converter.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func defaultPatterns() []string {
	exts := convert.SupportedExtensions()
	patterns := make([]string, len(exts))
	for i, ext := range exts {
		patterns[i] = "*" + ext
	}
	return patterns
}

// bindFlag ties a viper key to a local or persistent flag of cmd.
func bindFlag(key string, cmd *cobra.Command, name string) {
	f := cmd.Flags().Lookup(name)
	if f == nil {
		f = cmd.PersistentFlags().Lookup(name)
	}
	if err := viper.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", name, err))
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
