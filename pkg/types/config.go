package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Delimiter values accepted by ConverterConfig.CSVDelimiter. DelimiterAuto
// sniffs the header line for the most frequent candidate.
const (
	DelimiterAuto = "auto"

	defaultDelimiter   = ","
	defaultMaxFileSize = 100 * 1024 * 1024
	defaultMaxDepth    = 256
)

// SupportedLanguages lists the locales with a label table.
var SupportedLanguages = []any{"de", "en"}

var csvDelimiters = []any{",", ";", "\t", "|", DelimiterAuto}

// ConverterConfig holds settings shared by all format extractors.
type ConverterConfig struct {
	// Language is written to the frontmatter and selects the label table
	// used for synthesized titles (default "de").
	Language string `json:"language" yaml:"language" mapstructure:"language"`

	// CSVDelimiter is the field separator for CSV input (default ",").
	CSVDelimiter string `json:"csv_delimiter" yaml:"csv_delimiter" mapstructure:"csv_delimiter"`

	// MaxFileSize rejects larger inputs before reading them (default 100 MiB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size" mapstructure:"max_file_size"`

	// MaxDepth bounds nesting of JSON, YAML and XML input (default 256).
	MaxDepth int `json:"max_depth" yaml:"max_depth" mapstructure:"max_depth"`
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (c ConverterConfig) WithDefaults() ConverterConfig {
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.CSVDelimiter == "" {
		c.CSVDelimiter = defaultDelimiter
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = defaultMaxFileSize
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = defaultMaxDepth
	}
	return c
}

// Fingerprint identifies the settings that shape the generated Markdown.
// Configs equal after defaults share a fingerprint; MaxFileSize is left out
// because it only decides whether a file is read.
func (c ConverterConfig) Fingerprint() string {
	c = c.WithDefaults()
	sum := sha256.Sum256([]byte(fmt.Sprintf("language=%s\x00delimiter=%s\x00max_depth=%d",
		c.Language, c.CSVDelimiter, c.MaxDepth)))
	return hex.EncodeToString(sum[:8])
}

// Validate checks the configuration after defaults are applied.
func (c ConverterConfig) Validate() error {
	c = c.WithDefaults()
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Language, validation.In(SupportedLanguages...)),
		validation.Field(&c.CSVDelimiter, validation.In(csvDelimiters...)),
		validation.Field(&c.MaxFileSize, validation.Min(int64(1))),
		validation.Field(&c.MaxDepth, validation.Min(1)),
	)
	if err != nil {
		return fmt.Errorf("invalid converter config: %w", err)
	}
	return nil
}

// BatchConfig holds settings for converting many files into an output directory.
type BatchConfig struct {
	// OutDir receives one <stem>.md file per converted input.
	OutDir string `json:"out_dir" yaml:"out_dir" mapstructure:"out_dir"`

	// Patterns are filename globs used when a directory is given (default:
	// every supported extension).
	Patterns []string `json:"patterns" yaml:"patterns" mapstructure:"patterns"`

	// Workers is the number of files converted concurrently (default: one per CPU).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// Incremental skips files the ledger has already converted unchanged.
	Incremental bool `json:"incremental" yaml:"incremental" mapstructure:"incremental"`

	// CacheTTL enables in-memory result caching when positive.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`

	// LedgerPath is the SQLite ledger file. Empty disables the ledger.
	LedgerPath string `json:"ledger_path,omitempty" yaml:"ledger_path,omitempty" mapstructure:"ledger_path"`
}

// Validate checks the batch configuration.
func (c BatchConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.OutDir, validation.Required),
		validation.Field(&c.Patterns, validation.Required),
		validation.Field(&c.Workers, validation.Min(1)),
		validation.Field(&c.LedgerPath, validation.When(c.Incremental, validation.Required.Error("is required for incremental runs"))),
	)
	if err != nil {
		return fmt.Errorf("invalid batch config: %w", err)
	}
	return nil
}

// LedgerConfig holds settings for the conversion ledger commands.
type LedgerConfig struct {
	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// MaxResults is the default search result limit (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// Config groups all stage configurations.
type Config struct {
	Converter ConverterConfig `json:"converter" yaml:"converter" mapstructure:"converter"`
	Batch     BatchConfig     `json:"batch" yaml:"batch" mapstructure:"batch"`
	Ledger    LedgerConfig    `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
}
