// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared document model and stage configuration
// for the knowledge-importer conversion pipeline.
package types

// SourceType tags the format a RawDocument was extracted from.
type SourceType string

const (
	SourceCSV  SourceType = "csv"
	SourceJSON SourceType = "json"
	SourceYAML SourceType = "yaml"
	SourceXML  SourceType = "xml"
	SourceXLSX SourceType = "xlsx"
)

// DefaultLanguage is the locale tag written to every converted document
// unless the converter is configured otherwise.
const DefaultLanguage = "de"

// KVPair is one flattened key and its stringified value. Keys of nested
// sources use dot notation ("a.b") and bracket indices ("a[0]").
type KVPair struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Section is one heading-delimited unit of the rendered document.
// KVPairs keep discovery order; duplicate keys are preserved, not merged.
type Section struct {
	// Level is the Markdown heading depth (1 or more).
	Level int `json:"level" yaml:"level"`

	// Title is the heading text. Record-oriented sources synthesize it from
	// the row or item index and the first meaningful value.
	Title string `json:"title" yaml:"title"`

	KVPairs []KVPair `json:"kv_pairs" yaml:"kv_pairs"`

	// FreeText is an optional paragraph rendered after the pairs. Empty means unset.
	FreeText string `json:"free_text,omitempty" yaml:"free_text,omitempty"`
}

// RawDocument is the format-independent extraction result. It is built once
// by an extractor and not modified afterwards.
type RawDocument struct {
	SourcePath string     `json:"source_path" yaml:"source_path"`
	SourceType SourceType `json:"source_type" yaml:"source_type"`

	// Title is derived from the filename stem.
	Title string `json:"title" yaml:"title"`

	Language string `json:"language" yaml:"language"`

	// Date is the document's "as of" date. No extractor sets it today.
	Date string `json:"date,omitempty" yaml:"date,omitempty"`

	Sections []Section `json:"sections" yaml:"sections"`

	// Metadata holds format-specific extras such as headers, sheet names,
	// or the XML root tag.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// RawText is the textual content the coverage check scores against.
	RawText string `json:"raw_text" yaml:"raw_text"`
}

// ValidationStatus is the outcome class of the coverage check.
type ValidationStatus string

const (
	StatusOK      ValidationStatus = "ok"
	StatusWarning ValidationStatus = "warning"
	StatusError   ValidationStatus = "error"
)

// ValidationResult reports how much of the source survived conversion.
type ValidationResult struct {
	Status ValidationStatus `json:"status" yaml:"status"`

	// CoverageScore is a fraction between 0.0 and 1.0.
	CoverageScore float64 `json:"coverage_score" yaml:"coverage_score"`

	Issues []string `json:"issues" yaml:"issues"`

	// AIUsed and CorrectedMarkdown are reserved for an AI-assisted
	// correction step. The conversion pipeline never sets them.
	AIUsed            bool    `json:"ai_used" yaml:"ai_used"`
	CorrectedMarkdown *string `json:"corrected_markdown,omitempty" yaml:"corrected_markdown,omitempty"`
}

// ConversionResult is the output of converting a single file.
type ConversionResult struct {
	SourcePath      string           `json:"source_path" yaml:"source_path"`
	MarkdownContent string           `json:"markdown_content" yaml:"markdown_content"`
	Validation      ValidationResult `json:"validation" yaml:"validation"`

	// DurationSeconds is the wall-clock time of the whole pipeline,
	// rounded to milliseconds.
	DurationSeconds float64 `json:"duration_seconds" yaml:"duration_seconds"`

	AICalls int `json:"ai_calls" yaml:"ai_calls"`
}
