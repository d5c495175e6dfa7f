// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert extracts structured documents (CSV, JSON, YAML, XML, XLSX)
// into a RawDocument and runs the extract, render, validate pipeline that
// produces a ConversionResult.
//
// Usage:
//
//	u := convert.New(types.ConverterConfig{}, nil)
//	res, err := u.Convert("/path/to/products.csv")
//	fmt.Println(res.Validation.Status, len(res.MarkdownContent))
package convert

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/knowledge-importer/internal/render"
	"github.com/pdiddy/knowledge-importer/internal/validate"
	"github.com/pdiddy/knowledge-importer/pkg/types"
)

// Extractor reads one source file into a RawDocument. On failure it returns
// a nil document and an error; a *FormatError for malformed content.
type Extractor interface {
	Extract(path string) (*types.RawDocument, error)
}

// Converter turns a file into a ConversionResult.
type Converter interface {
	Convert(path string) (*types.ConversionResult, error)
}

// registry maps lowercase extensions to the source format they hold.
var registry = map[string]types.SourceType{
	".csv":  types.SourceCSV,
	".json": types.SourceJSON,
	".yaml": types.SourceYAML,
	".yml":  types.SourceYAML,
	".xml":  types.SourceXML,
	".xlsx": types.SourceXLSX,
}

// Universal dispatches files to the extractor registered for their
// extension. It holds no per-call state and is safe for concurrent use.
type Universal struct {
	cfg       types.ConverterConfig
	renderer  *render.Renderer
	validator *validate.Validator
	logger    *slog.Logger
}

// New creates a Universal converter. A nil logger uses slog.Default().
func New(cfg types.ConverterConfig, logger *slog.Logger) *Universal {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Universal{
		cfg:       cfg,
		renderer:  render.New(),
		validator: validate.New(LabelsFor(cfg.Language).CoverageIssue, logger),
		logger:    logger,
	}
}

// WithRenderer replaces the renderer, e.g. to pin the conversion clock.
func (u *Universal) WithRenderer(r *render.Renderer) *Universal {
	u.renderer = r
	return u
}

// SupportedExtensions returns the registered extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// SupportedExtensions returns the registered extensions, sorted.
func (u *Universal) SupportedExtensions() []string {
	return SupportedExtensions()
}

// Detect returns the source format for path based on its extension.
func Detect(path string) (types.SourceType, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := registry[ext]
	if !ok {
		return "", &UnsupportedFormatError{Path: path, Ext: ext}
	}
	return format, nil
}

// Extractor returns a fresh extractor for format.
func (u *Universal) Extractor(format types.SourceType) (Extractor, error) {
	switch format {
	case types.SourceCSV:
		return NewCSVExtractor(u.cfg), nil
	case types.SourceJSON:
		return NewJSONExtractor(u.cfg), nil
	case types.SourceYAML:
		return NewYAMLExtractor(u.cfg), nil
	case types.SourceXML:
		return NewXMLExtractor(u.cfg), nil
	case types.SourceXLSX:
		return NewXLSXExtractor(u.cfg), nil
	default:
		return nil, fmt.Errorf("no extractor for format %q", format)
	}
}

// Convert resolves the extractor for path and runs the pipeline.
func (u *Universal) Convert(path string) (*types.ConversionResult, error) {
	format, err := Detect(path)
	if err != nil {
		return nil, err
	}
	ex, err := u.Extractor(format)
	if err != nil {
		return nil, err
	}

	u.logger.Debug("converting document", "path", path, "format", format)

	res, err := Run(ex, u.renderer, u.validator, path)
	if err != nil {
		return nil, err
	}

	u.logger.Debug("converted document",
		"path", path, "status", res.Validation.Status,
		"coverage", res.Validation.CoverageScore, "duration", res.DurationSeconds)
	return res, nil
}

// Run executes extract, render and validate in that order. An extraction
// or rendering error is returned unchanged and stops the pipeline.
func Run(ex Extractor, r *render.Renderer, v *validate.Validator, path string) (*types.ConversionResult, error) {
	start := time.Now()

	doc, err := ex.Extract(path)
	if err != nil {
		return nil, err
	}

	markdown, err := r.GenerateMarkdown(doc)
	if err != nil {
		return nil, err
	}

	validation := v.Validate(doc, markdown)

	return &types.ConversionResult{
		SourcePath:      path,
		MarkdownContent: markdown,
		Validation:      validation,
		DurationSeconds: roundMillis(time.Since(start)),
	}, nil
}

func roundMillis(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
